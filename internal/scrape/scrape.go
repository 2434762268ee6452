package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TobiSchelling/commentpulse/internal/fetch"
	"github.com/TobiSchelling/commentpulse/internal/record"
)

// DefaultPagePath is appended to the base URL; %d is the page number.
const DefaultPagePath = "/page/%d"

// Fetcher retrieves the markup of one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Parser turns page markup into records.
type Parser interface {
	Parse(markup string) ([]record.Record, error)
}

// Reason records why the pagination loop stopped.
type Reason int

const (
	// EndOfPages means the server answered a page with a non-success status.
	EndOfPages Reason = iota
	// EmptyPage means a page contained no article blocks.
	EmptyPage
	// Failure means a fetch or parse error aborted scraping.
	Failure
)

func (r Reason) String() string {
	switch r {
	case EndOfPages:
		return "end-of-pages"
	case EmptyPage:
		return "empty-page"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

type state int

const (
	stateFetching state = iota
	stateParsing
	stateAccumulating
	stateDone
)

// Result holds everything a scrape produced.
type Result struct {
	Records []record.Record
	Reason  Reason
	Pages   int    // pages whose records were accumulated
	LastURL string // the URL that ended the loop
	Err     error  // cause of a Failure; nil otherwise
}

// Options tunes a Scraper.
type Options struct {
	PagePath string // format with one %d verb; DefaultPagePath when empty
	MaxPages int    // 0 means no limit
	Logger   *slog.Logger
}

// Scraper walks the paginated listing of one site.
type Scraper struct {
	fetcher  Fetcher
	parser   Parser
	pagePath string
	maxPages int
	log      *slog.Logger
}

// New creates a Scraper.
func New(fetcher Fetcher, parser Parser, opts Options) *Scraper {
	if opts.PagePath == "" {
		opts.PagePath = DefaultPagePath
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scraper{
		fetcher:  fetcher,
		parser:   parser,
		pagePath: opts.PagePath,
		maxPages: opts.MaxPages,
		log:      opts.Logger,
	}
}

// PageURL builds the URL of a given page.
func (s *Scraper) PageURL(baseURL string, page int) string {
	return strings.TrimRight(baseURL, "/") + fmt.Sprintf(s.pagePath, page)
}

// Scrape fetches pages 1, 2, 3, ... until a page is missing, empty or broken,
// and returns the records gathered so far. Pages are processed strictly in order.
// Failures are reported through Result.Reason and Result.Err, never as a panic
// or a discarded dataset.
func (s *Scraper) Scrape(ctx context.Context, baseURL string) *Result {
	r := &Result{}
	var (
		page    = 1
		st      = stateFetching
		url     string
		markup  string
		records []record.Record
	)

	for st != stateDone {
		switch st {
		case stateFetching:
			if s.maxPages > 0 && page > s.maxPages {
				s.log.Info("page limit reached", "max_pages", s.maxPages)
				r.Reason = EndOfPages
				st = stateDone
				continue
			}
			url = s.PageURL(baseURL, page)
			r.LastURL = url
			s.log.Debug("fetching page", "page", page, "url", url)

			body, err := s.fetcher.Fetch(ctx, url)
			var statusErr *fetch.StatusError
			switch {
			case errors.As(err, &statusErr):
				s.log.Warn("finished scraping or failed to retrieve page", "url", url, "status", statusErr.Code)
				r.Reason = EndOfPages
				st = stateDone
			case err != nil:
				s.log.Error("error scraping page", "url", url, "err", err)
				r.Reason, r.Err = Failure, err
				st = stateDone
			default:
				markup = body
				st = stateParsing
			}

		case stateParsing:
			parsed, err := s.parser.Parse(markup)
			switch {
			case err != nil:
				s.log.Error("error scraping page", "url", url, "err", err)
				r.Reason, r.Err = Failure, fmt.Errorf("parsing %s: %w", url, err)
				st = stateDone
			case len(parsed) == 0:
				s.log.Info("no articles found, stopping", "url", url)
				r.Reason = EmptyPage
				st = stateDone
			default:
				records = parsed
				st = stateAccumulating
			}

		case stateAccumulating:
			r.Records = append(r.Records, records...)
			r.Pages++
			s.log.Debug("accumulated page", "page", page, "articles", len(records), "total", len(r.Records))
			page++
			st = stateFetching
		}
	}

	s.log.Info("scrape finished", "reason", r.Reason.String(), "pages", r.Pages, "records", len(r.Records))
	return r
}
