package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/commentpulse/internal/fetch"
	"github.com/TobiSchelling/commentpulse/internal/parse"
	"github.com/TobiSchelling/commentpulse/internal/record"
)

// stubFetcher serves canned pages keyed by URL; anything else is a 404.
type stubFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	if body, ok := f.pages[url]; ok {
		return body, nil
	}
	return "", &fetch.StatusError{URL: url, Code: http.StatusNotFound}
}

func articleHTML(title string, comments ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<article><h2>%s</h2><p class=\"description\">about %s</p>", title, title)
	for _, c := range comments {
		fmt.Fprintf(&b, "<div class=\"comment\">%s</div>", c)
	}
	b.WriteString("</article>")
	return b.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScraper(f Fetcher) *Scraper {
	return New(f, parse.New(parse.Selectors{}), Options{Logger: quietLogger()})
}

func titles(recs []record.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func TestScrapeStopsAtFirstNonSuccessStatus(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://example.test/page/1": articleHTML("p1a") + articleHTML("p1b"),
		"https://example.test/page/2": articleHTML("p2a"),
		"https://example.test/page/3": articleHTML("p3a") + articleHTML("p3b"),
		"https://example.test/page/5": articleHTML("never"),
	}}

	res := newScraper(f).Scrape(context.Background(), "https://example.test")

	require.Equal(t, EndOfPages, res.Reason)
	require.NoError(t, res.Err)
	require.Equal(t, 3, res.Pages)
	require.Equal(t, "https://example.test/page/4", res.LastURL)
	if diff := cmp.Diff([]string{"p1a", "p1b", "p2a", "p3a", "p3b"}, titles(res.Records)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, f.calls, 4)
}

func TestScrapeStopsAtEmptyPage(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://example.test/page/1": articleHTML("a"),
		"https://example.test/page/2": articleHTML("b"),
		"https://example.test/page/3": "<html><body><p>no articles</p></body></html>",
		"https://example.test/page/4": articleHTML("unreachable"),
	}}

	res := newScraper(f).Scrape(context.Background(), "https://example.test/")

	require.Equal(t, EmptyPage, res.Reason)
	require.Equal(t, []string{"a", "b"}, titles(res.Records))
	require.Equal(t, 2, res.Pages)
}

func TestScrapeMalformedBlockAbortsWithPriorPagesOnly(t *testing.T) {
	broken := articleHTML("fine") + `<article><h2>broken</h2><div class="comment">x</div></article>`
	f := &stubFetcher{pages: map[string]string{
		"https://example.test/page/1": articleHTML("first"),
		"https://example.test/page/2": broken,
	}}

	res := newScraper(f).Scrape(context.Background(), "https://example.test")

	require.Equal(t, Failure, res.Reason)
	require.Equal(t, []string{"first"}, titles(res.Records))

	var pe *parse.ParseError
	require.ErrorAs(t, res.Err, &pe)
	require.Equal(t, "description", pe.Field)
	require.Contains(t, res.Err.Error(), "https://example.test/page/2")
}

func TestScrapeTransportErrorIsFailure(t *testing.T) {
	boom := errors.New("connection reset")
	f := &stubFetcher{
		pages: map[string]string{"https://example.test/page/1": articleHTML("only")},
		errs:  map[string]error{"https://example.test/page/2": boom},
	}

	res := newScraper(f).Scrape(context.Background(), "https://example.test")

	require.Equal(t, Failure, res.Reason)
	require.ErrorIs(t, res.Err, boom)
	require.Equal(t, []string{"only"}, titles(res.Records))
}

func TestScrapeFirstPageMissing(t *testing.T) {
	res := newScraper(&stubFetcher{}).Scrape(context.Background(), "https://example.test")

	require.Equal(t, EndOfPages, res.Reason)
	require.Empty(t, res.Records)
	require.Zero(t, res.Pages)
}

func TestScrapeMaxPages(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://example.test/page/1": articleHTML("a"),
		"https://example.test/page/2": articleHTML("b"),
		"https://example.test/page/3": articleHTML("c"),
	}}
	s := New(f, parse.New(parse.Selectors{}), Options{MaxPages: 2, Logger: quietLogger()})

	res := s.Scrape(context.Background(), "https://example.test")

	require.Equal(t, EndOfPages, res.Reason)
	require.Equal(t, []string{"a", "b"}, titles(res.Records))
	require.Len(t, f.calls, 2)
}

func TestScrapeCustomPagePath(t *testing.T) {
	s := New(&stubFetcher{}, parse.New(parse.Selectors{}), Options{PagePath: "/?p=%d"})
	require.Equal(t, "https://example.test/?p=7", s.PageURL("https://example.test/", 7))
}

func TestScrapeAgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page/1":
			fmt.Fprint(w, articleHTML("A", "good", "bad"))
		case "/page/2":
			fmt.Fprint(w, articleHTML("B"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := newScraper(fetch.New(time.Second, ""))
	res := s.Scrape(context.Background(), srv.URL)

	require.Equal(t, EndOfPages, res.Reason)
	want := []record.Record{
		{Title: "A", Description: "about A", Comments: []string{"good", "bad"}},
		{Title: "B", Description: "about B", Comments: []string{}},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReasonString(t *testing.T) {
	require.Equal(t, "end-of-pages", EndOfPages.String())
	require.Equal(t, "empty-page", EmptyPage.String())
	require.Equal(t, "failure", Failure.String())
}
