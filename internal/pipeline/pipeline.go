package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/commentpulse/internal/config"
	"github.com/TobiSchelling/commentpulse/internal/fetch"
	"github.com/TobiSchelling/commentpulse/internal/llm"
	"github.com/TobiSchelling/commentpulse/internal/parse"
	"github.com/TobiSchelling/commentpulse/internal/record"
	"github.com/TobiSchelling/commentpulse/internal/report"
	"github.com/TobiSchelling/commentpulse/internal/scrape"
	"github.com/TobiSchelling/commentpulse/internal/sentiment"
	"github.com/TobiSchelling/commentpulse/internal/table"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Steps    []StepResult
	Scrape   *scrape.Result
	Scored   []record.Scored
	Report   *report.Report
}

// Err returns the first step error, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// Pipeline orchestrates the 4-step scrape, score, tabulate, report run.
type Pipeline struct {
	cfg     *config.Config
	scraper *scrape.Scraper
	scorer  sentiment.Scorer
	log     *slog.Logger
}

// New creates a pipeline wired from cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sel := cfg.Site.Selectors
	parser := parse.New(parse.Selectors{
		Article:     sel.Article,
		Title:       sel.Title,
		Description: sel.Description,
		Comment:     sel.Comment,
	})
	scraper := scrape.New(fetch.New(cfg.FetchTimeout(), cfg.Fetch.UserAgent), parser, scrape.Options{
		PagePath: cfg.Site.PagePath,
		MaxPages: cfg.Site.MaxPages,
		Logger:   logger,
	})

	s := cfg.Sentiment
	scorer, err := sentiment.New(sentiment.Options{
		Provider: s.Provider,
		LLM: llm.Options{
			Model:       s.Model,
			OllamaURL:   s.OllamaURL,
			OpenAIModel: s.OpenAIModel,
			APIKeyEnv:   s.APIKeyEnv,
		},
		MaxTokens: s.MaxTokens,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating sentiment scorer: %w", err)
	}

	return NewWithScorer(cfg, scraper, scorer, logger), nil
}

// NewWithScorer creates a pipeline around an existing scraper and scorer.
func NewWithScorer(cfg *config.Config, scraper *scrape.Scraper, scorer sentiment.Scorer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, scraper: scraper, scorer: scorer, log: logger}
}

// Run executes the full pipeline against the configured base URL.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{RunID: uuid.NewString(), Started: time.Now()}
	log := p.log.With("run", r.RunID)
	defer func() { r.Finished = time.Now() }()

	// Step 1: Scrape
	step := p.runScrape(ctx, log, r)
	r.Steps = append(r.Steps, step)

	// Step 2: Score
	step = p.runScore(ctx, log, r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 3+4: Tabulate and report
	steps := p.runTabulate(log, r)
	r.Steps = append(r.Steps, steps...)

	return r
}

func (p *Pipeline) runScrape(ctx context.Context, log *slog.Logger, r *Result) StepResult {
	base := p.cfg.Site.BaseURL
	log.Info("Step 1/4: Scraping listing", "base_url", base)

	res := p.scraper.Scrape(ctx, base)
	r.Scrape = res
	return StepResult{
		Name:    "Scrape",
		Summary: fmt.Sprintf("%d posts from %d pages (%s)", len(res.Records), res.Pages, res.Reason),
		Err:     res.Err,
	}
}

func (p *Pipeline) runScore(ctx context.Context, log *slog.Logger, r *Result) StepResult {
	log.Info("Step 2/4: Scoring comment sentiment", "posts", len(r.Scrape.Records))

	scored, err := sentiment.Aggregate(ctx, p.scorer, r.Scrape.Records)
	if err != nil {
		log.Error("scoring failed", "err", err)
		return StepResult{Name: "Score", Err: err}
	}
	r.Scored = scored

	comments := 0
	for _, s := range scored {
		comments += len(s.CommentSentiments)
	}
	return StepResult{Name: "Score", Summary: fmt.Sprintf("%d comments scored", comments)}
}

func (p *Pipeline) runTabulate(log *slog.Logger, r *Result) []StepResult {
	log.Info("Step 3/4: Loading table")

	t, err := table.Load(r.Scored)
	if err != nil {
		return []StepResult{{Name: "Tabulate", Err: err}}
	}
	defer t.Close()

	n, err := t.Len()
	if err != nil {
		return []StepResult{{Name: "Tabulate", Err: err}}
	}
	steps := []StepResult{{Name: "Tabulate", Summary: fmt.Sprintf("%d rows", n)}}

	log.Info("Step 4/4: Building report")
	rep, err := report.Build(t, p.cfg.Report.Bins)
	if err != nil {
		return append(steps, StepResult{Name: "Report", Err: err})
	}
	rep.Source = p.cfg.Site.BaseURL
	rep.Termination = r.Scrape.Reason.String()
	r.Report = rep

	return append(steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("%d length bins, %d sentiment bins", len(rep.CommentLengths), len(rep.Sentiments)),
	})
}
