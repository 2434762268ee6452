package sentiment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/TobiSchelling/commentpulse/internal/llm"
)

// Scorer maps a text to a polarity in [-1, 1]; 0 is neutral or undecided.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Options selects a scorer implementation.
type Options struct {
	Provider  string // "lexicon" (default), "ollama" or "openai"
	LLM       llm.Options
	MaxTokens int
}

// New builds the scorer named by opts.Provider. When an LLM backend is asked
// for but cannot be reached, the lexicon scorer is used instead.
func New(opts Options, logger *slog.Logger) (Scorer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(opts.Provider) {
	case "", "lexicon":
		return NewLexiconScorer()
	}

	llmOpts := opts.LLM
	llmOpts.Provider = opts.Provider
	if provider := llm.CreateProvider(llmOpts, logger); provider != nil {
		return NewModelScorer(provider, opts.MaxTokens), nil
	}

	logger.Warn("falling back to lexicon sentiment scorer", "requested", opts.Provider)
	return NewLexiconScorer()
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
