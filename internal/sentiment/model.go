package sentiment

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/TobiSchelling/commentpulse/internal/llm"
)

const scorePrompt = `Rate the sentiment polarity of the following user comment.

Use a number between -1.0 (very negative) and 1.0 (very positive); 0.0 means neutral or unclear.

Comment:
%s

Respond with ONLY this JSON:
{"polarity": <number>}`

const maxCommentChars = 2000

// ModelScorer asks an LLM for the polarity of each comment.
type ModelScorer struct {
	provider  llm.Provider
	maxTokens int
}

// NewModelScorer creates a scorer backed by provider.
func NewModelScorer(provider llm.Provider, maxTokens int) *ModelScorer {
	if maxTokens <= 0 {
		maxTokens = 32
	}
	return &ModelScorer{provider: provider, maxTokens: maxTokens}
}

// Score returns the model's polarity, clamped to [-1, 1].
func (m *ModelScorer) Score(ctx context.Context, text string) (float64, error) {
	text = truncate(text, maxCommentChars)

	answer, err := m.provider.Generate(ctx, fmt.Sprintf(scorePrompt, text), m.maxTokens)
	if err != nil {
		return 0, err
	}

	var out struct {
		Polarity *float64 `json:"polarity"`
	}
	if err := llm.DecodeJSON(answer, &out); err != nil {
		return 0, fmt.Errorf("unparseable model answer %q: %w", answer, err)
	}
	if out.Polarity == nil {
		return 0, fmt.Errorf("model answer %q has no polarity", answer)
	}
	return clamp(*out.Polarity), nil
}

// truncate cuts text to at most n bytes without splitting a rune.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n] + "..."
}
