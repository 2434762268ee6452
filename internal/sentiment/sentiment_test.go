package sentiment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/commentpulse/internal/record"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

// fixedScorer returns canned scores per text and fails on "boom".
type fixedScorer map[string]float64

func (f fixedScorer) Score(_ context.Context, text string) (float64, error) {
	if text == "boom" {
		return 0, errors.New("scorer exploded")
	}
	return f[text], nil
}

func lexicon(t *testing.T) *LexiconScorer {
	t.Helper()
	s, err := NewLexiconScorer()
	require.NoError(t, err)
	return s
}

func score(t *testing.T, s Scorer, text string) float64 {
	t.Helper()
	v, err := s.Score(context.Background(), text)
	require.NoError(t, err)
	return v
}

func TestLexiconPolarityDirection(t *testing.T) {
	s := lexicon(t)

	require.Greater(t, score(t, s, "good"), 0.0)
	require.Less(t, score(t, s, "bad"), 0.0)
	require.Zero(t, score(t, s, "the quarterly report was published on tuesday"))
	require.Zero(t, score(t, s, ""))
}

func TestLexiconModifiers(t *testing.T) {
	s := lexicon(t)
	good := score(t, s, "good")

	require.Greater(t, score(t, s, "very good"), good)
	require.Less(t, score(t, s, "not good"), 0.0)
	require.Less(t, score(t, s, "I don’t like it"), 0.0)
	require.Less(t, score(t, s, "slightly good"), good)
}

func TestLexiconModifiersStayLocal(t *testing.T) {
	s := lexicon(t)

	require.Greater(t, score(t, s, "I did not expect much from this long winding article, but it was great"), 0.0)
	require.Greater(t, score(t, s, "not what I had in mind when I opened the page yet still good"), 0.0)
	require.Equal(t, score(t, s, "good"), score(t, s, "very. good"))
	require.Less(t, score(t, s, "not a good one"), 0.0)
}

func TestLexiconNormalisesCase(t *testing.T) {
	s := lexicon(t)
	require.Equal(t, score(t, s, "great"), score(t, s, "GREAT!!!"))
	require.Equal(t, score(t, s, "great"), score(t, s, "'great'"))
}

func TestLexiconStaysInRange(t *testing.T) {
	s := lexicon(t)
	for _, text := range []string{
		"extremely incredibly absolutely perfect",
		"extremely incredibly absolutely terrible awful horrible",
		"not not not bad",
	} {
		v := score(t, s, text)
		require.GreaterOrEqual(t, v, -1.0, text)
		require.LessOrEqual(t, v, 1.0, text)
	}
}

func TestParseLexiconRejectsEmpty(t *testing.T) {
	_, err := ParseLexicon([]byte("intensifiers: {very: 1.3}\n"))
	require.Error(t, err)
}

func TestModelScorer(t *testing.T) {
	p := &mockProvider{response: "```json\n{\"polarity\": 0.6}\n```"}
	v, err := NewModelScorer(p, 0).Score(context.Background(), "love it")

	require.NoError(t, err)
	require.InDelta(t, 0.6, v, 1e-9)
	require.Len(t, p.prompts, 1)
	require.Contains(t, p.prompts[0], "love it")
}

func TestModelScorerClamps(t *testing.T) {
	v, err := NewModelScorer(&mockProvider{response: `{"polarity": -3}`}, 0).Score(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, -1.0, v)
}

func TestModelScorerTruncatesOnRuneBoundary(t *testing.T) {
	p := &mockProvider{response: `{"polarity": 0}`}
	text := "a" + strings.Repeat("é", 1500)

	_, err := NewModelScorer(p, 0).Score(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, p.prompts, 1)
	require.True(t, utf8.ValidString(p.prompts[0]))
	require.Contains(t, p.prompts[0], "é...")
}

func TestModelScorerFailures(t *testing.T) {
	cases := map[string]*mockProvider{
		"provider error": {err: errors.New("connection refused")},
		"not json":       {response: "I think it is positive"},
		"no polarity":    {response: `{"sentiment": "positive"}`},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewModelScorer(p, 0).Score(context.Background(), "x")
			require.Error(t, err)
		})
	}
}

func TestNewDefaultsToLexicon(t *testing.T) {
	s, err := New(Options{}, nil)
	require.NoError(t, err)
	require.IsType(t, &LexiconScorer{}, s)
}

func TestNewFallsBackWithoutProvider(t *testing.T) {
	t.Setenv("COMMENTPULSE_NO_KEY", "")
	opts := Options{Provider: "openai"}
	opts.LLM.APIKeyEnv = "COMMENTPULSE_NO_KEY"

	s, err := New(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.IsType(t, &LexiconScorer{}, s)
}

func TestAggregateLengthsAndMeans(t *testing.T) {
	scorer := fixedScorer{"a": 0.5, "b": -0.25, "c": 1}
	records := []record.Record{
		{Title: "three", Comments: []string{"a", "b", "c"}},
		{Title: "none", Comments: []string{}},
		{Title: "nil"},
		{Title: "one", Comments: []string{"b"}},
	}

	got, err := Aggregate(context.Background(), scorer, records)
	require.NoError(t, err)
	require.Len(t, got, len(records))

	for i, s := range got {
		require.Equal(t, records[i], s.Record)
		require.Len(t, s.CommentSentiments, len(records[i].Comments))
	}
	require.Equal(t, []float64{0.5, -0.25, 1}, got[0].CommentSentiments)
	require.InDelta(t, (0.5-0.25+1)/3, got[0].AverageSentiment, 1e-9)
	require.Equal(t, 0.0, got[1].AverageSentiment)
	require.Equal(t, 0.0, got[2].AverageSentiment)
	require.Equal(t, -0.25, got[3].AverageSentiment)
}

func TestAggregateScoringFailure(t *testing.T) {
	records := []record.Record{
		{Title: "ok", Comments: []string{"a"}},
		{Title: "bad", Comments: []string{"a", "boom"}},
	}

	got, err := Aggregate(context.Background(), fixedScorer{}, records)
	require.Nil(t, got)

	var se *ScoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "bad", se.Title)
	require.Equal(t, 1, se.Comment)
	require.EqualError(t, se.Unwrap(), "scorer exploded")
}

func TestAggregateGoodBadScenario(t *testing.T) {
	s := lexicon(t)
	records := []record.Record{
		{Title: "A", Description: "about A", Comments: []string{"good", "bad"}},
		{Title: "B", Description: "about B", Comments: []string{}},
	}

	got, err := Aggregate(context.Background(), s, records)
	require.NoError(t, err)

	good, bad := score(t, s, "good"), score(t, s, "bad")
	require.InDelta(t, (good+bad)/2, got[0].AverageSentiment, 1e-9)
	require.Equal(t, 0.0, got[1].AverageSentiment)
}
