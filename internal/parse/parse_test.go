package parse

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/commentpulse/internal/record"
)

const twoArticles = `<html><body>
<article>
  <h2>  First post </h2>
  <p class="description">
     Something happened.
  </p>
  <div class="comment"> great read </div>
  <div class="comment">meh</div>
</article>
<article>
  <h3>Second post</h3>
  <p class="description">No one commented.</p>
</article>
</body></html>`

func TestParseExtractsRecordsInOrder(t *testing.T) {
	got, err := New(Selectors{}).Parse(twoArticles)
	require.NoError(t, err)

	want := []record.Record{
		{Title: "First post", Description: "Something happened.", Comments: []string{"great read", "meh"}},
		{Title: "Second post", Description: "No one commented.", Comments: []string{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNoArticles(t *testing.T) {
	got, err := New(Selectors{}).Parse(`<html><body><p>nothing here</p></body></html>`)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestParseMissingDescription(t *testing.T) {
	markup := `<article><h2>ok</h2><p class="description">d</p></article>
<article><h2>broken</h2><div class="comment">x</div></article>`

	got, err := New(Selectors{}).Parse(markup)
	require.Nil(t, got)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, 1, pe.Block)
	require.Equal(t, "description", pe.Field)
}

func TestParseMissingTitle(t *testing.T) {
	_, err := New(Selectors{}).Parse(`<article><p class="description">d</p></article>`)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "title", pe.Field)
	require.Contains(t, err.Error(), "missing title")
}

func TestParseFirstHeadingWins(t *testing.T) {
	markup := `<article><h1>Top</h1><h2>Sub</h2><p class="description">d</p></article>`
	got, err := New(Selectors{}).Parse(markup)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Top", got[0].Title)
}

func TestParseCustomSelectors(t *testing.T) {
	markup := `<div class="post"><span class="t">Custom</span><em>desc</em><li class="c">a</li><li class="c">b</li></div>`
	p := New(Selectors{Article: "div.post", Title: "span.t", Description: "em", Comment: "li.c"})

	got, err := p.Parse(markup)
	require.NoError(t, err)
	require.Equal(t, []record.Record{{Title: "Custom", Description: "desc", Comments: []string{"a", "b"}}}, got)
}
