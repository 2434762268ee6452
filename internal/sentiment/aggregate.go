package sentiment

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/commentpulse/internal/record"
)

// ScoreError reports the comment that could not be scored.
type ScoreError struct {
	Title   string
	Comment int
	Err     error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("scoring comment %d of %q: %v", e.Comment, e.Title, e.Err)
}

func (e *ScoreError) Unwrap() error { return e.Err }

// Aggregate scores every comment of every record, preserving order, and
// attaches the per-record mean (0 for records without comments). The first
// scoring error aborts the call; no partially scored records are returned.
func Aggregate(ctx context.Context, scorer Scorer, records []record.Record) ([]record.Scored, error) {
	out := make([]record.Scored, 0, len(records))
	for _, rec := range records {
		scores := make([]float64, len(rec.Comments))
		for i, c := range rec.Comments {
			v, err := scorer.Score(ctx, c)
			if err != nil {
				return nil, &ScoreError{Title: rec.Title, Comment: i, Err: err}
			}
			scores[i] = v
		}
		out = append(out, record.Scored{
			Record:            rec,
			CommentSentiments: scores,
			AverageSentiment:  record.Mean(scores),
		})
	}
	return out, nil
}
