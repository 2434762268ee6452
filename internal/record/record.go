package record

// Record is one article extracted from a listing page.
type Record struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Comments    []string `json:"comments"`
}

// Scored is a Record with the sentiment of each comment attached.
// len(CommentSentiments) always equals len(Comments).
type Scored struct {
	Record
	CommentSentiments []float64 `json:"comment_sentiments"`
	AverageSentiment  float64   `json:"average_sentiment"`
}

// Mean returns the arithmetic mean of scores, or 0 for an empty slice.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
