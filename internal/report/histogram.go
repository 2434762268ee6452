package report

import "math"

// DefaultBins matches the bin count used for both charts.
const DefaultBins = 20

// Bin is one equal-width histogram bucket covering [Low, High). The last bin
// also includes High.
type Bin struct {
	Low   float64
	High  float64
	Count int
}

// Histogram buckets values into equal-width bins spanning [min, max].
// When every value is identical a single bin holds them all.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Low: lo, High: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = lo + float64(i+1)*width
	}
	out[bins-1].High = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}
