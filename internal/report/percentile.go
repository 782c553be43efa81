package report

import (
	"math"
	"sort"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// Point is the positive and negative count at one percentile.
type Point struct {
	Percentile float64 `json:"percentile"`
	Positive   float64 `json:"positive"`
	Negative   float64 `json:"negative"`
}

// DefaultPercentiles returns 5, 10, ..., 100.
func DefaultPercentiles() []float64 {
	ps := make([]float64, 0, 20)
	for p := 5; p <= 100; p += 5 {
		ps = append(ps, float64(p))
	}
	return ps
}

// Distribution returns the partition sizes of entries at each percentile in
// ps, interpolating linearly between closest ranks.
func Distribution(entries []dataset.ClassifiedEntry, ps []float64) ([]Point, error) {
	if len(entries) == 0 {
		return nil, dataset.ErrNoEntries
	}

	pos := make([]float64, len(entries))
	neg := make([]float64, len(entries))
	for i := range entries {
		pos[i] = float64(len(entries[i].PositiveInputs))
		neg[i] = float64(len(entries[i].NegativeInputs))
	}
	sort.Float64s(pos)
	sort.Float64s(neg)

	points := make([]Point, 0, len(ps))
	for _, p := range ps {
		points = append(points, Point{
			Percentile: p,
			Positive:   percentile(pos, p),
			Negative:   percentile(neg, p),
		})
	}
	return points, nil
}

// Percentiles reads the document at path and returns its Distribution.
func Percentiles(path string, ps []float64) ([]Point, error) {
	entries, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Distribution(entries, ps)
}

// percentile expects sorted to be ascending and non-empty.
func percentile(sorted []float64, p float64) float64 {
	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
