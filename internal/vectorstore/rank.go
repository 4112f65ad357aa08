package vectorstore

import (
	"fmt"
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b. Zero vectors score 0.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Rank scores points against query and returns the top k, ordered by
// descending score then ascending ordinal.
func Rank(query []float32, points []Point, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		if len(p.Vec) != len(query) {
			return nil, fmt.Errorf("%w: query has %d components, point %d has %d", ErrDimensionMismatch, len(query), p.Ordinal, len(p.Vec))
		}
		results = append(results, SearchResult{
			Ordinal: p.Ordinal,
			Text:    p.Text,
			Score:   Cosine(query, p.Vec),
		})
	}

	SortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// SortResults orders results by descending score, then ascending ordinal.
func SortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ordinal < results[j].Ordinal
	})
}
