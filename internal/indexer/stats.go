package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"videoqa/internal/domain"
)

const (
	// ChunkerVersion is the version identifier for the chunker implementation.
	// Update this when chunking logic changes significantly.
	ChunkerVersion = "window-v1"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// PassageStats describes the passages produced for one video.
type PassageStats struct {
	Passages       int        `json:"passages"`
	TotalRunes     int        `json:"total_runes"`
	TokenStats     TokenStats `json:"token_stats"`
	ChunkerVersion string     `json:"chunker_version"`
	IndexVersion   string     `json:"index_version"`
}

// TokenStats contains statistics about estimated token counts per passage.
type TokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// ComputePassageStats summarizes passage sizes and derives an index version from
// the chunker version, the embedding model, and the chunking parameters.
func ComputePassageStats(passages []domain.Passage, embeddingModel string, size, overlap int) PassageStats {
	stats := PassageStats{
		Passages:       len(passages),
		ChunkerVersion: ChunkerVersion,
	}

	tokenCounts := make([]int, 0, len(passages))
	for _, p := range passages {
		runeCount := utf8.RuneCountInString(p.Text)
		stats.TotalRunes += runeCount

		tokenCount := int(math.Round(float64(runeCount) / TokensPerRune))
		if tokenCount < 1 {
			tokenCount = 1
		}
		tokenCounts = append(tokenCounts, tokenCount)
	}
	stats.TokenStats = computeTokenStats(tokenCounts)

	versionInput := fmt.Sprintf("%s|%s|size=%d|overlap=%d", ChunkerVersion, embeddingModel, size, overlap)
	hash := sha256.Sum256([]byte(versionInput))
	stats.IndexVersion = hex.EncodeToString(hash[:])[:16]

	return stats
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) TokenStats {
	if len(tokenCounts) == 0 {
		return TokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	if p95Index < 0 {
		p95Index = 0
	}

	return TokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
