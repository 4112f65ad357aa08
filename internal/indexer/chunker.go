package indexer

import (
	"errors"
	"fmt"
	"strings"

	"videoqa/internal/domain"
)

const (
	// DefaultChunkSize is the passage length in runes.
	DefaultChunkSize = 250
	// DefaultChunkOverlap is the number of runes shared by consecutive passages.
	DefaultChunkOverlap = 40
)

var (
	// ErrInvalidChunkParams is returned for a size <= 0, a negative overlap, or overlap >= size.
	ErrInvalidChunkParams = errors.New("invalid chunk parameters")

	// ErrEmptyText is returned when there is nothing to chunk.
	ErrEmptyText = errors.New("text is empty")
)

// Chunker splits flattened transcript text into fixed-size overlapping passages.
// Lengths are measured in runes so multi-byte text is never cut mid-character.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker producing passages of size runes that overlap by overlap runes.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkParams, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the passage length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into passages numbered from 0.
//
// Passage i starts at rune i*(size-overlap); every passage except the last is exactly
// size runes long and the last one ends at the end of the text. Text no longer than
// size yields a single passage equal to the whole text.
func (c *Chunker) Chunk(videoID, text string) ([]domain.Passage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	runes := []rune(text)
	step := c.size - c.overlap

	var passages []domain.Passage
	for start := 0; ; start += step {
		end := min(start+c.size, len(runes))
		passages = append(passages, domain.Passage{
			VideoID: videoID,
			Ordinal: len(passages),
			Text:    string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}

	return passages, nil
}
