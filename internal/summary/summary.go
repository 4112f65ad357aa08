// Package summary produces and parses the cached bullet-point summary of a transcript.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"videoqa/internal/contextutil"
	"videoqa/internal/llm"
)

// DefaultMaxChars is how many runes of the flattened transcript are summarized.
const DefaultMaxChars = 20000

// ErrEmptySummary is returned when the model replies with blank text.
var ErrEmptySummary = errors.New("model returned an empty summary")

const promptTemplate = `Summarize the following YouTube transcript (first 20k characters only)
in 10–20 bullet points:

%s
`

// Summarizer generates a summary from the head of a transcript with one generation call.
type Summarizer struct {
	generator llm.Generator
	maxChars  int
}

// NewSummarizer creates a summarizer. maxChars <= 0 selects DefaultMaxChars.
func NewSummarizer(generator llm.Generator, maxChars int) *Summarizer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Summarizer{generator: generator, maxChars: maxChars}
}

// Prompt returns the summarization prompt for transcript, truncated to the first maxChars runes.
func (s *Summarizer) Prompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, Head(transcript, s.maxChars))
}

// Summarize returns the model's summary verbatim.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	out, err := s.generator.Generate(ctx, s.Prompt(transcript))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptySummary
	}

	logger.DebugContext(ctx, "summary generated", "chars", len(out))
	return out, nil
}

// Head returns the first n runes of s.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
