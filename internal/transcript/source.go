// Package transcript fetches timed caption tracks for videos.
package transcript

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_source.go -package=mocks videoqa/internal/transcript Source

import (
	"context"
	"errors"

	"videoqa/internal/domain"
)

// DefaultLanguages are the language hints used when none are configured.
var DefaultLanguages = []string{"en"}

// ErrNoTranscript is returned when no caption track matches the requested languages
// or the matching track has no text.
var ErrNoTranscript = errors.New("no transcript available")

// Source retrieves the transcript of a video.
type Source interface {
	// Fetch returns the first available transcript in order of the language hints.
	Fetch(ctx context.Context, videoID string, languages []string) (*domain.Transcript, error)
}
