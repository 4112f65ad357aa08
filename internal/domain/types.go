package domain

import (
	"strings"
	"time"
)

// Segment is one timed line of a transcript.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // Seconds from the start of the video
	Duration float64 `json:"duration"` // Seconds
}

// Transcript is the ordered caption track of a single video.
type Transcript struct {
	VideoID  string
	Language string
	Segments []Segment
}

// Text flattens the transcript into a single blob, joining segments with a space.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

// Passage is a contiguous slice of the flattened transcript.
type Passage struct {
	VideoID string `json:"video_id"`
	Ordinal int    `json:"ordinal"` // Position within the transcript (starts at 0)
	Text    string `json:"text"`
}

// VideoRecord aggregates the persisted transcript and summary for one video.
type VideoRecord struct {
	VideoID      string
	Language     string
	Segments     []Segment
	Transcript   string
	Summary      string
	PassageCount int
	UpdatedAt    time.Time
}

// Mode reports which strategy produced an answer.
type Mode string

const (
	// ModeSummary means the cached summary was returned as-is.
	ModeSummary Mode = "summary"
	// ModeRetrieval means the answer was generated from retrieved passages.
	ModeRetrieval Mode = "retrieval"
)
