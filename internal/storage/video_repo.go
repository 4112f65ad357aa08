package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_video_store.go -package=mocks videoqa/internal/storage VideoStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"videoqa/internal/domain"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// VideoStore persists the per-video transcript and summary record.
type VideoStore interface {
	// Upsert writes the record, replacing any previous record for the same video.
	Upsert(ctx context.Context, rec *domain.VideoRecord) error
	// Get returns the record for videoID.
	// Returns ErrNotFound if the video was never ingested and an error wrapping
	// domain.ErrRecordCorrupt if the stored record cannot be used.
	Get(ctx context.Context, videoID string) (*domain.VideoRecord, error)
}

// VideoRepo provides methods for video record operations.
// It implements the VideoStore interface.
type VideoRepo struct {
	db *sql.DB
}

// NewVideoRepo creates a new VideoRepo.
func NewVideoRepo(db *sql.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

// Upsert inserts a new record or overwrites the existing one.
// The summary is stored verbatim.
func (r *VideoRepo) Upsert(ctx context.Context, rec *domain.VideoRecord) error {
	if rec.VideoID == "" {
		return fmt.Errorf("video id is required")
	}

	segments := rec.Segments
	if segments == nil {
		segments = []domain.Segment{}
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to marshal segments: %w", err)
	}

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO videos (video_id, language, segments_json, transcript, summary, passage_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (video_id) DO UPDATE SET
		 language = excluded.language, segments_json = excluded.segments_json,
		 transcript = excluded.transcript, summary = excluded.summary,
		 passage_count = excluded.passage_count, updated_at = excluded.updated_at`,
		rec.VideoID, rec.Language, string(segmentsJSON), rec.Transcript, rec.Summary, rec.PassageCount,
		rec.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert video: %w", err)
	}

	return nil
}

// Get gets a video record by ID.
func (r *VideoRepo) Get(ctx context.Context, videoID string) (*domain.VideoRecord, error) {
	var rec domain.VideoRecord
	var segmentsJSON, updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT video_id, language, segments_json, transcript, summary, passage_count, updated_at FROM videos WHERE video_id = ?",
		videoID,
	).Scan(&rec.VideoID, &rec.Language, &segmentsJSON, &rec.Transcript, &rec.Summary, &rec.PassageCount, &updatedAtStr)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query video: %w", err)
	}

	if err := json.Unmarshal([]byte(segmentsJSON), &rec.Segments); err != nil {
		return nil, fmt.Errorf("%w: segments: %v", domain.ErrRecordCorrupt, err)
	}

	if strings.TrimSpace(rec.Summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", domain.ErrRecordCorrupt)
	}

	rec.UpdatedAt, err = time.Parse(timeLayout, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: updated_at: %v", domain.ErrRecordCorrupt, err)
	}

	return &rec, nil
}
