package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_manifest_store.go -package=mocks videoqa/internal/storage ManifestStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ManifestStore persists index commit markers.
type ManifestStore interface {
	// Get returns the manifest for videoID, or ErrNotFound.
	Get(ctx context.Context, videoID string) (*IndexManifest, error)
	// Put writes the manifest, replacing any previous one.
	Put(ctx context.Context, m *IndexManifest) error
	// Delete removes the manifest. Deleting a missing manifest is not an error.
	Delete(ctx context.Context, videoID string) error
}

// ManifestRepo implements ManifestStore on SQLite.
type ManifestRepo struct {
	db *sql.DB
}

// NewManifestRepo creates a new ManifestRepo.
func NewManifestRepo(db *sql.DB) *ManifestRepo {
	return &ManifestRepo{db: db}
}

// Get gets the manifest for a video.
func (r *ManifestRepo) Get(ctx context.Context, videoID string) (*IndexManifest, error) {
	var m IndexManifest
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT video_id, collection, backend, dimension, passage_count, checksum, created_at FROM index_manifests WHERE video_id = ?",
		videoID,
	).Scan(&m.VideoID, &m.Collection, &m.Backend, &m.Dimension, &m.PassageCount, &m.Checksum, &createdAtStr)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}

	m.CreatedAt, err = time.Parse(timeLayout, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	return &m, nil
}

// Put inserts or replaces the manifest.
func (r *ManifestRepo) Put(ctx context.Context, m *IndexManifest) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO index_manifests (video_id, collection, backend, dimension, passage_count, checksum, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (video_id) DO UPDATE SET
		 collection = excluded.collection, backend = excluded.backend, dimension = excluded.dimension,
		 passage_count = excluded.passage_count, checksum = excluded.checksum, created_at = excluded.created_at`,
		m.VideoID, m.Collection, m.Backend, m.Dimension, m.PassageCount, m.Checksum, m.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to put manifest: %w", err)
	}

	return nil
}

// Delete removes the manifest for a video.
func (r *ManifestRepo) Delete(ctx context.Context, videoID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM index_manifests WHERE video_id = ?", videoID); err != nil {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	return nil
}
