package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"videoqa/internal/contextutil"
)

// SQLiteStore implements VectorStore on the application's SQLite database.
// Vectors are stored as little-endian float32 BLOBs and searched exhaustively.
// The tables are created by storage.Migrate.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Replace swaps the collection content in a single transaction.
func (s *SQLiteStore) Replace(ctx context.Context, collection string, dim int, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if dim <= 0 {
		return fmt.Errorf("dimension must be greater than 0")
	}
	for _, p := range points {
		if len(p.Vec) != dim {
			return fmt.Errorf("%w: point %d has %d components, want %d", ErrDimensionMismatch, p.Ordinal, len(p.Vec), dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Cascades to passages.
	if _, err := tx.ExecContext(ctx, "DELETE FROM vector_collections WHERE name = ?", collection); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO vector_collections (name, dimension) VALUES (?, ?)", collection, dim); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO passages (collection, ordinal, text, vector) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, collection, p.Ordinal, p.Text, encodeVector(p.Vec)); err != nil {
			return fmt.Errorf("failed to insert point %d: %w", p.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.ErrorContext(ctx, "failed to commit collection", "collection", collection, "error", err)
		return fmt.Errorf("failed to commit collection: %w", err)
	}

	logger.InfoContext(ctx, "replaced collection", "collection", collection, "count", len(points), "dimension", dim)
	return nil
}

// Search ranks every point of the collection against query.
func (s *SQLiteStore) Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	dim, err := s.dimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(query) != dim {
		return nil, fmt.Errorf("%w: query has %d components, collection has %d", ErrDimensionMismatch, len(query), dim)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT ordinal, text, vector FROM passages WHERE collection = ? ORDER BY ordinal", collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var points []Point
	for rows.Next() {
		var p Point
		var blob []byte
		if err := rows.Scan(&p.Ordinal, &p.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		p.Vec, err = decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("passage %d: %w", p.Ordinal, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passages: %w", err)
	}

	results, err := Rank(query, points, k)
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// Count returns the number of stored points.
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.dimension(ctx, collection); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages WHERE collection = ?", collection).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return count, nil
}

// CollectionExists checks if a collection exists.
func (s *SQLiteStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := s.dimension(ctx, collection)
	if errors.Is(err, ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Drop removes a collection and its passages.
func (s *SQLiteStore) Drop(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vector_collections WHERE name = ?", collection); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

func (s *SQLiteStore) dimension(ctx context.Context, collection string) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, "SELECT dimension FROM vector_collections WHERE name = ?", collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query collection: %w", err)
	}
	return dim, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob has %d bytes, not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
