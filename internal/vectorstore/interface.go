package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks videoqa/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

var (
	// ErrCollectionNotFound is returned when a collection has never been written or was dropped.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch is returned when a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Point is one passage vector stored in a collection.
type Point struct {
	Ordinal int
	Text    string
	Vec     []float32
}

// SearchResult is a scored passage returned by Search.
type SearchResult struct {
	Ordinal int
	Text    string
	Score   float32
}

// VectorStore persists one collection of passage vectors per video.
type VectorStore interface {
	// Replace atomically swaps the collection's content for points.
	// All points must have exactly dim components.
	Replace(ctx context.Context, collection string, dim int, points []Point) error

	// Search returns up to k points ranked by descending cosine similarity,
	// ties broken by ascending ordinal.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Count returns the number of points stored in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// CollectionExists reports whether the collection holds a replaced set of points.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Drop removes the collection. Dropping a missing collection is not an error.
	Drop(ctx context.Context, collection string) error
}
