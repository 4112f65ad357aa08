package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"videoqa/internal/contextutil"
)

const (
	payloadOrdinal = "ordinal"
	payloadText    = "text"

	// Extra candidates fetched so ties at the k boundary can be reordered by ordinal.
	searchOverfetch = 4

	// Slack below the boundary score for the tie scan, so equal scores are never cut by the threshold.
	tieScoreMargin = 1e-6
)

// QdrantStore implements VectorStore using one Qdrant collection per video.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
	}, nil
}

// grpcAddress derives the gRPC host and port from a Qdrant HTTP URL.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	return host, port, nil
}

// PointID returns the deterministic Qdrant point ID for a passage.
func PointID(collection string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(collection+"/"+strconv.Itoa(ordinal))).String()
}

// Replace drops and recreates the collection, then upserts every point and waits for it.
func (s *QdrantStore) Replace(ctx context.Context, collection string, dim int, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if dim <= 0 {
		return fmt.Errorf("dimension must be greater than 0")
	}
	for _, p := range points {
		if len(p.Vec) != dim {
			return fmt.Errorf("%w: point %d has %d components, want %d", ErrDimensionMismatch, p.Ordinal, len(p.Vec), dim)
		}
	}

	if err := s.Drop(ctx, collection); err != nil {
		return err
	}

	logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", dim)
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(collection, p.Ordinal)),
			Vectors: qdrant.NewVectors(p.Vec...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadOrdinal: int64(p.Ordinal),
				payloadText:    p.Text,
			}),
		})
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search queries the collection and reorders the candidates so equal scores rank by ordinal.
// When the candidates still tie at the k boundary past the fetched window, every point
// scoring at least the boundary score is fetched before ranking.
func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	limit := k + searchOverfetch
	results, err := s.query(ctx, collection, query, limit, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", k, "error", err)
		return nil, err
	}
	SortResults(results)

	if tiedPastWindow(results, k, limit) {
		total, err := s.Count(ctx, collection)
		if err != nil {
			return nil, err
		}
		threshold := results[k-1].Score - tieScoreMargin
		logger.DebugContext(ctx, "boundary tie, scanning tied points", "collection", collection, "score", results[k-1].Score)

		results, err = s.query(ctx, collection, query, total, &threshold)
		if err != nil {
			logger.ErrorContext(ctx, "failed to scan tied points", "collection", collection, "error", err)
			return nil, err
		}
		SortResults(results)
	}

	if len(results) > k {
		results = results[:k]
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

func (s *QdrantStore) query(ctx context.Context, collection string, query []float32, limit int, threshold *float32) ([]SearchResult, error) {
	n := uint64(limit)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &n,
		ScoreThreshold: threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, sp := range scoredPoints {
		ordinal, text, err := parsePayload(sp.GetPayload())
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", sp.GetId().GetUuid(), err)
		}
		results = append(results, SearchResult{
			Ordinal: ordinal,
			Text:    text,
			Score:   sp.GetScore(),
		})
	}
	return results, nil
}

// tiedPastWindow reports whether sorted results filled the fetch window and the last
// fetched score equals the k-th, meaning unseen points may share the boundary score.
func tiedPastWindow(results []SearchResult, k, limit int) bool {
	if len(results) < limit || len(results) < k {
		return false
	}
	return results[len(results)-1].Score == results[k-1].Score
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// Drop deletes the collection if it exists.
func (s *QdrantStore) Drop(ctx context.Context, collection string) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "deleted collection", "collection", collection)
	return nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func parsePayload(payload map[string]*qdrant.Value) (int, string, error) {
	ordVal, ok := payload[payloadOrdinal]
	if !ok {
		return 0, "", fmt.Errorf("payload missing %q", payloadOrdinal)
	}
	ordinal, ok := ordVal.GetKind().(*qdrant.Value_IntegerValue)
	if !ok {
		return 0, "", fmt.Errorf("payload %q is not an integer", payloadOrdinal)
	}

	return int(ordinal.IntegerValue), payload[payloadText].GetStringValue(), nil
}
