// Package index builds, persists, loads and searches the per-video embedding index.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"videoqa/internal/contextutil"
	"videoqa/internal/domain"
	"videoqa/internal/llm"
	"videoqa/internal/storage"
	"videoqa/internal/vectorstore"
)

var (
	// ErrIndexNotFound is returned by Load when no committed index exists for a video.
	ErrIndexNotFound = domain.ErrIndexNotFound

	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = vectorstore.ErrDimensionMismatch
)

// DefaultK is the number of passages returned by a search when the caller does not choose.
const DefaultK = 4

var collectionSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CollectionName derives the storage location of a video's index from its ID alone.
func CollectionName(videoID string) string {
	if collectionSafe.MatchString(videoID) {
		return "video_" + videoID
	}
	sum := sha256.Sum256([]byte(videoID))
	return "video_x" + hex.EncodeToString(sum[:12])
}

// Index is the searchable vector index of one video.
// A freshly built index carries its vectors in memory; a loaded index searches the store.
type Index struct {
	VideoID    string
	Collection string
	Dimension  int
	Passages   []domain.Passage
	Count      int
	Checksum   string

	vectors [][]float32
}

// Hit is a passage returned by Search with its similarity score.
type Hit struct {
	Passage domain.Passage
	Score   float32
}

// Options configures a Manager.
type Options struct {
	Backend   string // recorded in the manifest
	Dimension int    // required vector size
	BatchSize int    // texts per embedding call; <= 0 embeds everything at once
}

// Manager builds and serves indexes using one embedder for both passages and queries.
type Manager struct {
	embedder  llm.Embedder
	store     vectorstore.VectorStore
	manifests storage.ManifestStore
	opts      Options
}

// NewManager creates a new index manager.
func NewManager(embedder llm.Embedder, store vectorstore.VectorStore, manifests storage.ManifestStore, opts Options) *Manager {
	return &Manager{
		embedder:  embedder,
		store:     store,
		manifests: manifests,
		opts:      opts,
	}
}

// Checksum hashes the ordered passage texts.
func Checksum(passages []domain.Passage) string {
	h := sha256.New()
	for _, p := range passages {
		_, _ = fmt.Fprintf(h, "%d:%d:", p.Ordinal, len(p.Text))
		_, _ = h.Write([]byte(p.Text))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Build embeds every passage and returns an in-memory index.
// Any embedding failure aborts the build.
func (m *Manager) Build(ctx context.Context, videoID string, passages []domain.Passage) (*Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(passages) == 0 {
		return nil, fmt.Errorf("no passages to index")
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	batch := m.opts.BatchSize
	if batch <= 0 {
		batch = len(texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		end := min(start+batch, len(texts))

		embedded, err := m.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed passages %d-%d: %w", start, end-1, err)
		}
		if len(embedded) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", end-start, len(embedded))
		}
		vectors = append(vectors, embedded...)
	}

	for i, v := range vectors {
		if len(v) != m.opts.Dimension {
			return nil, fmt.Errorf("%w: passage %d has %d components, want %d", ErrDimensionMismatch, passages[i].Ordinal, len(v), m.opts.Dimension)
		}
	}

	idx := &Index{
		VideoID:    videoID,
		Collection: CollectionName(videoID),
		Dimension:  m.opts.Dimension,
		Passages:   passages,
		Count:      len(passages),
		Checksum:   Checksum(passages),
		vectors:    vectors,
	}

	logger.InfoContext(ctx, "index built", "collection", idx.Collection, "passages", idx.Count, "dimension", idx.Dimension)
	return idx, nil
}

// Invalidate removes the commit marker so readers stop trusting the stored index.
func (m *Manager) Invalidate(ctx context.Context, videoID string) error {
	return m.manifests.Delete(ctx, videoID)
}

// Persist writes the index, overwriting any previous one for the same video.
// The manifest is removed first and written last, so a crash in between leaves no committed index.
func (m *Manager) Persist(ctx context.Context, idx *Index) error {
	logger := contextutil.LoggerFromContext(ctx)

	if idx.vectors == nil {
		return fmt.Errorf("index for %s has no vectors to persist", idx.VideoID)
	}

	if err := m.manifests.Delete(ctx, idx.VideoID); err != nil {
		return fmt.Errorf("failed to invalidate manifest: %w", err)
	}

	points := make([]vectorstore.Point, len(idx.Passages))
	for i, p := range idx.Passages {
		points[i] = vectorstore.Point{
			Ordinal: p.Ordinal,
			Text:    p.Text,
			Vec:     idx.vectors[i],
		}
	}

	if err := m.store.Replace(ctx, idx.Collection, idx.Dimension, points); err != nil {
		return fmt.Errorf("failed to store vectors: %w", err)
	}

	manifest := &storage.IndexManifest{
		VideoID:      idx.VideoID,
		Collection:   idx.Collection,
		Backend:      m.opts.Backend,
		Dimension:    idx.Dimension,
		PassageCount: idx.Count,
		Checksum:     idx.Checksum,
	}
	if err := m.manifests.Put(ctx, manifest); err != nil {
		return fmt.Errorf("failed to commit manifest: %w", err)
	}

	logger.InfoContext(ctx, "index persisted", "collection", idx.Collection, "passages", idx.Count, "backend", m.opts.Backend)
	return nil
}

// Load returns the committed index of a video.
// It fails with ErrIndexNotFound when no manifest exists or the stored collection does not match it.
func (m *Manager) Load(ctx context.Context, videoID string) (*Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	manifest, err := m.manifests.Get(ctx, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	if manifest.Collection != CollectionName(videoID) {
		logger.WarnContext(ctx, "manifest collection mismatch", "manifest_collection", manifest.Collection)
		return nil, fmt.Errorf("%w: %s: manifest points at %s", ErrIndexNotFound, videoID, manifest.Collection)
	}

	count, err := m.store.Count(ctx, manifest.Collection)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		logger.WarnContext(ctx, "manifest without collection", "collection", manifest.Collection)
		return nil, fmt.Errorf("%w: %s: collection missing", ErrIndexNotFound, videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to count stored vectors: %w", err)
	}
	if count != manifest.PassageCount {
		logger.WarnContext(ctx, "incomplete index", "collection", manifest.Collection, "stored", count, "committed", manifest.PassageCount)
		return nil, fmt.Errorf("%w: %s: %d of %d passages stored", ErrIndexNotFound, videoID, count, manifest.PassageCount)
	}

	return &Index{
		VideoID:    videoID,
		Collection: manifest.Collection,
		Dimension:  manifest.Dimension,
		Count:      manifest.PassageCount,
		Checksum:   manifest.Checksum,
	}, nil
}

// Search embeds query with the manager's embedder and returns the k most similar passages,
// ordered by descending cosine similarity with ties broken by ordinal.
func (m *Manager) Search(ctx context.Context, idx *Index, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = DefaultK
	}

	embedded, err := m.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embedded) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: expected 1, got %d", len(embedded))
	}
	qv := embedded[0]
	if len(qv) != idx.Dimension {
		return nil, fmt.Errorf("%w: query has %d components, index has %d", ErrDimensionMismatch, len(qv), idx.Dimension)
	}

	var results []vectorstore.SearchResult
	if idx.vectors != nil {
		points := make([]vectorstore.Point, len(idx.Passages))
		for i, p := range idx.Passages {
			points[i] = vectorstore.Point{Ordinal: p.Ordinal, Text: p.Text, Vec: idx.vectors[i]}
		}
		results, err = vectorstore.Rank(qv, points, k)
	} else {
		results, err = m.store.Search(ctx, idx.Collection, qv, k)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Passage: domain.Passage{VideoID: idx.VideoID, Ordinal: r.Ordinal, Text: r.Text},
			Score:   r.Score,
		}
	}
	return hits, nil
}
