package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"videoqa/internal/domain"
	"videoqa/internal/llm/mocks"
	"videoqa/internal/storage"
	storage_mocks "videoqa/internal/storage/mocks"
	"videoqa/internal/vectorstore"
	vectorstore_mocks "videoqa/internal/vectorstore/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var vocabulary = []string{"cat", "dog", "bird", "fish"}

// bagOfWords embeds a text as keyword counts over vocabulary.
func bagOfWords(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(vocabulary))
		lower := strings.ToLower(text)
		for j, word := range vocabulary {
			vec[j] = float32(strings.Count(lower, word))
		}
		out[i] = vec
	}
	return out, nil
}

func testPassages(videoID string, texts ...string) []domain.Passage {
	passages := make([]domain.Passage, len(texts))
	for i, text := range texts {
		passages[i] = domain.Passage{VideoID: videoID, Ordinal: i, Text: text}
	}
	return passages
}

type sqliteDeps struct {
	store     *vectorstore.SQLiteStore
	manifests *storage.ManifestRepo
}

func newSQLiteDeps(t *testing.T) sqliteDeps {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("storage.Migrate() error = %v", err)
	}
	return sqliteDeps{
		store:     vectorstore.NewSQLiteStore(db),
		manifests: storage.NewManifestRepo(db),
	}
}

func TestCollectionName(t *testing.T) {
	if got := CollectionName("dQw4w9WgXcQ"); got != "video_dQw4w9WgXcQ" {
		t.Errorf("CollectionName() = %q, want video_dQw4w9WgXcQ", got)
	}

	odd := CollectionName("a/b c")
	if odd != CollectionName("a/b c") {
		t.Error("CollectionName() should be deterministic")
	}
	if strings.ContainsAny(odd, "/ ") {
		t.Errorf("CollectionName() = %q contains unsafe characters", odd)
	}
	if odd == CollectionName("a/b d") {
		t.Error("CollectionName() should differ for different IDs")
	}
}

func TestManager_Build(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)

	// Three passages in batches of two: two embedding calls.
	embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"cat", "dog"}).DoAndReturn(bagOfWords)
	embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"bird"}).DoAndReturn(bagOfWords)

	m := NewManager(embedder, nil, nil, Options{Dimension: 4, BatchSize: 2})
	idx, err := m.Build(context.Background(), "v", testPassages("v", "cat", "dog", "bird"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if idx.Count != 3 || len(idx.vectors) != 3 {
		t.Errorf("Build() count = %d, vectors = %d; want 3, 3", idx.Count, len(idx.vectors))
	}
	if idx.Collection != "video_v" {
		t.Errorf("Build() collection = %q", idx.Collection)
	}
	if idx.Checksum == "" {
		t.Error("Build() checksum should be set")
	}
}

func TestManager_BuildErrors(t *testing.T) {
	tests := []struct {
		name     string
		passages []domain.Passage
		setup    func(e *mocks.MockEmbedder)
		wantIs   error
	}{
		{
			name:     "no passages",
			passages: nil,
			setup:    func(e *mocks.MockEmbedder) {},
		},
		{
			name:     "embedder fails",
			passages: testPassages("v", "cat"),
			setup: func(e *mocks.MockEmbedder) {
				e.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("provider down"))
			},
		},
		{
			name:     "count mismatch",
			passages: testPassages("v", "cat", "dog"),
			setup: func(e *mocks.MockEmbedder) {
				e.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0, 0}}, nil)
			},
		},
		{
			name:     "wrong dimension",
			passages: testPassages("v", "cat"),
			setup: func(e *mocks.MockEmbedder) {
				e.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)
			},
			wantIs: ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			embedder := mocks.NewMockEmbedder(ctrl)
			tt.setup(embedder)

			m := NewManager(embedder, nil, nil, Options{Dimension: 4})
			_, err := m.Build(context.Background(), "v", tt.passages)
			if err == nil {
				t.Fatal("Build() expected error")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestManager_PersistLoadRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(bagOfWords).AnyTimes()

	deps := newSQLiteDeps(t)
	m := NewManager(embedder, deps.store, deps.manifests, Options{Backend: "sqlite", Dimension: 4})
	ctx := context.Background()

	passages := testPassages("v",
		"the cat sat",
		"a dog ran",
		"cat and dog",
		"a bird flew",
		"fish swim",
		"another cat",
	)
	built, err := m.Build(ctx, "v", passages)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := m.Persist(ctx, built); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	loaded, err := m.Load(ctx, "v")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Count != len(passages) || loaded.Dimension != 4 || loaded.Checksum != built.Checksum {
		t.Errorf("Load() = %+v", loaded)
	}

	for _, q := range []string{"cat", "dog", "tell me about the cat and the dog", "bird"} {
		fromMemory, err := m.Search(ctx, built, q, DefaultK)
		if err != nil {
			t.Fatalf("Search(built, %q) error = %v", q, err)
		}
		fromStore, err := m.Search(ctx, loaded, q, DefaultK)
		if err != nil {
			t.Fatalf("Search(loaded, %q) error = %v", q, err)
		}
		if len(fromMemory) != len(fromStore) {
			t.Fatalf("query %q: %d in-memory hits, %d stored hits", q, len(fromMemory), len(fromStore))
		}
		for i := range fromMemory {
			if fromMemory[i] != fromStore[i] {
				t.Errorf("query %q hit %d: in-memory %+v, stored %+v", q, i, fromMemory[i], fromStore[i])
			}
		}
	}
}

func TestManager_SearchOrdering(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(bagOfWords).AnyTimes()

	m := NewManager(embedder, nil, nil, Options{Dimension: 4})
	ctx := context.Background()

	idx, err := m.Build(ctx, "v", testPassages("v", "dog", "cat one", "bird", "cat two", "cat three", "cat four"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	hits, err := m.Search(ctx, idx, "cat", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != DefaultK {
		t.Fatalf("Search() returned %d hits, want %d", len(hits), DefaultK)
	}

	// All cat passages tie; earlier ordinals win.
	want := []int{1, 3, 4, 5}
	for i, ord := range want {
		if hits[i].Passage.Ordinal != ord {
			t.Errorf("hit %d ordinal = %d, want %d", i, hits[i].Passage.Ordinal, ord)
		}
		if hits[i].Passage.VideoID != "v" {
			t.Errorf("hit %d video = %q, want v", i, hits[i].Passage.VideoID)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not in descending score order at %d", i)
		}
	}
}

func TestManager_SearchDimensionMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)

	m := NewManager(embedder, nil, nil, Options{Dimension: 4})
	idx := &Index{VideoID: "v", Collection: "video_v", Dimension: 4}

	_, err := m.Search(context.Background(), idx, "cat", 4)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestManager_LoadNotFound(t *testing.T) {
	deps := newSQLiteDeps(t)
	m := NewManager(nil, deps.store, deps.manifests, Options{Dimension: 4})

	_, err := m.Load(context.Background(), "never-ingested")
	if !errors.Is(err, ErrIndexNotFound) || !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("Load() error = %v, want ErrIndexNotFound", err)
	}
}

func TestManager_LoadDetectsIncompleteWrite(t *testing.T) {
	deps := newSQLiteDeps(t)
	m := NewManager(nil, deps.store, deps.manifests, Options{Dimension: 2})
	ctx := context.Background()

	// Collection holds 1 point but the manifest claims 3.
	if err := deps.store.Replace(ctx, "video_v", 2, []vectorstore.Point{{Ordinal: 0, Text: "x", Vec: []float32{1, 0}}}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := deps.manifests.Put(ctx, &storage.IndexManifest{VideoID: "v", Collection: "video_v", Backend: "sqlite", Dimension: 2, PassageCount: 3, Checksum: "c"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := m.Load(ctx, "v"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Load() error = %v, want ErrIndexNotFound", err)
	}

	// Manifest present but collection gone.
	if err := deps.store.Drop(ctx, "video_v"); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if _, err := m.Load(ctx, "v"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Load() after drop error = %v, want ErrIndexNotFound", err)
	}
}

func TestManager_PersistFailureLeavesNoManifest(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	manifests := storage_mocks.NewMockManifestStore(ctrl)

	gomock.InOrder(
		manifests.EXPECT().Delete(gomock.Any(), "v").Return(nil),
		store.EXPECT().Replace(gomock.Any(), "video_v", 2, gomock.Len(1)).Return(errors.New("disk full")),
	)
	// No Put expected: the commit marker must not be written.

	m := NewManager(nil, store, manifests, Options{Backend: "sqlite", Dimension: 2})
	idx := &Index{
		VideoID:    "v",
		Collection: "video_v",
		Dimension:  2,
		Passages:   testPassages("v", "x"),
		Count:      1,
		vectors:    [][]float32{{1, 0}},
	}

	if err := m.Persist(context.Background(), idx); err == nil {
		t.Error("Persist() expected error")
	}
}

func TestManager_PersistWritesManifestLast(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	manifests := storage_mocks.NewMockManifestStore(ctrl)

	gomock.InOrder(
		manifests.EXPECT().Delete(gomock.Any(), "v").Return(nil),
		store.EXPECT().Replace(gomock.Any(), "video_v", 2, gomock.Len(2)).Return(nil),
		manifests.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *storage.IndexManifest) error {
			if m.PassageCount != 2 || m.Dimension != 2 || m.Backend != "qdrant" || m.Collection != "video_v" {
				t.Errorf("Put() manifest = %+v", m)
			}
			return nil
		}),
	)

	m := NewManager(nil, store, manifests, Options{Backend: "qdrant", Dimension: 2})
	passages := testPassages("v", "x", "y")
	idx := &Index{
		VideoID:    "v",
		Collection: "video_v",
		Dimension:  2,
		Passages:   passages,
		Count:      2,
		Checksum:   Checksum(passages),
		vectors:    [][]float32{{1, 0}, {0, 1}},
	}

	if err := m.Persist(context.Background(), idx); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum(testPassages("v", "ab", "c"))
	b := Checksum(testPassages("v", "a", "bc"))
	if a == b {
		t.Error("Checksum() should depend on passage boundaries")
	}
	if a != Checksum(testPassages("v", "ab", "c")) {
		t.Error("Checksum() should be deterministic")
	}
}
