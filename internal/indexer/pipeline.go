package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingester.go -package=mocks videoqa/internal/indexer Ingester

import (
	"context"
	"errors"
	"strings"
	"time"

	"videoqa/internal/contextutil"
	"videoqa/internal/domain"
	"videoqa/internal/index"
	"videoqa/internal/lease"
	"videoqa/internal/storage"
	"videoqa/internal/summary"
	"videoqa/internal/transcript"
)

// CompletedMessage is reported in every successful IngestResult.
const CompletedMessage = "Processing complete"

// IngestResult describes a completed ingestion.
type IngestResult struct {
	VideoID      string       `json:"video_id"`
	Message      string       `json:"message"`
	Language     string       `json:"language"`
	PassageCount int          `json:"chunks"`
	Summary      string       `json:"summary"`
	Points       []string     `json:"points,omitempty"`
	Stats        PassageStats `json:"stats"`
}

// Ingester runs the ingestion pipeline for one video.
type Ingester interface {
	Ingest(ctx context.Context, videoID string) (*IngestResult, error)
}

// Options configures a Pipeline.
type Options struct {
	Languages      []string // transcript language hints, in preference order
	EmbeddingModel string   // recorded in passage stats
}

// Pipeline turns a video ID into a persisted summary and embedding index.
type Pipeline struct {
	source     transcript.Source
	summarizer *summary.Summarizer
	chunker    *Chunker
	indexes    *index.Manager
	videos     storage.VideoStore
	locker     lease.Locker
	opts       Options
}

// NewPipeline creates a new ingestion pipeline.
// A nil locker leaves concurrent ingestion of the same video uncoordinated.
func NewPipeline(
	source transcript.Source,
	summarizer *summary.Summarizer,
	chunker *Chunker,
	indexes *index.Manager,
	videos storage.VideoStore,
	locker lease.Locker,
	opts Options,
) *Pipeline {
	if len(opts.Languages) == 0 {
		opts.Languages = transcript.DefaultLanguages
	}
	return &Pipeline{
		source:     source,
		summarizer: summarizer,
		chunker:    chunker,
		indexes:    indexes,
		videos:     videos,
		locker:     locker,
		opts:       opts,
	}
}

// Ingest fetches, summarizes, chunks, embeds and persists one video.
//
// Every run fully overwrites the previous state of the video. The old index is
// invalidated before the transcript is fetched and the new one is committed last,
// so a failure at any step leaves the video unprocessed rather than half-written.
func (p *Pipeline) Ingest(ctx context.Context, videoID string) (*IngestResult, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, domain.Fail(domain.StageTranscript, videoID, domain.ErrTranscriptUnavailable, errors.New("video id is required"))
	}

	ctx = contextutil.WithVideo(ctx, videoID)
	logger := contextutil.LoggerFromContext(ctx)
	started := time.Now()

	if p.locker != nil {
		release, err := p.locker.Acquire(ctx, videoID)
		if errors.Is(err, lease.ErrLeaseHeld) {
			logger.WarnContext(ctx, "video already being ingested")
			return nil, domain.Fail(domain.StageLease, videoID, lease.ErrLeaseHeld, nil)
		}
		if err != nil {
			return nil, p.fail(ctx, domain.StageLease, videoID, domain.ErrLeaseUnavailable, err)
		}
		defer release()
	}

	logger.InfoContext(ctx, "ingestion started")

	if err := p.indexes.Invalidate(ctx, videoID); err != nil {
		return nil, p.fail(ctx, domain.StagePersist, videoID, domain.ErrPersistFailed, err)
	}

	tr, err := p.source.Fetch(ctx, videoID, p.opts.Languages)
	if err != nil {
		return nil, p.fail(ctx, domain.StageTranscript, videoID, domain.ErrTranscriptUnavailable, err)
	}
	text := tr.Text()
	if strings.TrimSpace(text) == "" {
		return nil, p.fail(ctx, domain.StageTranscript, videoID, domain.ErrTranscriptUnavailable, transcript.ErrNoTranscript)
	}
	logger.DebugContext(ctx, "transcript flattened", "segments", len(tr.Segments), "chars", len(text))

	sum, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		return nil, p.fail(ctx, domain.StageSummarize, videoID, domain.ErrSummarizationFailed, err)
	}

	passages, err := p.chunker.Chunk(videoID, text)
	if err != nil {
		return nil, p.fail(ctx, domain.StageChunk, videoID, domain.ErrChunkingFailed, err)
	}

	idx, err := p.indexes.Build(ctx, videoID, passages)
	if err != nil {
		return nil, p.fail(ctx, domain.StageEmbed, videoID, domain.ErrEmbeddingFailed, err)
	}

	rec := &domain.VideoRecord{
		VideoID:      videoID,
		Language:     tr.Language,
		Segments:     tr.Segments,
		Transcript:   text,
		Summary:      sum,
		PassageCount: len(passages),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := p.videos.Upsert(ctx, rec); err != nil {
		return nil, p.fail(ctx, domain.StageRecord, videoID, domain.ErrPersistFailed, err)
	}

	if err := p.indexes.Persist(ctx, idx); err != nil {
		return nil, p.fail(ctx, domain.StagePersist, videoID, domain.ErrPersistFailed, err)
	}

	stats := ComputePassageStats(passages, p.opts.EmbeddingModel, p.chunker.Size(), p.chunker.Overlap())
	points := summary.Points(sum)

	logger.InfoContext(ctx, "ingestion complete",
		"language", tr.Language,
		"passages", len(passages),
		"summary_points", len(points),
		"token_p95", stats.TokenStats.P95,
		"index_version", stats.IndexVersion,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return &IngestResult{
		VideoID:      videoID,
		Message:      CompletedMessage,
		Language:     tr.Language,
		PassageCount: len(passages),
		Summary:      sum,
		Points:       points,
		Stats:        stats,
	}, nil
}

func (p *Pipeline) fail(ctx context.Context, stage domain.Stage, videoID string, kind, err error) error {
	contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "ingestion failed", "stage", stage, "error", err)
	return domain.Fail(stage, videoID, kind, err)
}
