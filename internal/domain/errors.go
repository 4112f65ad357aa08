package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failing stage. Match with errors.Is.
var (
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrSummarizationFailed   = errors.New("summarization failed")
	ErrChunkingFailed        = errors.New("chunking failed")
	ErrEmbeddingFailed       = errors.New("embedding failed")
	ErrIndexNotFound         = errors.New("video not processed")
	ErrRetrievalFailed       = errors.New("retrieval failed")
	ErrGenerationFailed      = errors.New("generation failed")
	ErrRecordCorrupt         = errors.New("record corrupt")
	ErrPersistFailed         = errors.New("persistence failed")
	ErrLeaseUnavailable      = errors.New("ingestion lease unavailable")
)

// Stage names a step of the ingestion or query pipeline.
type Stage string

const (
	StageLease      Stage = "lease"
	StageTranscript Stage = "transcript"
	StageSummarize  Stage = "summarize"
	StageChunk      Stage = "chunk"
	StageEmbed      Stage = "embed"
	StagePersist    Stage = "persist"
	StageLoad       Stage = "load"
	StageRetrieve   Stage = "retrieve"
	StageGenerate   Stage = "generate"
	StageRecord     Stage = "record"
)

// StageError identifies which stage failed for which video.
// Kind is one of the sentinel errors above; Err is the underlying cause.
type StageError struct {
	Stage   Stage
	VideoID string
	Kind    error
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (stage=%s, video=%s)", e.Kind, e.Stage, e.VideoID)
	}
	return fmt.Sprintf("%s (stage=%s, video=%s): %v", e.Kind, e.Stage, e.VideoID, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Fail builds a StageError.
func Fail(stage Stage, videoID string, kind, err error) *StageError {
	return &StageError{Stage: stage, VideoID: videoID, Kind: kind, Err: err}
}
