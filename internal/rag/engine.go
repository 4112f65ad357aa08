package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks videoqa/internal/rag Engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"videoqa/internal/contextutil"
	"videoqa/internal/domain"
	"videoqa/internal/routing"
	"videoqa/internal/storage"
)

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question is required")

// Engine answers questions about processed videos.
type Engine interface {
	// Ask routes the question and answers it from the cached summary or from retrieved passages.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	classifier  routing.Classifier
	videos      storage.VideoStore
	assembler   *Assembler
	synthesizer *Synthesizer
}

// NewEngine creates a new RAG engine. A nil classifier selects the default keyword router.
func NewEngine(
	classifier routing.Classifier,
	videos storage.VideoStore,
	assembler *Assembler,
	synthesizer *Synthesizer,
) Engine {
	if classifier == nil {
		classifier = routing.NewKeywordClassifier()
	}
	return &ragEngine{
		classifier:  classifier,
		videos:      videos,
		assembler:   assembler,
		synthesizer: synthesizer,
	}
}

// Ask answers a question about one video.
//
// Every question first requires a committed, complete index. Global questions then return the
// cached summary verbatim with no generation call; local questions are answered from
// the summary plus the top passages.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	videoID := strings.TrimSpace(req.VideoID)
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AskResponse{}, ErrEmptyQuestion
	}

	ctx = contextutil.WithVideo(ctx, videoID)
	logger := contextutil.LoggerFromContext(ctx)

	idx, err := e.assembler.load(ctx, videoID)
	if err != nil {
		return AskResponse{}, err
	}

	route := e.classifier.Classify(question)
	logger.InfoContext(ctx, "question routed", "route", route, "question_length", len(question))

	summary, err := e.summary(ctx, videoID)
	if err != nil {
		return AskResponse{}, err
	}

	if route == routing.Global {
		return AskResponse{
			Answer:     summary,
			Mode:       domain.ModeSummary,
			References: []Reference{},
		}, nil
	}

	retrieved, hits, err := e.assembler.assemble(ctx, idx, question)
	if err != nil {
		return AskResponse{}, err
	}

	answer, err := e.synthesizer.Synthesize(ctx, summary, retrieved, question)
	if err != nil {
		logger.ErrorContext(ctx, "failed to synthesize answer", "error", err)
		return AskResponse{}, domain.Fail(domain.StageGenerate, videoID, domain.ErrGenerationFailed, err)
	}

	references := make([]Reference, len(hits))
	for i, h := range hits {
		references[i] = Reference{Ordinal: h.Passage.Ordinal, Score: h.Score, Text: h.Passage.Text}
	}

	logger.InfoContext(ctx, "question answered", "mode", domain.ModeRetrieval, "passages_used", len(hits), "answer_length", len(answer))
	return AskResponse{
		Answer:     answer,
		Mode:       domain.ModeRetrieval,
		References: references,
	}, nil
}

// summary reads the cached summary, failing explicitly instead of substituting an empty one.
func (e *ragEngine) summary(ctx context.Context, videoID string) (string, error) {
	rec, err := e.videos.Get(ctx, videoID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "", domain.Fail(domain.StageLoad, videoID, domain.ErrIndexNotFound, fmt.Errorf("summary record missing: %w", err))
	case errors.Is(err, domain.ErrRecordCorrupt):
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "summary record corrupt", "error", err)
		return "", domain.Fail(domain.StageLoad, videoID, domain.ErrRecordCorrupt, err)
	case err != nil:
		return "", domain.Fail(domain.StageLoad, videoID, domain.ErrRetrievalFailed, err)
	}
	return rec.Summary, nil
}
