package rag

import (
	"context"
	"errors"
	"strings"

	"videoqa/internal/contextutil"
	"videoqa/internal/domain"
	"videoqa/internal/index"
)

// PassageSeparator joins retrieved passages into one context string.
const PassageSeparator = "\n\n"

// Assembler retrieves the passages most similar to a question and joins them into a context.
type Assembler struct {
	indexes *index.Manager
	k       int
}

// NewAssembler creates an assembler returning k passages. k <= 0 selects index.DefaultK.
func NewAssembler(indexes *index.Manager, k int) *Assembler {
	if k <= 0 {
		k = index.DefaultK
	}
	return &Assembler{indexes: indexes, k: k}
}

// Assemble loads the video's index, searches it for question and joins the hits in rank order.
// Overlapping passage text is kept as-is.
func (a *Assembler) Assemble(ctx context.Context, videoID, question string) (string, []index.Hit, error) {
	idx, err := a.load(ctx, videoID)
	if err != nil {
		return "", nil, err
	}
	return a.assemble(ctx, idx, question)
}

// load returns the committed index, mapping a missing or incomplete one to IndexNotFound.
func (a *Assembler) load(ctx context.Context, videoID string) (*index.Index, error) {
	idx, err := a.indexes.Load(ctx, videoID)
	if errors.Is(err, domain.ErrIndexNotFound) {
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "no committed index", "error", err)
		return nil, domain.Fail(domain.StageLoad, videoID, domain.ErrIndexNotFound, err)
	}
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to load index", "error", err)
		return nil, domain.Fail(domain.StageLoad, videoID, domain.ErrRetrievalFailed, err)
	}
	return idx, nil
}

func (a *Assembler) assemble(ctx context.Context, idx *index.Index, question string) (string, []index.Hit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	hits, err := a.indexes.Search(ctx, idx, question, a.k)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search index", "collection", idx.Collection, "error", err)
		return "", nil, domain.Fail(domain.StageRetrieve, idx.VideoID, domain.ErrRetrievalFailed, err)
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Passage.Text
		logger.DebugContext(ctx, "retrieved passage", "rank", i+1, "ordinal", h.Passage.Ordinal, "score", h.Score)
	}
	joined := strings.Join(texts, PassageSeparator)

	logger.InfoContext(ctx, "context assembled", "passages", len(hits), "context_length", len(joined))
	return joined, hits, nil
}
