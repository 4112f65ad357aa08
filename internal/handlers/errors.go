package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"videoqa/internal/contextutil"
	"videoqa/internal/domain"
	"videoqa/internal/lease"
	"videoqa/internal/rag"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Human readable error message
	Error string `json:"error"`

	// Pipeline stage that failed, when known
	Stage string `json:"stage,omitempty"`
}

// errorStatus maps pipeline errors to an HTTP status and a client-facing message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion):
		return http.StatusBadRequest, "Question is required"
	case errors.Is(err, lease.ErrLeaseHeld):
		return http.StatusConflict, "Video is already being processed"
	case errors.Is(err, domain.ErrIndexNotFound):
		return http.StatusNotFound, "Video not processed. Process the video first."
	case errors.Is(err, domain.ErrTranscriptUnavailable):
		return http.StatusUnprocessableEntity, "Transcript unavailable for this video"
	case errors.Is(err, domain.ErrSummarizationFailed),
		errors.Is(err, domain.ErrEmbeddingFailed),
		errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway, "External service error"
	case errors.Is(err, domain.ErrRetrievalFailed):
		return http.StatusServiceUnavailable, "Vector store unavailable"
	case errors.Is(err, domain.ErrLeaseUnavailable):
		return http.StatusServiceUnavailable, "Ingestion coordination unavailable"
	case errors.Is(err, domain.ErrRecordCorrupt):
		return http.StatusInternalServerError, "Stored video record is corrupt"
	case errors.Is(err, domain.ErrPersistFailed):
		return http.StatusInternalServerError, "Failed to store processing results"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// handleError logs err and writes the mapped status.
func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	status, msg := errorStatus(err)

	resp := ErrorResponse{Error: msg}
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = string(stageErr.Stage)
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "status", status, "error", err)
	} else {
		logger.WarnContext(ctx, "request rejected", "status", status, "error", err)
	}
	writeJSON(ctx, w, status, resp)
}

// writeError writes an error response.
func writeError(ctx context.Context, w http.ResponseWriter, statusCode int, message string) {
	writeJSON(ctx, w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
