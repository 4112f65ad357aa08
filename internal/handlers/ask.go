package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"videoqa/internal/contextutil"
	"videoqa/internal/rag"
)

// AskHandler handles HTTP requests for questions about a video.
type AskHandler struct {
	engine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine rag.Engine) *AskHandler {
	return &AskHandler{engine: engine}
}

// AskRequest represents the HTTP request payload for questions.
// This mirrors the rag.AskRequest but is defined here for HTTP layer separation.
//
// swagger:model AskRequest
type AskRequest struct {
	VideoID  string `json:"video_id"`
	Question string `json:"question"`
}

// ReferenceResponse represents a passage used in the answer.
//
// swagger:model ReferenceResponse
type ReferenceResponse struct {
	// Position of the passage within the transcript
	Ordinal int `json:"ordinal"`

	// Cosine similarity to the question
	Score float32 `json:"score"`

	// Passage text
	Text string `json:"text"`
}

// AskResponse represents the HTTP response payload for questions.
//
// swagger:model AskResponse
type AskResponse struct {
	// The cached summary or the generated answer
	Answer string `json:"answer"`

	// "summary" or "retrieval"
	Mode string `json:"mode"`

	// Passages given to the model, in rank order
	References []ReferenceResponse `json:"references"`
}

// ServeHTTP handles HTTP requests for questions.
//
// swagger:route POST /api/v1/ask askQuestion
//
// # Ask a question about a processed video
//
// Overview questions return the cached summary. Other questions are answered from
// the summary and the passages most similar to the question.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/AskRequest"
//
// responses:
//
//	'200':
//	  description: Successful response with answer and references
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Bad request (missing video ID or question)
//	'404':
//	  description: Video not processed
//	'502':
//	  description: Model provider error
//	'503':
//	  description: Vector store unavailable
//	'500':
//	  description: Internal server error
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.VideoID) == "" {
		logger.WarnContext(ctx, "empty video id in request")
		writeError(ctx, w, http.StatusBadRequest, "video_id is required")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(ctx, w, http.StatusBadRequest, "Question is required")
		return
	}

	ragResp, err := h.engine.Ask(ctx, rag.AskRequest{
		VideoID:  req.VideoID,
		Question: req.Question,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	references := make([]ReferenceResponse, len(ragResp.References))
	for i, ref := range ragResp.References {
		references[i] = ReferenceResponse{
			Ordinal: ref.Ordinal,
			Score:   ref.Score,
			Text:    ref.Text,
		}
	}

	writeJSON(ctx, w, http.StatusOK, AskResponse{
		Answer:     ragResp.Answer,
		Mode:       string(ragResp.Mode),
		References: references,
	})
}
