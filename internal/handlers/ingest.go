package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"videoqa/internal/contextutil"
	"videoqa/internal/indexer"
)

// IngestHandler handles HTTP requests that process a video.
type IngestHandler struct {
	ingester indexer.Ingester
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingester indexer.Ingester) *IngestHandler {
	return &IngestHandler{ingester: ingester}
}

// TokenStatsResponse contains statistics about estimated token counts per passage.
//
// swagger:model TokenStatsResponse
type TokenStatsResponse struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// IngestResponse represents the response from the process endpoint.
//
// swagger:model IngestResponse
type IngestResponse struct {
	// Always "Processing complete"
	Message string `json:"message"`

	// ID of the processed video
	VideoID string `json:"video_id"`

	// Caption language that was used
	Language string `json:"language"`

	// Number of passages indexed
	Chunks int `json:"chunks"`

	// Cached summary, verbatim
	Summary string `json:"summary"`

	// Bullet points parsed from the summary
	Points []string `json:"points,omitempty"`

	// Estimated token statistics across passages
	TokenStats TokenStatsResponse `json:"token_stats"`

	// Identifies the chunker, embedding model and parameters used
	IndexVersion string `json:"index_version"`
}

// ServeHTTP handles HTTP requests that process a video.
//
// swagger:route POST /api/v1/videos/{videoID}/process processVideo
//
// # Process a video
//
// Fetches the transcript, caches a summary and builds the embedding index.
// Processing an already processed video replaces its summary and index.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Video processed
//	  schema:
//	    "$ref": "#/definitions/IngestResponse"
//	'400':
//	  description: Missing video ID
//	'409':
//	  description: Video is already being processed
//	'422':
//	  description: Transcript unavailable
//	'502':
//	  description: Model provider error
//	'503':
//	  description: Ingestion coordination unavailable
//	'500':
//	  description: Internal server error
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	videoID := strings.TrimSpace(chi.URLParam(r, "videoID"))
	if videoID == "" {
		videoID = strings.TrimSpace(r.URL.Query().Get("video_id"))
	}
	if videoID == "" {
		logger.WarnContext(ctx, "missing video id")
		writeError(ctx, w, http.StatusBadRequest, "video_id is required")
		return
	}

	res, err := h.ingester.Ingest(ctx, videoID)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, IngestResponse{
		Message:  res.Message,
		VideoID:  res.VideoID,
		Language: res.Language,
		Chunks:   res.PassageCount,
		Summary:  res.Summary,
		Points:   res.Points,
		TokenStats: TokenStatsResponse{
			Min:  res.Stats.TokenStats.Min,
			Max:  res.Stats.TokenStats.Max,
			Mean: res.Stats.TokenStats.Mean,
			P95:  res.Stats.TokenStats.P95,
		},
		IndexVersion: res.Stats.IndexVersion,
	})
}
