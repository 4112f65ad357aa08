package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"videoqa/internal/handlers"
	"videoqa/internal/indexer"
	"videoqa/internal/rag"
	"videoqa/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Ingester    indexer.Ingester
	Engine      rag.Engine
	DB          handlers.Pinger
	VectorStore vectorstore.VectorStore
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)

	// Add CORS middleware
	r.Use(CORS)

	ingestHandler := handlers.NewIngestHandler(deps.Ingester)
	askHandler := handlers.NewAskHandler(deps.Engine)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/videos/{videoID}/process", ingestHandler)
			r.Method(http.MethodPost, "/ask", askHandler)
		})
	})

	// Routes kept for existing frontends.
	r.Method(http.MethodGet, "/process", ingestHandler)
	r.Method(http.MethodPost, "/ask", askHandler)

	return r
}
