package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"proposal-ai/internal/handlers"
	"proposal-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QueryService  service.QueryService
	IngestService service.IngestService
	DB            *sql.DB
	VectorStore   handlers.CollectionChecker
	Collection    string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	queryHandler := handlers.NewQueryHandler(deps.QueryService)
	ingestHandler := handlers.NewIngestHandler(deps.IngestService)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore, deps.Collection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", queryHandler)
		r.Post("/documents", ingestHandler.Ingest)
		r.Patch("/documents/{id}/metadata", ingestHandler.PatchMetadata)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
