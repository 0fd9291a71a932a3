package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"proposal-ai/internal/rag"
	"proposal-ai/internal/service"
	"proposal-ai/internal/vectorstore"
)

// QueryHandler handles HTTP requests for querying the proposal corpus.
type QueryHandler struct {
	queryService service.QueryService
	logger       *slog.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
		logger:       slog.Default(),
	}
}

// QueryRequest represents the HTTP request payload for a query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Filters   struct {
		Author string   `json:"author,omitempty"`
		Sector string   `json:"sector,omitempty"`
		Client string   `json:"client,omitempty"`
		Tags   []string `json:"tags,omitempty"`
	} `json:"filters,omitempty"`
}

// QueryResponse represents the HTTP response payload for a query.
type QueryResponse struct {
	SessionID      string              `json:"session_id"`
	Answer         string              `json:"answer,omitempty"`
	Passages       []rag.RankedPassage `json:"passages"`
	ResolvedQuery  string              `json:"resolved_query"`
	ContextSource  string              `json:"context_source"`
	QueryType      string              `json:"query_type"`
	AppliedFilters filtersPayload      `json:"applied_filters"`
	Meta           rag.Meta            `json:"meta"`
}

type filtersPayload struct {
	Author string   `json:"author,omitempty"`
	Sector string   `json:"sector,omitempty"`
	Client string   `json:"client,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// getLogger extracts logger from context or returns default logger.
func (h *QueryHandler) getLogger(ctx context.Context) *slog.Logger {
	type loggerKeyType string
	const loggerKey loggerKeyType = "logger"
	if ctxLogger := ctx.Value(loggerKey); ctxLogger != nil {
		if l, ok := ctxLogger.(*slog.Logger); ok {
			return l
		}
	}
	return h.logger
}

// ServeHTTP handles HTTP requests for queries.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.getLogger(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcResp, err := h.queryService.ProcessQuery(ctx, service.QueryRequest{
		Query:     req.Query,
		SessionID: req.SessionID,
		Limit:     req.Limit,
		Filters: vectorstore.Filters{
			Author: req.Filters.Author,
			Sector: req.Filters.Sector,
			Client: req.Filters.Client,
			Tags:   req.Filters.Tags,
		},
	})
	if err != nil {
		h.handleServiceError(w, ctx, err, "Failed to process query")
		return
	}

	passages := svcResp.Passages
	if passages == nil {
		passages = []rag.RankedPassage{}
	}
	resp := QueryResponse{
		SessionID:     svcResp.SessionID,
		Answer:        svcResp.Answer,
		Passages:      passages,
		ResolvedQuery: svcResp.ResolvedQuery,
		ContextSource: svcResp.ContextSource,
		QueryType:     string(svcResp.QueryType),
		AppliedFilters: filtersPayload{
			Author: svcResp.AppliedFilters.Author,
			Sector: svcResp.AppliedFilters.Sector,
			Client: svcResp.AppliedFilters.Client,
			Tags:   svcResp.AppliedFilters.Tags,
		},
		Meta: svcResp.Meta,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to encode response")
		return
	}
}

func (h *QueryHandler) handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := h.getLogger(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	if errors.Is(err, service.ErrInvalidInput) {
		h.writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if errors.Is(err, service.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Resource not found")
		return
	}

	if errors.Is(err, service.ErrExternalService) {
		h.writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	h.writeError(w, http.StatusInternalServerError, defaultMsg)
}

// writeError writes an error response.
func (h *QueryHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
