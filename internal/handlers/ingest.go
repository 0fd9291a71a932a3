package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"proposal-ai/internal/service"
	"proposal-ai/internal/storage"
)

// IngestHandler handles document uploads and metadata corrections.
type IngestHandler struct {
	ingestService service.IngestService
	logger        *slog.Logger
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingestService service.IngestService) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		logger:        slog.Default(),
	}
}

// IngestRequest represents the HTTP request payload for a document upload.
type IngestRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// IngestResponse represents the HTTP response payload for a document upload.
type IngestResponse struct {
	DocumentID    string   `json:"document_id"`
	Generation    int      `json:"generation"`
	Sector        string   `json:"sector"`
	Author        string   `json:"author"`
	Client        string   `json:"client,omitempty"`
	ProposalDate  string   `json:"proposal_date,omitempty"`
	Tags          []string `json:"tags"`
	ChunksTotal   int      `json:"chunks_total"`
	ChunksIndexed int      `json:"chunks_indexed"`
	ChunkErrors   []string `json:"chunk_errors,omitempty"`
	// Warning carries the near-duplicate notice when the upload proceeded
	// despite resembling an existing document.
	Warning string `json:"warning,omitempty"`
}

// DuplicateResponse is returned with 409 when an upload is blocked.
type DuplicateResponse struct {
	Error         string  `json:"error"`
	DuplicateFile string  `json:"duplicate_file"`
	Similarity    float64 `json:"similarity"`
	Reason        string  `json:"reason"`
}

// MetadataPatchRequest represents the HTTP payload for a metadata correction.
// Absent fields are left untouched.
type MetadataPatchRequest struct {
	Sector       *string   `json:"sector,omitempty"`
	Author       *string   `json:"author,omitempty"`
	Client       *string   `json:"client,omitempty"`
	ProposalDate *string   `json:"proposal_date,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
}

// getLogger extracts logger from context or returns default logger.
func (h *IngestHandler) getLogger(ctx context.Context) *slog.Logger {
	type loggerKeyType string
	const loggerKey loggerKeyType = "logger"
	if ctxLogger := ctx.Value(loggerKey); ctxLogger != nil {
		if l, ok := ctxLogger.(*slog.Logger); ok {
			return l
		}
	}
	return h.logger
}

// Ingest handles POST /api/documents.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.getLogger(ctx)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.ingestService.IngestDocument(ctx, req.Filename, []byte(req.Content))
	if err != nil {
		var dupErr *service.DuplicateError
		if errors.As(err, &dupErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(DuplicateResponse{
				Error:         "Duplicate document",
				DuplicateFile: dupErr.DuplicateFile,
				Similarity:    dupErr.Similarity,
				Reason:        dupErr.Reason,
			})
			return
		}
		h.handleServiceError(w, ctx, err, "Failed to ingest document")
		return
	}

	resp := IngestResponse{
		DocumentID:    result.DocumentID,
		Generation:    result.Generation,
		Sector:        result.Metadata.Sector,
		Author:        result.Metadata.Author,
		Client:        result.Metadata.Client,
		Tags:          result.Metadata.Tags,
		ChunksTotal:   result.ChunksTotal,
		ChunksIndexed: result.ChunksIndexed,
		ChunkErrors:   result.ChunkErrors,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if result.Metadata.ProposalDate != nil {
		resp.ProposalDate = result.Metadata.ProposalDate.Format("2006-01-02")
	}
	if result.Duplicate.IsDuplicate {
		resp.Warning = result.Duplicate.Reason
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// PatchMetadata handles PATCH /api/documents/{id}/metadata.
func (h *IngestHandler) PatchMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.getLogger(ctx)

	id := chi.URLParam(r, "id")

	var req MetadataPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch := storage.MetadataPatch{
		Sector: req.Sector,
		Author: req.Author,
		Client: req.Client,
		Tags:   req.Tags,
	}
	if req.ProposalDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.ProposalDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid proposal_date, expected YYYY-MM-DD")
			return
		}
		patch.ProposalDate = &parsed
	}

	if err := h.ingestService.CorrectMetadata(ctx, id, patch); err != nil {
		h.handleServiceError(w, ctx, err, "Failed to correct metadata")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *IngestHandler) handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
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
func (h *IngestHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
