package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingest_service.go -package=mocks -mock_names=IngestService=MockIngestService proposal-ai/internal/service IngestService

import (
	"context"
	"strings"

	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/indexer"
	"proposal-ai/internal/metadata"
	"proposal-ai/internal/storage"
)

// Ingestor is the pipeline surface the ingest service needs.
type Ingestor interface {
	IngestDocument(ctx context.Context, filename string, content []byte) (*indexer.IngestResult, error)
}

// IngestService manages document ingestion and metadata correction.
type IngestService interface {
	// IngestDocument ingests one uploaded document. A blocked duplicate is
	// returned as a *DuplicateError.
	IngestDocument(ctx context.Context, filename string, content []byte) (*indexer.IngestResult, error)
	// CorrectMetadata patches a document's inferred metadata fields.
	CorrectMetadata(ctx context.Context, id string, patch storage.MetadataPatch) error
}

// ingestService implements IngestService.
type ingestService struct {
	pipeline Ingestor
	docs     storage.DocumentStore
}

// NewIngestService creates a new IngestService.
func NewIngestService(pipeline Ingestor, docs storage.DocumentStore) IngestService {
	return &ingestService{pipeline: pipeline, docs: docs}
}

// IngestDocument validates the upload and runs it through the pipeline.
func (s *ingestService) IngestDocument(ctx context.Context, filename string, content []byte) (*indexer.IngestResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(filename) == "" {
		return nil, &ValidationError{Field: "filename", Message: "cannot be empty"}
	}
	if len(content) == 0 {
		return nil, &ValidationError{Field: "content", Message: "cannot be empty"}
	}

	result, err := s.pipeline.IngestDocument(ctx, filename, content)
	if err == indexer.ErrEmptyDocument {
		return nil, &ValidationError{Field: "content", Message: "document has no extractable text"}
	}
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "filename", filename, "error", err)
		return nil, WrapError(err, "failed to ingest document")
	}

	if !result.Duplicate.ShouldProceed {
		return nil, &DuplicateError{
			DuplicateFile: result.Duplicate.DuplicateFile,
			Similarity:    result.Duplicate.Similarity,
			Reason:        result.Duplicate.Reason,
		}
	}
	return result, nil
}

// CorrectMetadata applies a correction patch. Corrections are the one
// sanctioned mutation of an ingested document, so each applied patch is
// logged with the fields it touched.
func (s *ingestService) CorrectMetadata(ctx context.Context, id string, patch storage.MetadataPatch) error {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Message: "cannot be empty"}
	}
	if patch.Sector != nil && !validSector(*patch.Sector) {
		return &ValidationError{Field: "sector", Message: "unknown sector"}
	}

	if err := s.docs.UpdateMetadata(ctx, id, patch); err != nil {
		if err == storage.ErrNotFound {
			return ErrNotFound
		}
		return WrapError(err, "failed to correct metadata")
	}

	logger.InfoContext(ctx, "metadata correction applied",
		"document_id", id,
		"fields", patchedFields(patch),
	)
	return nil
}

func validSector(sector string) bool {
	for _, s := range metadata.Sectors {
		if sector == s {
			return true
		}
	}
	return false
}

func patchedFields(patch storage.MetadataPatch) []string {
	var fields []string
	if patch.Sector != nil {
		fields = append(fields, "sector")
	}
	if patch.Author != nil {
		fields = append(fields, "author")
	}
	if patch.Client != nil {
		fields = append(fields, "client")
	}
	if patch.ProposalDate != nil {
		fields = append(fields, "proposal_date")
	}
	if patch.Tags != nil {
		fields = append(fields, "tags")
	}
	return fields
}
