package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"proposal-ai/internal/dedupe"
	"proposal-ai/internal/indexer"
	"proposal-ai/internal/storage"
)

type fakeIngestor struct {
	result *indexer.IngestResult
	err    error
}

func (f *fakeIngestor) IngestDocument(ctx context.Context, filename string, content []byte) (*indexer.IngestResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeDocStore struct {
	storage.DocumentStore
	patchErr    error
	lastPatchID string
	lastPatch   storage.MetadataPatch
}

func (f *fakeDocStore) UpdateMetadata(ctx context.Context, id string, patch storage.MetadataPatch) error {
	f.lastPatchID = id
	f.lastPatch = patch
	return f.patchErr
}

func okResult() *indexer.IngestResult {
	return &indexer.IngestResult{
		DocumentID:    "doc-1",
		Generation:    1,
		Duplicate:     dedupe.Verdict{ShouldProceed: true},
		ChunksTotal:   3,
		ChunksIndexed: 3,
	}
}

func TestIngestDocument(t *testing.T) {
	svc := NewIngestService(&fakeIngestor{result: okResult()}, &fakeDocStore{})

	result, err := svc.IngestDocument(context.Background(), "proposal.md", []byte("content"))
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if result.DocumentID != "doc-1" {
		t.Errorf("document ID = %q", result.DocumentID)
	}
}

func TestIngestDocument_Validation(t *testing.T) {
	svc := NewIngestService(&fakeIngestor{result: okResult()}, &fakeDocStore{})
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"empty filename", "  ", []byte("content")},
		{"empty content", "proposal.md", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.IngestDocument(ctx, tt.filename, tt.content)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestIngestDocument_EmptyAfterNormalization(t *testing.T) {
	svc := NewIngestService(&fakeIngestor{err: indexer.ErrEmptyDocument}, &fakeDocStore{})

	_, err := svc.IngestDocument(context.Background(), "blank.md", []byte("---"))
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestIngestDocument_BlockedDuplicate(t *testing.T) {
	svc := NewIngestService(&fakeIngestor{result: &indexer.IngestResult{
		Duplicate: dedupe.Verdict{
			IsDuplicate:   true,
			DuplicateFile: "original.md",
			Similarity:    0.97,
			Reason:        "near-duplicate content",
			ShouldProceed: false,
		},
	}}, &fakeDocStore{})

	_, err := svc.IngestDocument(context.Background(), "copy.md", []byte("content"))
	var dupErr *DuplicateError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if dupErr.DuplicateFile != "original.md" || dupErr.Similarity != 0.97 {
		t.Errorf("DuplicateError = %+v", dupErr)
	}
}

func TestIngestDocument_PipelineFailure(t *testing.T) {
	svc := NewIngestService(&fakeIngestor{err: fmt.Errorf("embeddings down")}, &fakeDocStore{})

	if _, err := svc.IngestDocument(context.Background(), "proposal.md", []byte("content")); err == nil {
		t.Fatal("expected error when the pipeline fails")
	}
}

func TestCorrectMetadata(t *testing.T) {
	docs := &fakeDocStore{}
	svc := NewIngestService(&fakeIngestor{result: okResult()}, docs)

	sector := "healthcare"
	err := svc.CorrectMetadata(context.Background(), "doc-1", storage.MetadataPatch{Sector: &sector})
	if err != nil {
		t.Fatalf("CorrectMetadata() error = %v", err)
	}
	if docs.lastPatchID != "doc-1" {
		t.Errorf("patched ID = %q", docs.lastPatchID)
	}
	if docs.lastPatch.Sector == nil || *docs.lastPatch.Sector != "healthcare" {
		t.Errorf("patch = %+v", docs.lastPatch)
	}
}

func TestCorrectMetadata_InvalidSector(t *testing.T) {
	svc := NewIngestService(&fakeIngestor{result: okResult()}, &fakeDocStore{})

	sector := "fintech"
	err := svc.CorrectMetadata(context.Background(), "doc-1", storage.MetadataPatch{Sector: &sector})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for unknown sector, got %v", err)
	}
}

func TestCorrectMetadata_NotFound(t *testing.T) {
	docs := &fakeDocStore{patchErr: storage.ErrNotFound}
	svc := NewIngestService(&fakeIngestor{result: okResult()}, docs)

	err := svc.CorrectMetadata(context.Background(), "missing", storage.MetadataPatch{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
