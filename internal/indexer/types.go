package indexer

import (
	"proposal-ai/internal/dedupe"
	"proposal-ai/internal/metadata"
)

// IngestResult reports the outcome of ingesting one document.
type IngestResult struct {
	// DocumentID is empty when the upload was blocked as a duplicate.
	DocumentID string
	// Generation starts at 1 and increments on each re-ingestion of the
	// same filename.
	Generation int
	// Duplicate is the duplicate-detection verdict for this upload.
	Duplicate dedupe.Verdict
	// Metadata is the extracted document metadata.
	Metadata metadata.Result
	// ChunksTotal is the number of chunks cut from the document.
	ChunksTotal int
	// ChunksIndexed is the number of chunks successfully embedded and stored.
	ChunksIndexed int
	// ChunkErrors records per-chunk failures; a failed chunk does not abort
	// the rest of the document.
	ChunkErrors []string
}
