package storage

import "time"

// DocumentRecord represents an ingested proposal document.
// Documents are immutable after ingestion except through UpdateMetadata,
// which backs the explicit correction workflow.
type DocumentRecord struct {
	ID           string     // UUID
	Filename     string     // Source filename, unique per document
	Hash         string     // SHA256 hex string of normalized content
	Sector       string     // Inferred sector (one of the metadata sector enum)
	Author       string     // Canonical roster name or "not found"
	Client       string     // Inferred client name, empty when unknown
	ProposalDate *time.Time // Inferred proposal date, nil when unknown
	Tags         []string   // Up to 8 kebab-case tags
	Text         string     // Normalized document text (used for duplicate comparison)
	Generation   int        // Incremented on re-ingestion; chunks carry the generation they were cut from
	CreatedAt    time.Time
}

// MetadataPatch carries field-level corrections for a document.
// Nil fields are left untouched.
type MetadataPatch struct {
	Sector       *string
	Author       *string
	Client       *string
	ProposalDate *time.Time
	Tags         *[]string
}

// ChunkRecord represents a chunk of a document, indexed for vector search.
type ChunkRecord struct {
	ID         string // UUID (same as the vector store point ID)
	DocumentID string // UUID (foreign key to documents.id)
	ChunkIndex int    // Index within document (starts at 0)
	Section    string // Optional section label (understanding/approach/timeline/problem), empty if unlabeled
	Text       string // Chunk text content
	Generation int    // Document generation this chunk belongs to
}

// SessionRecord persists a conversation context so session state survives restarts.
type SessionRecord struct {
	ID        string // Session UUID
	State     []byte // JSON-encoded conversation context
	UpdatedAt time.Time
}
