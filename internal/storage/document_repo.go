package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks proposal-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Insert inserts a new document. The record ID must be set (UUID).
	Insert(ctx context.Context, doc *DocumentRecord) error
	// GetByID gets a document by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// GetByFilename gets a document by its source filename. Returns ErrNotFound if not found.
	GetByFilename(ctx context.Context, filename string) (*DocumentRecord, error)
	// GetByHash gets a document by its content hash. Returns ErrNotFound if not found.
	GetByHash(ctx context.Context, hash string) (*DocumentRecord, error)
	// ListRecent returns up to limit documents ordered by creation time, newest first.
	ListRecent(ctx context.Context, limit int) ([]*DocumentRecord, error)
	// Update replaces the content-derived fields of an existing document (re-ingestion).
	Update(ctx context.Context, doc *DocumentRecord) error
	// UpdateMetadata patches individual metadata fields of a document.
	// This is the entry point for the correction workflow; nil patch fields are ignored.
	UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) error
	// DistinctClients returns all non-empty client names in the corpus.
	DistinctClients(ctx context.Context) ([]string, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Insert inserts a new document. The record ID must be set (UUID).
func (r *DocumentRepo) Insert(ctx context.Context, doc *DocumentRecord) error {
	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, hash, sector, author, client, proposal_date, tags, text, generation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.Hash, doc.Sector, doc.Author,
		nullString(doc.Client), nullTime(doc.ProposalDate), tags, doc.Text, doc.Generation,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by its ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	return r.getOne(ctx, "WHERE id = ?", id)
}

// GetByFilename gets a document by its source filename. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByFilename(ctx context.Context, filename string) (*DocumentRecord, error) {
	return r.getOne(ctx, "WHERE filename = ?", filename)
}

// GetByHash gets a document by its content hash. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByHash(ctx context.Context, hash string) (*DocumentRecord, error) {
	return r.getOne(ctx, "WHERE hash = ? LIMIT 1", hash)
}

const documentColumns = "id, filename, hash, sector, author, client, proposal_date, tags, text, generation, created_at"

func (r *DocumentRepo) getOne(ctx context.Context, where string, args ...any) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents "+where, args...)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// ListRecent returns up to limit documents ordered by creation time, newest first.
func (r *DocumentRepo) ListRecent(ctx context.Context, limit int) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// Update replaces the content-derived fields of an existing document (re-ingestion).
func (r *DocumentRepo) Update(ctx context.Context, doc *DocumentRecord) error {
	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET hash = ?, sector = ?, author = ?, client = ?, proposal_date = ?, tags = ?, text = ?, generation = ?
		 WHERE id = ?`,
		doc.Hash, doc.Sector, doc.Author, nullString(doc.Client), nullTime(doc.ProposalDate),
		tags, doc.Text, doc.Generation, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMetadata patches individual metadata fields of a document.
func (r *DocumentRepo) UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if patch.Sector != nil {
		sets = append(sets, "sector = ?")
		args = append(args, *patch.Sector)
	}
	if patch.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *patch.Author)
	}
	if patch.Client != nil {
		sets = append(sets, "client = ?")
		args = append(args, nullString(*patch.Client))
	}
	if patch.ProposalDate != nil {
		sets = append(sets, "proposal_date = ?")
		args = append(args, *patch.ProposalDate)
	}
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to patch document metadata: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DistinctClients returns all non-empty client names in the corpus.
func (r *DocumentRepo) DistinctClients(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT client FROM documents WHERE client IS NOT NULL AND client != '' ORDER BY client")
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var clients []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return clients, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	var doc DocumentRecord
	var client sql.NullString
	var proposalDate sql.NullTime
	var tags string
	err := row.Scan(&doc.ID, &doc.Filename, &doc.Hash, &doc.Sector, &doc.Author,
		&client, &proposalDate, &tags, &doc.Text, &doc.Generation, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	doc.Client = client.String
	if proposalDate.Valid {
		t := proposalDate.Time
		doc.ProposalDate = &t
	}
	if err := json.Unmarshal([]byte(tags), &doc.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return &doc, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(raw), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
