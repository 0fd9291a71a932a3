package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testDocument(filename string) *DocumentRecord {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return &DocumentRecord{
		ID:           uuid.NewString(),
		Filename:     filename,
		Hash:         "abc123",
		Sector:       "healthcare",
		Author:       "Jane Smith",
		Client:       "MGT Industries",
		ProposalDate: &date,
		Tags:         []string{"cost-reduction", "due-diligence"},
		Text:         "normalized proposal text",
		Generation:   1,
	}
}

func TestDocumentRepo_InsertAndGet(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	ctx := context.Background()

	doc := testDocument("proposal.md")
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Filename != doc.Filename || got.Sector != doc.Sector || got.Author != doc.Author {
		t.Errorf("GetByID() = %+v, want fields from %+v", got, doc)
	}
	if got.Client != "MGT Industries" {
		t.Errorf("client = %q", got.Client)
	}
	if !reflect.DeepEqual(got.Tags, doc.Tags) {
		t.Errorf("tags = %v, want %v", got.Tags, doc.Tags)
	}
	if got.ProposalDate == nil || !got.ProposalDate.Equal(*doc.ProposalDate) {
		t.Errorf("proposal date = %v, want %v", got.ProposalDate, doc.ProposalDate)
	}
	if got.Generation != 1 {
		t.Errorf("generation = %d, want 1", got.Generation)
	}
}

func TestDocumentRepo_GetByFilenameAndHash(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	ctx := context.Background()

	doc := testDocument("proposal.md")
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	byName, err := repo.GetByFilename(ctx, "proposal.md")
	if err != nil {
		t.Fatalf("GetByFilename() error = %v", err)
	}
	if byName.ID != doc.ID {
		t.Errorf("GetByFilename() ID = %q, want %q", byName.ID, doc.ID)
	}

	byHash, err := repo.GetByHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if byHash.ID != doc.ID {
		t.Errorf("GetByHash() ID = %q, want %q", byHash.ID, doc.ID)
	}
}

func TestDocumentRepo_NotFound(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByFilename(ctx, "missing.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByFilename() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByHash(ctx, "nohash"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByHash() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_NullableFields(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	ctx := context.Background()

	doc := testDocument("sparse.md")
	doc.Client = ""
	doc.ProposalDate = nil
	doc.Tags = nil
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Client != "" {
		t.Errorf("client = %q, want empty", got.Client)
	}
	if got.ProposalDate != nil {
		t.Errorf("proposal date = %v, want nil", got.ProposalDate)
	}
	if len(got.Tags) != 0 {
		t.Errorf("tags = %v, want empty", got.Tags)
	}
}

func TestDocumentRepo_Update(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	ctx := context.Background()

	doc := testDocument("proposal.md")
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	doc.Hash = "def456"
	doc.Sector = "industrials"
	doc.Generation = 2
	if err := repo.Update(ctx, doc); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Hash != "def456" || got.Sector != "industrials" || got.Generation != 2 {
		t.Errorf("updated document = %+v", got)
	}

	missing := testDocument("other.md")
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() on missing document error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_UpdateMetadata(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	ctx := context.Background()

	doc := testDocument("proposal.md")
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	sector := "private-equity"
	tags := []string{"carve-out"}
	patch := MetadataPatch{Sector: &sector, Tags: &tags}
	if err := repo.UpdateMetadata(ctx, doc.ID, patch); err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}

	got, err := repo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Sector != "private-equity" {
		t.Errorf("sector = %q, want patched value", got.Sector)
	}
	if !reflect.DeepEqual(got.Tags, tags) {
		t.Errorf("tags = %v, want %v", got.Tags, tags)
	}
	if got.Author != doc.Author {
		t.Errorf("author = %q, unpatched fields must be untouched", got.Author)
	}

	if err := repo.UpdateMetadata(ctx, doc.ID, MetadataPatch{}); err != nil {
		t.Errorf("empty patch should be a no-op, got %v", err)
	}
	if err := repo.UpdateMetadata(ctx, "missing", patch); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateMetadata() on missing document error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_ListRecent(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		doc := testDocument(name)
		doc.Hash = "hash-" + name
		if err := repo.Insert(ctx, doc); err != nil {
			t.Fatalf("Insert(%s) error = %v", name, err)
		}
	}

	docs, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("ListRecent(2) returned %d documents", len(docs))
	}
}

func TestDocumentRepo_DistinctClients(t *testing.T) {
	repo := NewDocumentRepo(newTestDB(t))
	ctx := context.Background()

	clients := []string{"MGT Industries", "", "PowerParts Group", "MGT Industries"}
	for i, client := range clients {
		doc := testDocument(uuid.NewString() + ".md")
		doc.Hash = uuid.NewString()
		doc.Client = client
		if err := repo.Insert(ctx, doc); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	got, err := repo.DistinctClients(ctx)
	if err != nil {
		t.Fatalf("DistinctClients() error = %v", err)
	}
	want := []string{"MGT Industries", "PowerParts Group"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DistinctClients() = %v, want %v", got, want)
	}
}
