package storage

import (
	"context"
	"errors"
	"testing"
)

func TestSessionRepo_UpsertAndGet(t *testing.T) {
	repo := NewSessionRepo(newTestDB(t))
	ctx := context.Background()

	session := &SessionRecord{ID: "session-1", State: []byte(`{"turns":[]}`)}
	if err := repo.Upsert(ctx, session); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if string(got.State) != `{"turns":[]}` {
		t.Errorf("state = %s", got.State)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}
}

func TestSessionRepo_UpsertReplaces(t *testing.T) {
	repo := NewSessionRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, &SessionRecord{ID: "session-1", State: []byte(`{"v":1}`)}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, &SessionRecord{ID: "session-1", State: []byte(`{"v":2}`)}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if string(got.State) != `{"v":2}` {
		t.Errorf("state = %s, want replaced value", got.State)
	}
}

func TestSessionRepo_GetByID_NotFound(t *testing.T) {
	repo := NewSessionRepo(newTestDB(t))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}
