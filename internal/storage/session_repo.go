package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_store.go -package=mocks proposal-ai/internal/storage SessionStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionStore defines the interface for conversation session persistence.
type SessionStore interface {
	// Upsert inserts or replaces a session record.
	Upsert(ctx context.Context, session *SessionRecord) error
	// GetByID gets a session by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*SessionRecord, error)
}

// SessionRepo provides methods for session operations.
// It implements the SessionStore interface.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Upsert inserts or replaces a session record.
func (r *SessionRepo) Upsert(ctx context.Context, session *SessionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		session.ID, string(session.State), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// GetByID gets a session by its ID. Returns ErrNotFound if not found.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*SessionRecord, error) {
	var session SessionRecord
	var state string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, state, updated_at FROM sessions WHERE id = ?", id,
	).Scan(&session.ID, &state, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	session.State = []byte(state)

	return &session, nil
}
