package conversation

import (
	"context"
	"sync"
	"time"

	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/storage"
)

// Manager owns per-session conversation contexts: an in-memory map for the
// hot path, written through to session storage so conversations survive a
// restart. Sessions are independent; turns recorded in one are invisible to
// every other.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Context
	store    storage.SessionStore
	capacity int
}

func NewManager(store storage.SessionStore, capacity int) *Manager {
	return &Manager{
		sessions: make(map[string]*Context),
		store:    store,
		capacity: capacity,
	}
}

// Get returns the context for a session, loading persisted state on first
// access and creating a fresh context for unknown sessions. A corrupt or
// unreadable persisted context is logged and replaced rather than failing
// the query.
func (m *Manager) Get(ctx context.Context, sessionID string) *Context {
	logger := contextutil.LoggerFromContext(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if convo, ok := m.sessions[sessionID]; ok {
		return convo
	}

	convo := NewContext(m.capacity)
	record, err := m.store.GetByID(ctx, sessionID)
	if err != nil && err != storage.ErrNotFound {
		logger.WarnContext(ctx, "failed to load session, starting fresh", "session_id", sessionID, "error", err)
	}
	if record != nil {
		decoded, err := DecodeContext(record.State, m.capacity)
		if err != nil {
			logger.WarnContext(ctx, "failed to decode session state, starting fresh", "session_id", sessionID, "error", err)
		} else {
			convo = decoded
		}
	}

	m.sessions[sessionID] = convo
	return convo
}

// RecordTurn appends a turn to a session and persists the updated state.
// Persistence is best-effort: a storage failure loses durability, not the
// in-memory conversation.
func (m *Manager) RecordTurn(ctx context.Context, sessionID string, turn Turn) {
	logger := contextutil.LoggerFromContext(ctx)

	m.mu.Lock()
	convo, ok := m.sessions[sessionID]
	if !ok {
		convo = NewContext(m.capacity)
		m.sessions[sessionID] = convo
	}
	convo.RecordTurn(turn)
	state, err := convo.Encode()
	m.mu.Unlock()

	if err != nil {
		logger.ErrorContext(ctx, "failed to encode session state", "session_id", sessionID, "error", err)
		return
	}
	if err := m.store.Upsert(ctx, &storage.SessionRecord{
		ID:        sessionID,
		State:     state,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "failed to persist session state", "session_id", sessionID, "error", err)
	}
}
