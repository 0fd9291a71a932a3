package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"proposal-ai/internal/storage"
)

type fakeCollectionChecker struct {
	exists bool
	err    error
}

func (f *fakeCollectionChecker) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return f.exists, f.err
}

func healthTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestHealthHandler_Healthy(t *testing.T) {
	handler := NewHealthHandler(healthTestDB(t), &fakeCollectionChecker{exists: true}, "proposals")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Checks["database"] != "ok" || resp.Checks["vector_store"] != "ok" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestHealthHandler_VectorStoreDown(t *testing.T) {
	handler := NewHealthHandler(healthTestDB(t), &fakeCollectionChecker{err: context.DeadlineExceeded}, "proposals")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Checks["vector_store"] != "error" {
		t.Errorf("checks = %v", resp.Checks)
	}
	if len(resp.Issues) == 0 {
		t.Error("expected issues to be reported")
	}
}

func TestHealthHandler_MissingCollection(t *testing.T) {
	handler := NewHealthHandler(healthTestDB(t), &fakeCollectionChecker{exists: false}, "proposals")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	handler := NewHealthHandler(healthTestDB(t), &fakeCollectionChecker{exists: true}, "proposals")

	req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
