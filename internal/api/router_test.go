package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmcallister/draftforge/internal/api"
	mw "github.com/jmcallister/draftforge/internal/api/middleware"
	"github.com/jmcallister/draftforge/internal/cache"
	"github.com/jmcallister/draftforge/internal/store"
	"github.com/jmcallister/draftforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub store that returns empty results (all auth fails) ---

type stubStore struct{}

func (s *stubStore) Ping(_ context.Context) error { return nil }
func (s *stubStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *stubStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error    { return nil }
func (s *stubStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error)   { return nil, nil }
func (s *stubStore) RevokeAPIKey(_ context.Context, _ uuid.UUID) error         { return nil }
func (s *stubStore) CreateGeneration(_ context.Context, _ *models.GenerationRecord) error {
	return nil
}
func (s *stubStore) GetGeneration(_ context.Context, _ string) (*models.GenerationRecord, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) UpdateGenerationStatus(_ context.Context, _ string, _ string, _ ...store.GenerationUpdateOption) error {
	return nil
}
func (s *stubStore) ListGenerations(_ context.Context, _ store.GenerationFilter) ([]*models.GenerationRecord, int, error) {
	return nil, 0, nil
}

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}
func (c *stubCache) Delete(_ context.Context, _ string) error { return nil }
func (c *stubCache) Ping(_ context.Context) error             { return nil }
func (c *stubCache) SetGenerationStatus(_ context.Context, _ string, _ string, _ time.Duration) error {
	return nil
}
func (c *stubCache) GetGenerationStatus(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

func newTestRouter() http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(&stubStore{}),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/generate"},
		{"GET", "/api/generate"},
		{"GET", "/api/generate/req-1"},
		{"DELETE", "/api/generate"},
		{"GET", "/api/templates"},
		{"GET", "/api/styles"},
		{"GET", "/api/generations"},
		{"POST", "/api/admin/keys"},
		{"GET", "/api/admin/keys"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Verify stubs satisfy the real interfaces
var _ store.Store = (*stubStore)(nil)
var _ cache.Cache = (*stubCache)(nil)
