package generation

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmcallister/draftforge/internal/archive"
	"github.com/jmcallister/draftforge/internal/backend"
	"github.com/jmcallister/draftforge/internal/store"
	"github.com/jmcallister/draftforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeBackend struct {
	mu sync.Mutex

	submitPayload backend.Payload
	submitErr     error

	statusResponses []backend.Payload
	statusErrs      []error
	statusCalls     int
	statusIDs       []string
}

func (f *fakeBackend) Submit(ctx context.Context, req *models.GenerationRequest) (backend.Payload, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitPayload, nil
}

func (f *fakeBackend) Status(ctx context.Context, id string) (backend.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	f.statusIDs = append(f.statusIDs, id)
	if i < len(f.statusErrs) && f.statusErrs[i] != nil {
		return nil, f.statusErrs[i]
	}
	if i < len(f.statusResponses) {
		return f.statusResponses[i], nil
	}
	if len(f.statusResponses) > 0 {
		return f.statusResponses[len(f.statusResponses)-1], nil
	}
	return backend.Payload{"status": models.StatusPending}, nil
}

type memStore struct {
	mu         sync.Mutex
	recs       map[string]*models.GenerationRecord
	failCreate bool
	failUpdate bool
}

func newMemStore() *memStore {
	return &memStore{recs: map[string]*models.GenerationRecord{}}
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) CreateGeneration(ctx context.Context, rec *models.GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("db down")
	}
	cp := *rec
	m.recs[rec.ClientID] = &cp
	return nil
}

func (m *memStore) GetGeneration(ctx context.Context, id string) (*models.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.recs[id]; ok {
		cp := *rec
		return &cp, nil
	}
	for _, rec := range m.recs {
		if rec.ServerID != nil && *rec.ServerID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpdateGenerationStatus(ctx context.Context, clientID string, status string, opts ...store.GenerationUpdateOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate {
		return errors.New("db down")
	}
	rec, ok := m.recs[clientID]
	if !ok {
		return store.ErrNotFound
	}
	rec.Status = status
	var u store.GenerationUpdate
	for _, opt := range opts {
		opt(&u)
	}
	if u.ServerID != nil {
		rec.ServerID = u.ServerID
	}
	if u.Content != nil {
		rec.Content = u.Content
	}
	if u.WordCount != nil {
		rec.WordCount = u.WordCount
	}
	if u.SavedPath != nil {
		rec.SavedPath = u.SavedPath
	}
	if u.ErrorMessage != nil {
		rec.ErrorMessage = u.ErrorMessage
	}
	if u.CompletedAt != nil {
		rec.CompletedAt = u.CompletedAt
	}
	return nil
}

func (m *memStore) ListGenerations(ctx context.Context, filter store.GenerationFilter) ([]*models.GenerationRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GenerationRecord
	for _, rec := range m.recs {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	return nil, nil
}
func (m *memStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error  { return nil }
func (m *memStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error    { return nil }
func (m *memStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)     { return nil, nil }
func (m *memStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error          { return nil }

type memCache struct {
	mu       sync.Mutex
	statuses map[string]string
}

func newMemCache() *memCache { return &memCache{statuses: map[string]string{}} }

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}
func (c *memCache) Delete(ctx context.Context, key string) error { return nil }
func (c *memCache) Ping(ctx context.Context) error               { return nil }

func (c *memCache) SetGenerationStatus(ctx context.Context, id string, status string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[id] = status
	return nil
}

func (c *memCache) GetGenerationStatus(ctx context.Context, id string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[id]
	return s, ok, nil
}

func (c *memCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	return 1, nil
}

// --- harness ---

type harness struct {
	svc     *Service
	backend *fakeBackend
	store   *memStore
	cache   *memCache
}

func newHarness(t *testing.T, fb *fakeBackend) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	st := newMemStore()
	ca := newMemCache()
	ar := archive.NewWriter(t.TempDir(), logger)
	poller := backend.NewPoller(fb, time.Millisecond, 20)
	return &harness{
		svc:     NewService(fb, poller, st, ca, ar, logger),
		backend: fb,
		store:   st,
		cache:   ca,
	}
}

func validInput() RawInput {
	return RawInput{Template: "blog_post", StyleProfile: "professional", Topic: "API Testing"}
}

// --- Generate ---

func TestGenerate_ValidationErrorBeforeSubmit(t *testing.T) {
	fb := &fakeBackend{submitErr: errors.New("must not be called")}
	h := newHarness(t, fb)

	_, err := h.svc.Generate(context.Background(), RawInput{Topic: "no ids"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, fb.statusCalls)
}

func TestGenerate_ImmediateCompletion(t *testing.T) {
	content := "This generated article body comfortably exceeds the archive threshold."
	fb := &fakeBackend{
		submitPayload: backend.Payload{
			"status": "completed", "generation_id": "gen-1", "content": content,
		},
	}
	h := newHarness(t, fb)

	res, err := h.svc.Generate(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.Equal(t, content, res.Content)
	assert.Equal(t, "gen-1", res.GenerationID)
	assert.NotEmpty(t, res.RequestID)
	assert.Zero(t, fb.statusCalls, "terminal submit response must not trigger polling")

	assert.Equal(t, "API Testing", res.Metadata["topic"])
	assert.Equal(t, "blog_post", res.Metadata["template_used"])
	assert.Equal(t, 9, res.Metadata["word_count"])
	assert.NotContains(t, res.Metadata, "extraction_empty")
	assert.Contains(t, res.Metadata, "saved_path")

	rec, err := h.store.GetGeneration(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
	require.NotNil(t, rec.Content)
	assert.Equal(t, content, *rec.Content)
	assert.NotNil(t, rec.SavedPath)
	assert.NotNil(t, rec.CompletedAt)

	// Archived file actually exists on disk.
	_, statErr := os.Stat(res.Metadata["saved_path"].(string))
	assert.NoError(t, statErr)
}

func TestGenerate_PendingThenCompletedAfterPolls(t *testing.T) {
	content := "Hello world, this is a generated article with plenty of body text."
	fb := &fakeBackend{
		submitPayload: backend.Payload{"status": "pending", "generation_id": "gen-poll"},
		statusResponses: []backend.Payload{
			{"status": "pending", "generation_id": "gen-poll"},
			{"status": "processing", "generation_id": "gen-poll"},
			{"status": "completed", "generation_id": "gen-poll", "content": content},
		},
	}
	h := newHarness(t, fb)

	res, err := h.svc.Generate(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.Equal(t, content, res.Content)
	assert.Equal(t, 3, fb.statusCalls)
	for _, id := range fb.statusIDs {
		assert.Equal(t, "gen-poll", id, "polling must use the backend's id once resolved")
	}

	rec, err := h.store.GetGeneration(context.Background(), "gen-poll")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
	assert.NotNil(t, rec.SavedPath, "saved-content record expected for content above threshold")
}

func TestGenerate_CompletedWithEmptyContent(t *testing.T) {
	fb := &fakeBackend{
		submitPayload: backend.Payload{"status": "completed", "generation_id": "gen-empty"},
	}
	h := newHarness(t, fb)

	res, err := h.svc.Generate(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, res.Success, "empty extraction is not a failure")
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.Equal(t, "", res.Content)
	assert.Equal(t, true, res.Metadata["extraction_empty"])
	assert.NotContains(t, res.Metadata, "saved_path")
}

func TestGenerate_PollBudgetExhausted(t *testing.T) {
	fb := &fakeBackend{
		submitPayload:   backend.Payload{"status": "pending", "generation_id": "gen-slow"},
		statusResponses: []backend.Payload{{"status": "pending", "generation_id": "gen-slow"}},
	}
	h := newHarness(t, fb)

	res, err := h.svc.Generate(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, models.StatusProcessing, res.Status)
	assert.Equal(t, true, res.Metadata["poll_budget_exhausted"])
	assert.Equal(t, 20, fb.statusCalls)
}

func TestGenerate_SubmitFailureCarriesRequestID(t *testing.T) {
	fb := &fakeBackend{submitErr: backend.ErrUnreachable}
	h := newHarness(t, fb)

	_, err := h.svc.Generate(context.Background(), validInput())
	require.Error(t, err)

	var rerr *RequestError
	require.ErrorAs(t, err, &rerr)
	assert.NotEmpty(t, rerr.RequestID)
	assert.ErrorIs(t, err, backend.ErrUnreachable)

	rec, err := h.store.GetGeneration(context.Background(), rerr.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.Status)
	require.NotNil(t, rec.ErrorMessage)
}

func TestGenerate_BackendFailedStatus(t *testing.T) {
	fb := &fakeBackend{
		submitPayload: backend.Payload{
			"status": "failed", "generation_id": "gen-bad", "error": "model exploded",
		},
	}
	h := newHarness(t, fb)

	res, err := h.svc.Generate(context.Background(), validInput())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.StatusFailed, res.Status)
}

func TestGenerate_PersistenceFailureIsolated(t *testing.T) {
	content := "A perfectly good article that must survive a database outage event."
	fb := &fakeBackend{
		submitPayload: backend.Payload{"status": "completed", "generation_id": "gen-iso", "content": content},
	}
	h := newHarness(t, fb)
	h.store.failCreate = true
	h.store.failUpdate = true

	res, err := h.svc.Generate(context.Background(), validInput())
	require.NoError(t, err, "a successful generation is never invalidated by a failed save")
	assert.True(t, res.Success)
	assert.Equal(t, content, res.Content)
}

// --- Status ---

func TestStatus_QueriesBackend(t *testing.T) {
	fb := &fakeBackend{
		statusResponses: []backend.Payload{
			{"status": "processing", "generation_id": "gen-st", "progress": 40},
		},
	}
	h := newHarness(t, fb)

	res, err := h.svc.Status(context.Background(), "gen-st")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, res.Status)
	assert.Equal(t, 40, res.Progress)
	assert.Equal(t, 1, fb.statusCalls)
}

func TestStatus_BackendErrorPropagates(t *testing.T) {
	fb := &fakeBackend{statusErrs: []error{backend.ErrUnreachable}}
	h := newHarness(t, fb)

	_, err := h.svc.Status(context.Background(), "gen-down")
	assert.ErrorIs(t, err, backend.ErrUnreachable)
}

// --- Cancel ---

func TestCancel_MarksLocalStateOnly(t *testing.T) {
	fb := &fakeBackend{
		submitPayload: backend.Payload{"status": "completed", "generation_id": "gen-cancel",
			"content": "Body long enough to clear the fifty character archive threshold."},
	}
	h := newHarness(t, fb)

	res, err := h.svc.Generate(context.Background(), validInput())
	require.NoError(t, err)

	cancelled, err := h.svc.Cancel(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	rec, err := h.store.GetGeneration(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, rec.Status)

	// A status lookup now resolves locally; the backend is not consulted.
	before := fb.statusCalls
	got, err := h.svc.Status(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, before, fb.statusCalls)
}

func TestCancel_UnknownIDStillMarksCache(t *testing.T) {
	fb := &fakeBackend{}
	h := newHarness(t, fb)

	res, err := h.svc.Cancel(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, res.Status)

	status, found, err := h.cache.GetGenerationStatus(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.StatusCancelled, status)
}
