package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmcallister/draftforge/internal/archive"
	"github.com/jmcallister/draftforge/internal/backend"
	"github.com/jmcallister/draftforge/internal/cache"
	"github.com/jmcallister/draftforge/internal/extract"
	"github.com/jmcallister/draftforge/internal/store"
	"github.com/jmcallister/draftforge/pkg/models"
)

// statusCacheTTL bounds how long a cached generation status is trusted.
const statusCacheTTL = 30 * time.Minute

// RequestError carries the request id minted during normalization alongside
// the underlying failure, so error responses can still reference the request.
type RequestError struct {
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: %v", e.RequestID, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Service orchestrates the full generation lifecycle: normalize, submit,
// poll to completion, extract content, persist, archive. Steps within one
// request are strictly sequential; concurrent requests are independent.
type Service struct {
	client  backend.Client
	poller  *backend.Poller
	store   store.Store
	cache   cache.Cache
	archive *archive.Writer
	logger  *slog.Logger

	now func() time.Time
}

func NewService(client backend.Client, poller *backend.Poller, st store.Store, ca cache.Cache, ar *archive.Writer, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		poller:  poller,
		store:   st,
		cache:   ca,
		archive: ar,
		logger:  logger.With("component", "generation"),
		now:     time.Now,
	}
}

// Generate runs one request end to end. Validation failures surface as
// *ValidationError before anything is submitted; transport failures after
// normalization are wrapped in *RequestError so the minted request id
// survives into the error response. Persistence and archival failures are
// logged but never fail a generation that otherwise succeeded.
func (s *Service) Generate(ctx context.Context, in RawInput) (*models.GenerationResult, error) {
	req, err := Normalize(in)
	if err != nil {
		return nil, err
	}

	started := s.now()
	s.recordPending(ctx, req)

	payload, err := s.client.Submit(ctx, req)
	if err != nil {
		s.recordFailure(ctx, req.RequestID, err)
		return nil, &RequestError{RequestID: req.RequestID, Err: err}
	}

	// Resolve the correlation pair exactly once, from the first backend
	// response. Everything downstream uses this pair, never raw fallbacks.
	corr := models.Correlation{ClientID: req.RequestID, ServerID: payload.GenerationID()}
	if corr.ServerID != "" {
		s.recordServerID(ctx, corr)
	}

	budgetExhausted := false
	if st := payload.Status(); st == models.StatusPending || st == models.StatusProcessing {
		s.cacheStatus(ctx, corr, st)
		payload, err = s.poller.Wait(ctx, corr.PollID(), payload)
		if err != nil {
			s.recordFailure(ctx, req.RequestID, err)
			return nil, &RequestError{RequestID: req.RequestID, Err: err}
		}
		if st := payload.Status(); st == models.StatusPending || st == models.StatusProcessing {
			budgetExhausted = true
		}
	}

	result := s.assemble(req, corr, payload, started, budgetExhausted)
	s.finish(ctx, req, corr, result)
	return result, nil
}

// assemble turns the final backend payload into the client-facing result.
func (s *Service) assemble(req *models.GenerationRequest, corr models.Correlation, payload backend.Payload, started time.Time, budgetExhausted bool) *models.GenerationResult {
	status := payload.Status()
	if budgetExhausted {
		// Still in flight when the budget ran out. The job is not failed,
		// the caller can keep checking status.
		status = models.StatusProcessing
	}

	content := extract.Content(payload.ExtractionValue())
	wordCount := len(strings.Fields(content))

	metadata := payload.Metadata()
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["template_used"] = req.Template
	metadata["style_profile_used"] = req.StyleProfile
	metadata["topic"] = req.Topic
	metadata["word_count"] = wordCount
	metadata["processing_time_ms"] = s.now().Sub(started).Milliseconds()
	if budgetExhausted {
		metadata["poll_budget_exhausted"] = true
	}
	if status == models.StatusCompleted && content == "" {
		// Completed upstream but nothing extractable. Still a success, the
		// flag lets clients distinguish it from a rich completion.
		metadata["extraction_empty"] = true
	}

	return &models.GenerationResult{
		Success:             status != models.StatusFailed,
		GenerationID:        corr.PollID(),
		RequestID:           corr.ClientID,
		Status:              status,
		Content:             content,
		Metadata:            metadata,
		EstimatedCompletion: payload.EstimatedCompletion(),
		Progress:            payload.Progress(),
	}
}

// finish persists and archives the outcome. Failures here are isolated; a
// successful generation is never invalidated by a failed save.
func (s *Service) finish(ctx context.Context, req *models.GenerationRequest, corr models.Correlation, result *models.GenerationResult) {
	s.cacheStatus(ctx, corr, result.Status)

	opts := []store.GenerationUpdateOption{}
	if result.Content != "" {
		opts = append(opts, store.WithContent(result.Content, len(strings.Fields(result.Content))))
	}
	if result.Status == models.StatusCompleted || result.Status == models.StatusFailed {
		opts = append(opts, store.WithCompletedAt(s.now().UTC()))
	}

	if result.Status == models.StatusCompleted {
		rec, err := s.archive.Save(req, result.Content)
		if err != nil {
			s.logger.Error("archive failed", "request_id", req.RequestID, "error", err)
		} else if rec != nil {
			result.Metadata["saved_path"] = rec.MarkdownPath
			opts = append(opts, store.WithSavedPath(rec.MarkdownPath))
		}
	}

	if err := s.store.UpdateGenerationStatus(ctx, corr.ClientID, result.Status, opts...); err != nil {
		s.logger.Error("persist generation outcome failed", "request_id", req.RequestID, "error", err)
	}
}

// Status reports the current state of a generation by either id of the
// correlation pair. A local cancellation wins over whatever the backend
// would say, since cancellation only marks status on our side.
func (s *Service) Status(ctx context.Context, id string) (*models.GenerationResult, error) {
	corr := models.Correlation{ClientID: id}
	if rec, err := s.store.GetGeneration(ctx, id); err == nil {
		corr.ClientID = rec.ClientID
		if rec.ServerID != nil {
			corr.ServerID = *rec.ServerID
		}
		if rec.Status == models.StatusCancelled {
			return &models.GenerationResult{
				Success:      true,
				GenerationID: corr.PollID(),
				RequestID:    corr.ClientID,
				Status:       models.StatusCancelled,
			}, nil
		}
	}

	if cached, found, err := s.cache.GetGenerationStatus(ctx, corr.PollID()); err == nil && found && cached == models.StatusCancelled {
		return &models.GenerationResult{
			Success:      true,
			GenerationID: corr.PollID(),
			RequestID:    corr.ClientID,
			Status:       models.StatusCancelled,
		}, nil
	}

	payload, err := s.client.Status(ctx, corr.PollID())
	if err != nil {
		return nil, err
	}

	if corr.ServerID == "" {
		corr.ServerID = payload.GenerationID()
	}
	s.cacheStatus(ctx, corr, payload.Status())

	content := extract.Content(payload.ExtractionValue())
	return &models.GenerationResult{
		Success:             payload.Status() != models.StatusFailed,
		GenerationID:        corr.PollID(),
		RequestID:           corr.ClientID,
		Status:              payload.Status(),
		Content:             content,
		Metadata:            payload.Metadata(),
		EstimatedCompletion: payload.EstimatedCompletion(),
		Progress:            payload.Progress(),
	}, nil
}

// Cancel marks a generation cancelled locally. It does not abort the
// upstream job; a poll loop already in flight runs out its budget.
func (s *Service) Cancel(ctx context.Context, id string) (*models.GenerationResult, error) {
	corr := models.Correlation{ClientID: id}
	if rec, err := s.store.GetGeneration(ctx, id); err == nil {
		corr.ClientID = rec.ClientID
		if rec.ServerID != nil {
			corr.ServerID = *rec.ServerID
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := s.store.UpdateGenerationStatus(ctx, corr.ClientID, models.StatusCancelled); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	s.cacheStatus(ctx, corr, models.StatusCancelled)

	s.logger.Info("generation cancelled", "request_id", corr.ClientID, "generation_id", corr.ServerID)
	return &models.GenerationResult{
		Success:      true,
		GenerationID: corr.PollID(),
		RequestID:    corr.ClientID,
		Status:       models.StatusCancelled,
	}, nil
}

// History lists persisted generations, newest first.
func (s *Service) History(ctx context.Context, filter store.GenerationFilter) ([]*models.GenerationRecord, int, error) {
	return s.store.ListGenerations(ctx, filter)
}

func (s *Service) recordPending(ctx context.Context, req *models.GenerationRequest) {
	rec := &models.GenerationRecord{
		ID:             req.RequestID,
		ClientID:       req.RequestID,
		Template:       req.Template,
		StyleProfile:   req.StyleProfile,
		Topic:          req.Topic,
		GenerationMode: req.GenerationMode,
		Status:         models.StatusPending,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.CreatedAt,
	}
	if req.UserID != "" {
		rec.UserID = &req.UserID
	}
	if err := s.store.CreateGeneration(ctx, rec); err != nil {
		s.logger.Error("persist pending generation failed", "request_id", req.RequestID, "error", err)
	}
}

func (s *Service) recordServerID(ctx context.Context, corr models.Correlation) {
	err := s.store.UpdateGenerationStatus(ctx, corr.ClientID, models.StatusProcessing, store.WithServerID(corr.ServerID))
	if err != nil {
		s.logger.Error("persist server id failed", "request_id", corr.ClientID, "error", err)
	}
}

func (s *Service) recordFailure(ctx context.Context, clientID string, cause error) {
	err := s.store.UpdateGenerationStatus(ctx, clientID, models.StatusFailed,
		store.WithErrorMessage(cause.Error()),
		store.WithCompletedAt(s.now().UTC()))
	if err != nil {
		s.logger.Error("persist generation failure failed", "request_id", clientID, "error", err)
	}
}

// cacheStatus writes to both ids of the pair so a status lookup by either
// one hits.
func (s *Service) cacheStatus(ctx context.Context, corr models.Correlation, status string) {
	if err := s.cache.SetGenerationStatus(ctx, corr.ClientID, status, statusCacheTTL); err != nil {
		s.logger.Warn("cache status failed", "request_id", corr.ClientID, "error", err)
	}
	if corr.ServerID != "" && corr.ServerID != corr.ClientID {
		if err := s.cache.SetGenerationStatus(ctx, corr.ServerID, status, statusCacheTTL); err != nil {
			s.logger.Warn("cache status failed", "generation_id", corr.ServerID, "error", err)
		}
	}
}
