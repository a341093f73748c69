package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmcallister/draftforge/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateGeneration(ctx context.Context, rec *models.GenerationRecord) error
	// GetGeneration looks a record up by either the client-minted request id
	// or the backend's generation id.
	GetGeneration(ctx context.Context, id string) (*models.GenerationRecord, error)
	UpdateGenerationStatus(ctx context.Context, clientID string, status string, opts ...GenerationUpdateOption) error
	ListGenerations(ctx context.Context, filter GenerationFilter) ([]*models.GenerationRecord, int, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// GenerationFilter selects and paginates generation records.
type GenerationFilter struct {
	Status   string
	Template string
	UserID   string
	Page     int
	Limit    int
}

// GenerationUpdate collects the optional column updates applied alongside a
// status change.
type GenerationUpdate struct {
	ServerID     *string
	Content      *string
	WordCount    *int
	SavedPath    *string
	ErrorMessage *string
	CompletedAt  *time.Time
}

type GenerationUpdateOption func(*GenerationUpdate)

func WithServerID(id string) GenerationUpdateOption {
	return func(p *GenerationUpdate) {
		p.ServerID = &id
	}
}

func WithContent(content string, wordCount int) GenerationUpdateOption {
	return func(p *GenerationUpdate) {
		p.Content = &content
		p.WordCount = &wordCount
	}
}

func WithSavedPath(path string) GenerationUpdateOption {
	return func(p *GenerationUpdate) {
		p.SavedPath = &path
	}
}

func WithErrorMessage(msg string) GenerationUpdateOption {
	return func(p *GenerationUpdate) {
		p.ErrorMessage = &msg
	}
}

func WithCompletedAt(t time.Time) GenerationUpdateOption {
	return func(p *GenerationUpdate) {
		p.CompletedAt = &t
	}
}
