// Package models contains shared data models used across the DraftForge codebase.
package models

import (
	"time"
)

// Generation statuses as reported by the backend and surfaced to clients.
// Absence of a status in a backend payload is treated as unknown.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
	StatusUnknown    = "unknown"
)

// Generation modes accepted by the backend.
const (
	ModeStandard   = "standard"
	ModeEnhanced   = "enhanced"
	ModePremium    = "premium"
	ModeEnterprise = "enterprise"
)

// GenerationRequest is the canonical outbound payload sent to the backend.
// RequestID is minted client-side exactly once per submission and is distinct
// from the backend's own generation id; see Correlation.
type GenerationRequest struct {
	RequestID         string         `json:"request_id"`
	Template          string         `json:"template"`
	StyleProfile      string         `json:"style_profile"`
	Topic             string         `json:"topic"`
	Audience          string         `json:"audience"`
	Platform          string         `json:"platform"`
	Length            string         `json:"length"`
	Tags              []string       `json:"tags"`
	Tone              string         `json:"tone"`
	Code              bool           `json:"code"`
	DynamicParameters map[string]any `json:"dynamic_parameters"`
	Priority          int            `json:"priority"`
	TimeoutSeconds    int            `json:"timeout_seconds"`
	GenerationMode    string         `json:"generation_mode"`
	CreatedAt         time.Time      `json:"created_at"`
	UserID            string         `json:"user_id,omitempty"`
}

// Correlation pairs the client-minted request id with the backend's own
// generation id. ServerID is resolved once, from the first backend response,
// and the pair is threaded through polling and persistence from then on.
type Correlation struct {
	ClientID string `json:"client_id"`
	ServerID string `json:"server_id,omitempty"`
}

// PollID returns the identifier to use for status polling: the backend's id
// when one was issued, the client id otherwise.
func (c Correlation) PollID() string {
	if c.ServerID != "" {
		return c.ServerID
	}
	return c.ClientID
}

// GenerationResult is the normalized, client-facing outcome of one request.
type GenerationResult struct {
	Success             bool           `json:"success"`
	GenerationID        string         `json:"generation_id"`
	RequestID           string         `json:"request_id"`
	Status              string         `json:"status"`
	Content             string         `json:"content"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	EstimatedCompletion string         `json:"estimated_completion,omitempty"`
	Progress            int            `json:"progress"`
}

// GenerationRecord is the persisted row tracking one generation request.
type GenerationRecord struct {
	ID             string     `db:"id"              json:"id"`
	ClientID       string     `db:"client_id"       json:"client_id"`
	ServerID       *string    `db:"server_id"       json:"server_id,omitempty"`
	Template       string     `db:"template"        json:"template"`
	StyleProfile   string     `db:"style_profile"   json:"style_profile"`
	Topic          string     `db:"topic"           json:"topic"`
	GenerationMode string     `db:"generation_mode" json:"generation_mode"`
	Status         string     `db:"status"          json:"status"`
	Content        *string    `db:"content"         json:"content,omitempty"`
	WordCount      *int       `db:"word_count"      json:"word_count,omitempty"`
	SavedPath      *string    `db:"saved_path"      json:"saved_path,omitempty"`
	ErrorMessage   *string    `db:"error_message"   json:"error_message,omitempty"`
	UserID         *string    `db:"user_id"         json:"user_id,omitempty"`
	CompletedAt    *time.Time `db:"completed_at"    json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}
