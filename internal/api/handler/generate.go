// Package handler contains the HTTP handlers for the generation API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcallister/draftforge/internal/api/response"
	"github.com/jmcallister/draftforge/internal/backend"
	"github.com/jmcallister/draftforge/internal/generation"
	"github.com/jmcallister/draftforge/internal/store"
	"github.com/jmcallister/draftforge/pkg/models"
)

// Service defines the generation operations the handlers depend on.
type Service interface {
	Generate(ctx context.Context, in generation.RawInput) (*models.GenerationResult, error)
	Status(ctx context.Context, id string) (*models.GenerationResult, error)
	Cancel(ctx context.Context, id string) (*models.GenerationResult, error)
	History(ctx context.Context, filter store.GenerationFilter) ([]*models.GenerationRecord, int, error)
}

// NewGenerateHandler returns an http.HandlerFunc for POST /api/generate.
func NewGenerateHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in generation.RawInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.Generate(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, result)
	}
}

// writeServiceError maps a service error to the wire. The classification
// assigned by the transport layer alone determines the status code; clients
// branch on the mapping, so it must stay exact.
func writeServiceError(w http.ResponseWriter, err error) {
	requestID := ""
	var rerr *generation.RequestError
	if errors.As(err, &rerr) {
		requestID = rerr.RequestID
	}

	var verr *generation.ValidationError
	var herr *backend.HTTPError

	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", verr.Error(), nil)
	case errors.Is(err, backend.ErrUnconfigured):
		response.ErrorWithRequest(w, http.StatusServiceUnavailable,
			"NOT_CONFIGURED", "Generation backend is not configured", requestID, nil)
	case errors.Is(err, backend.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		response.ErrorWithRequest(w, http.StatusGatewayTimeout,
			"BACKEND_TIMEOUT", "Generation request timed out", requestID, nil)
	case errors.Is(err, backend.ErrTLS):
		response.ErrorWithRequest(w, http.StatusBadGateway,
			"BACKEND_TLS_ERROR", "Could not establish a secure connection to the backend", requestID, nil)
	case errors.Is(err, backend.ErrParse):
		response.ErrorWithRequest(w, http.StatusBadGateway,
			"BACKEND_BAD_RESPONSE", "Backend returned an unparseable response", requestID, nil)
	case errors.Is(err, backend.ErrUnreachable):
		response.ErrorWithRequest(w, http.StatusServiceUnavailable,
			"BACKEND_UNAVAILABLE", "Backend service unavailable", requestID, nil)
	case errors.As(err, &herr):
		// Surface the backend's own status code and parsed error detail.
		detail := herr.Detail
		if detail == "" {
			detail = "Backend returned an error"
		}
		response.ErrorWithRequest(w, herr.StatusCode,
			"BACKEND_HTTP_ERROR", detail, requestID, nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Generation not found", nil)
	default:
		response.ErrorWithRequest(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "An unexpected error occurred", requestID, nil)
	}
}
