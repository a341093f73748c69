package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmcallister/draftforge/internal/api/response"
)

// lookupID resolves the generation identifier from the URL path or, for the
// query-string variant, from the first of request_id, generation_id, id.
func lookupID(r *http.Request) string {
	if id := chi.URLParam(r, "requestID"); id != "" {
		return id
	}
	q := r.URL.Query()
	for _, key := range []string{"request_id", "generation_id", "id"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
	}
	return ""
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/generate and
// GET /api/generate/{requestID}.
func NewStatusHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := lookupID(r)
		if id == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"one of request_id, generation_id or id is required", nil)
			return
		}

		result, err := svc.Status(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, result)
	}
}

// NewCancelHandler returns an http.HandlerFunc for DELETE /api/generate and
// DELETE /api/generate/{requestID}. Cancellation marks status locally; it
// does not abort the upstream job.
func NewCancelHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := lookupID(r)
		if id == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"one of request_id, generation_id or id is required", nil)
			return
		}

		result, err := svc.Cancel(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, result)
	}
}
