package handler

import (
	"net/http"
	"strconv"

	"github.com/jmcallister/draftforge/internal/api/response"
	"github.com/jmcallister/draftforge/internal/catalog"
	"github.com/jmcallister/draftforge/internal/store"
)

// NewTemplatesHandler returns an http.HandlerFunc for GET /api/templates.
func NewTemplatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, catalog.Templates())
	}
}

// NewStylesHandler returns an http.HandlerFunc for GET /api/styles.
func NewStylesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, catalog.StyleProfiles())
	}
}

// NewHistoryHandler returns an http.HandlerFunc for GET /api/generations.
func NewHistoryHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		if page <= 0 {
			page = 1
		}
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		filter := store.GenerationFilter{
			Status:   q.Get("status"),
			Template: q.Get("template"),
			UserID:   q.Get("user_id"),
			Page:     page,
			Limit:    limit,
		}

		recs, total, err := svc.History(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.Collection(w, recs, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}
