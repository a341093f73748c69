package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/jmcallister/draftforge/internal/api/middleware"
	"github.com/jmcallister/draftforge/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler    http.HandlerFunc
	GenerateHandler  http.HandlerFunc
	StatusHandler    http.HandlerFunc
	CancelHandler    http.HandlerFunc
	TemplatesHandler http.HandlerFunc
	StylesHandler    http.HandlerFunc
	HistoryHandler   http.HandlerFunc
	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/generate", orNotImplemented(deps.GenerateHandler))
		r.Get("/api/generate", orNotImplemented(deps.StatusHandler))
		r.Get("/api/generate/{requestID}", orNotImplemented(deps.StatusHandler))
		r.Delete("/api/generate", orNotImplemented(deps.CancelHandler))
		r.Delete("/api/generate/{requestID}", orNotImplemented(deps.CancelHandler))

		r.Get("/api/templates", orNotImplemented(deps.TemplatesHandler))
		r.Get("/api/styles", orNotImplemented(deps.StylesHandler))
		r.Get("/api/generations", orNotImplemented(deps.HistoryHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
