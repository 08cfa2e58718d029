package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ultramynd/notesync/internal/auth"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Verifier     auth.Verifier
	MaxBodyBytes int64
}

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(BodyLimitMiddleware(opts.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, KindNotFound)
	})

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(opts.Verifier))

		r.Post("/sync/syncdata", h.SyncData)
		r.Get("/sync/downloaddata", h.DownloadData)

		r.Post("/users", h.CreateUser)
		r.Put("/users/profile", h.UpdateProfile)
		r.Post("/profile", h.UpsertProfile)

		r.Post("/tags", h.CreateTag)
		r.Post("/sources", h.CreateSource)
		r.Post("/takeaways", h.CreateTakeaway)
	})

	return r
}
