package api

import (
	"net/http"
	"time"

	"github.com/ultramynd/notesync/internal/store"
	notesync "github.com/ultramynd/notesync/internal/sync"
	"github.com/ultramynd/notesync/internal/types"
	"github.com/ultramynd/notesync/internal/validation"
)

// Handler implements the API handlers
type Handler struct {
	store     store.Store
	sync      *notesync.Coordinator
	validator *validation.Validator
	model     string
	version   string
	now       func() time.Time
}

// NewHandler creates a new Handler. model is the embedding model reported
// by the health check; empty when embedding is disabled.
func NewHandler(s store.Store, c *notesync.Coordinator, model, version string) *Handler {
	return &Handler{
		store:     s,
		sync:      c,
		validator: validation.New(),
		model:     model,
		version:   version,
		now:       time.Now,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:            "healthy",
		Version:           h.version,
		EmbeddingModel:    h.model,
		Users:             stats.Users,
		Takeaways:         stats.Takeaways,
		Embeddings:        stats.Embeddings,
		PendingEmbeddings: stats.PendingEmbeddings,
	})
}

// ownerOrReject returns the authenticated owner, writing a 401 when absent.
func ownerOrReject(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, err := OwnerFromContext(r.Context())
	if err != nil {
		WriteError(w, r, KindUnauthorized)
		return "", false
	}
	return ownerID, true
}
