package api

import (
	"context"
	"net/http"
	"strconv"

	notesync "github.com/ultramynd/notesync/internal/sync"
	"github.com/ultramynd/notesync/internal/validation"
)

// SyncResponse is the body of a successful sync or download.
type SyncResponse struct {
	Success bool               `json:"success"`
	Data    *notesync.SyncData `json:"data"`
}

// SyncData handles POST /api/sync/syncdata
func (h *Handler) SyncData(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r)
	if !ok {
		return
	}

	var req notesync.SyncRequest
	if err := decodeJSON(r, &req); err != nil {
		MapError(w, r, err)
		return
	}

	// A sync runs to completion once its body has been read.
	ctx := context.WithoutCancel(r.Context())
	data, err := h.sync.Sync(ctx, ownerID, req)
	if err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{Success: true, Data: data})
}

// DownloadData handles GET /api/sync/downloaddata?last_synced=<ms>
func (h *Handler) DownloadData(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r)
	if !ok {
		return
	}

	var lastSynced int64
	if raw := r.URL.Query().Get("last_synced"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteValidationErrors(w, r, []validation.ValidationError{
				{Field: "last_synced", Message: "must be a millisecond timestamp"},
			})
			return
		}
		lastSynced = v
	}

	data, err := h.sync.Pull(r.Context(), ownerID, notesync.Millis(lastSynced))
	if err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{Success: true, Data: data})
}
