package api

import (
	"net/http"
	"time"

	"github.com/ultramynd/notesync/internal/types"
)

// CreateTagRequest is the body of POST /api/tags.
type CreateTagRequest struct {
	TagID   string `json:"tag_id" validate:"notblank,max=255"`
	TagName string `json:"tag_name" validate:"notblank,max=1024,text"`
}

// CreateSourceRequest is the body of POST /api/sources.
type CreateSourceRequest struct {
	SourceID   string `json:"source_id" validate:"notblank,max=255"`
	CategoryID string `json:"category_id" validate:"notblank,max=255"`
	SourceName string `json:"source_name" validate:"notblank,max=1024,text"`
}

// CreateTakeawayRequest is the body of POST /api/takeaways.
type CreateTakeawayRequest struct {
	TakeawayID string  `json:"takeaway_id" validate:"notblank,max=255"`
	CategoryID string  `json:"category_id" validate:"notblank,max=255"`
	SourceID   *string `json:"source_id" validate:"omitempty,max=255"`
	Content    string  `json:"content" validate:"notblank,max=100000,text"`
}

// RecordResponse wraps a created record.
type RecordResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type tagBody struct {
	TagID     string `json:"tag_id"`
	TagName   string `json:"tag_name"`
	IsDeleted bool   `json:"is_deleted"`
	UpdatedAt int64  `json:"updated_at"`
}

type sourceBody struct {
	SourceID   string `json:"source_id"`
	CategoryID string `json:"category_id"`
	SourceName string `json:"source_name"`
	IsDeleted  bool   `json:"is_deleted"`
	UpdatedAt  int64  `json:"updated_at"`
}

type takeawayBody struct {
	TakeawayID string  `json:"takeaway_id"`
	CategoryID string  `json:"category_id"`
	SourceID   *string `json:"source_id"`
	Content    string  `json:"content"`
	IsDeleted  bool    `json:"is_deleted"`
	UpdatedAt  int64   `json:"updated_at"`
}

// CreateTag handles POST /api/tags
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r)
	if !ok {
		return
	}
	var req CreateTagRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	tag := types.Tag{ID: req.TagID, OwnerID: ownerID, Name: req.TagName, UpdatedAt: h.stamp()}
	if err := h.sync.Apply(r.Context(), ownerID, types.ChangeSet{Tags: []types.Tag{tag}}); err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, RecordResponse{Success: true, Data: tagBody{
		TagID:     tag.ID,
		TagName:   tag.Name,
		UpdatedAt: tag.UpdatedAt.UnixMilli(),
	}})
}

// CreateSource handles POST /api/sources
func (h *Handler) CreateSource(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r)
	if !ok {
		return
	}
	var req CreateSourceRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	src := types.Source{
		ID:         req.SourceID,
		OwnerID:    ownerID,
		CategoryID: req.CategoryID,
		Name:       req.SourceName,
		UpdatedAt:  h.stamp(),
	}
	if err := h.sync.Apply(r.Context(), ownerID, types.ChangeSet{Sources: []types.Source{src}}); err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, RecordResponse{Success: true, Data: sourceBody{
		SourceID:   src.ID,
		CategoryID: src.CategoryID,
		SourceName: src.Name,
		UpdatedAt:  src.UpdatedAt.UnixMilli(),
	}})
}

// CreateTakeaway handles POST /api/takeaways. The new takeaway is queued
// for embedding.
func (h *Handler) CreateTakeaway(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r)
	if !ok {
		return
	}
	var req CreateTakeawayRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.SourceID != nil && *req.SourceID == "" {
		req.SourceID = nil
	}

	k := types.Takeaway{
		ID:         req.TakeawayID,
		OwnerID:    ownerID,
		CategoryID: req.CategoryID,
		SourceID:   req.SourceID,
		Content:    req.Content,
		UpdatedAt:  h.stamp(),
	}
	if err := h.sync.Apply(r.Context(), ownerID, types.ChangeSet{Takeaways: []types.Takeaway{k}}); err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, RecordResponse{Success: true, Data: takeawayBody{
		TakeawayID: k.ID,
		CategoryID: k.CategoryID,
		SourceID:   k.SourceID,
		Content:    k.Content,
		UpdatedAt:  k.UpdatedAt.UnixMilli(),
	}})
}

// decodeValid decodes and validates the body into v, writing the error
// response itself on failure.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		MapError(w, r, err)
		return false
	}
	if err := h.validator.Struct(v); err != nil {
		MapError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) stamp() time.Time {
	return h.now().UTC().Truncate(time.Millisecond)
}
