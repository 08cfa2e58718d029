package api

import (
	"errors"
	"net/http"

	"github.com/ultramynd/notesync/internal/store"
	"github.com/ultramynd/notesync/internal/types"
)

const (
	defaultUserName = "User"
	defaultUserBio  = "Mobile User"
)

// UserResponse wraps a stored profile.
type UserResponse struct {
	Success bool        `json:"success"`
	User    *types.User `json:"user"`
}

// CreateUserRequest is the optional body of POST /api/users.
type CreateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=255,text"`
	Bio   *string `json:"bio" validate:"omitempty,max=255,text"`
	Email *string `json:"email" validate:"omitempty,max=320,text"`
}

// UpdateProfileRequest is the body of PUT /api/users/profile.
type UpdateProfileRequest struct {
	Name *string `json:"name" validate:"omitempty,max=255,text"`
	Bio  *string `json:"bio" validate:"omitempty,max=255,text"`
}

// UpsertProfileRequest is the body of POST /api/profile.
type UpsertProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,max=255,text"`
	Bio      *string `json:"bio" validate:"omitempty,max=255,text"`
	Email    *string `json:"email" validate:"omitempty,max=320,text"`
}

// CreateUser handles POST /api/users. A new profile gets default name and
// bio for fields the body leaves out; an existing profile is only updated
// with the supplied fields.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		MapError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		MapError(w, r, err)
		return
	}

	status := http.StatusOK
	_, err := h.store.GetUser(r.Context(), ownerID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusCreated
		req.Name = orDefault(req.Name, defaultUserName)
		req.Bio = orDefault(req.Bio, defaultUserBio)
	case err != nil:
		MapError(w, r, err)
		return
	}

	user, err := h.store.UpsertProfile(r.Context(), types.Profile{
		OwnerID: ownerID,
		Name:    req.Name,
		Bio:     req.Bio,
		Email:   req.Email,
	})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, status, UserResponse{Success: true, User: user})
}

// UpdateProfile handles PUT /api/users/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		MapError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		MapError(w, r, err)
		return
	}

	user, err := h.store.UpdateProfile(r.Context(), types.Profile{
		OwnerID: ownerID,
		Name:    req.Name,
		Bio:     req.Bio,
	})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}

// UpsertProfile handles POST /api/profile
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r)
	if !ok {
		return
	}

	var req UpsertProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		MapError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		MapError(w, r, err)
		return
	}

	user, err := h.store.UpsertProfile(r.Context(), types.Profile{
		OwnerID: ownerID,
		Name:    req.Username,
		Bio:     req.Bio,
		Email:   req.Email,
	})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}

func orDefault(v *string, def string) *string {
	if v != nil {
		return v
	}
	return &def
}
