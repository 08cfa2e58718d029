package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ultramynd/notesync/internal/store"
	notesync "github.com/ultramynd/notesync/internal/sync"
	"github.com/ultramynd/notesync/internal/validation"
)

// ErrorKind is the client-visible classification of a failed request.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindStorage      ErrorKind = "storage"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindTooLarge     ErrorKind = "too_large"
	KindInternal     ErrorKind = "internal"
)

// errorKinds maps each kind to its status and fixed client message.
var errorKinds = map[ErrorKind]struct {
	status  int
	message string
}{
	KindValidation:   {http.StatusBadRequest, "Request contains invalid fields"},
	KindConflict:     {http.StatusConflict, "Record belongs to another user"},
	KindStorage:      {http.StatusInternalServerError, "Failed to store or read data"},
	KindUnauthorized: {http.StatusUnauthorized, "Missing or invalid credentials"},
	KindNotFound:     {http.StatusNotFound, "Resource not found"},
	KindTooLarge:     {http.StatusRequestEntityTooLarge, "Request body too large"},
	KindInternal:     {http.StatusInternalServerError, "Internal Server Error"},
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success       bool                         `json:"success"`
	Message       string                       `json:"message"`
	ErrorKind     ErrorKind                    `json:"error_kind"`
	CorrelationID string                       `json:"correlation_id,omitempty"`
	Errors        []validation.ValidationError `json:"errors,omitempty"`
}

// WriteError writes the error envelope for kind.
func WriteError(w http.ResponseWriter, r *http.Request, kind ErrorKind) {
	writeError(w, r, kind, nil)
}

// WriteValidationErrors writes a validation failure listing the offending fields.
func WriteValidationErrors(w http.ResponseWriter, r *http.Request, errs []validation.ValidationError) {
	writeError(w, r, KindValidation, errs)
}

func writeError(w http.ResponseWriter, r *http.Request, kind ErrorKind, fields []validation.ValidationError) {
	k, ok := errorKinds[kind]
	if !ok {
		kind = KindInternal
		k = errorKinds[KindInternal]
	}
	writeJSON(w, k.status, ErrorResponse{
		Success:       false,
		Message:       k.message,
		ErrorKind:     kind,
		CorrelationID: CorrelationIDFromContext(r.Context()),
		Errors:        fields,
	})
}

// MapError classifies err and writes the matching envelope. The full error
// is logged with the correlation id; the client only sees the kind.
func MapError(w http.ResponseWriter, r *http.Request, err error) {
	var syncErr *notesync.Error
	var fieldErrs validation.Errors
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		WriteError(w, r, KindTooLarge)
		return
	case errors.As(err, &syncErr) && syncErr.Kind == notesync.KindValidation:
		WriteValidationErrors(w, r, syncErr.Fields())
		return
	case errors.As(err, &fieldErrs):
		WriteValidationErrors(w, r, fieldErrs)
		return
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, r, KindNotFound)
		return
	}

	kind := KindInternal
	switch {
	case errors.Is(err, store.ErrOwnerConflict):
		kind = KindConflict
	case syncErr != nil && syncErr.Kind == notesync.KindStorage:
		kind = KindStorage
	}

	slog.Error("request failed",
		"component", "api",
		"action", "error",
		"path", r.URL.Path,
		"error_kind", string(kind),
		"correlation_id", CorrelationIDFromContext(r.Context()),
		"error", err,
	)
	WriteError(w, r, kind)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}

// decodeJSON decodes the body into v. A malformed body is reported as a
// validation error on the field "body".
func decodeJSON(r *http.Request, v any) error {
	return decode(r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, v any) error {
	return decode(r, v, true)
}

func decode(r *http.Request, v any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return validation.Errors{{Field: "body", Message: "is required"}}
	}
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return err
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	default:
		return validation.Errors{{Field: "body", Message: "must be valid JSON"}}
	}
}
