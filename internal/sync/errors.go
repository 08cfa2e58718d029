package sync

import (
	"errors"
	"fmt"

	"github.com/ultramynd/notesync/internal/store"
	"github.com/ultramynd/notesync/internal/types"
	"github.com/ultramynd/notesync/internal/validation"
)

// ErrorKind classifies a failed sync for callers. Internal detail is not
// part of the classification.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindStorage    ErrorKind = "storage"
	KindConflict   ErrorKind = "conflict"
)

// Stages of a sync at which an error can occur.
const (
	StageValidate = "validate"
	StageProfile  = "profile"
	StageMerge    = "merge"
	StageRead     = "read"
)

// ErrValidation is matched by every validation failure.
var ErrValidation = errors.New("invalid sync request")

// Error describes a failed sync. Entity is set for merge and read failures.
type Error struct {
	Kind   ErrorKind
	Stage  string
	Entity types.EntityKind
	Err    error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("sync %s %s: %v", e.Stage, e.Entity, e.Err)
	}
	return fmt.Sprintf("sync %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrValidation for validation-kind errors.
func (e *Error) Is(target error) bool {
	return target == ErrValidation && e.Kind == KindValidation
}

// Fields returns the per-field failures of a validation error.
func (e *Error) Fields() []validation.ValidationError {
	var errs validation.Errors
	if errors.As(e.Err, &errs) {
		return errs
	}
	return nil
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Stage: StageValidate, Err: err}
}

func storageError(stage string, entity types.EntityKind, err error) *Error {
	kind := KindStorage
	if errors.Is(err, store.ErrOwnerConflict) {
		kind = KindConflict
	}
	return &Error{Kind: kind, Stage: stage, Entity: entity, Err: err}
}
