package store

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrOwnerConflict = errors.New("record key belongs to another owner")
	ErrClosed        = errors.New("store closed")
)
