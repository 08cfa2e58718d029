package api

import (
	"context"
	"errors"
)

type ownerContextKey struct{}

type correlationContextKey struct{}

// ErrNoOwnerInContext indicates the request was not authenticated.
var ErrNoOwnerInContext = errors.New("no owner in context")

// WithOwner returns a new context carrying the authenticated owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// OwnerFromContext extracts the owner id set by AuthMiddleware.
func OwnerFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ownerContextKey{}).(string)
	if !ok || id == "" {
		return "", ErrNoOwnerInContext
	}
	return id, nil
}

// WithCorrelationID returns a new context carrying the request's correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationContextKey{}, id)
}

// CorrelationIDFromContext returns the correlation id, or "" if none was set.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationContextKey{}).(string)
	return id
}
