package embedding

import (
	"context"
	"errors"
)

// ErrDisabled is returned when no embedding provider is configured.
var ErrDisabled = errors.New("embedding provider not configured")

// Embedder defines the interface contract for embedding generation services.
type Embedder interface {
	Embed(ctx context.Context, content string) ([]float32, error)
	EmbedBatch(ctx context.Context, contents []string) ([][]float32, error)
	ModelName() string
}

// Disabled is the Embedder used when no API key is set. Every call fails
// with ErrDisabled.
type Disabled struct{}

var _ Embedder = Disabled{}

func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrDisabled
}

func (Disabled) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrDisabled
}

func (Disabled) ModelName() string {
	return ""
}
