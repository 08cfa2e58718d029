package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabled(t *testing.T) {
	var e Embedder = Disabled{}

	_, err := e.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = e.EmbedBatch(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrDisabled)

	assert.Empty(t, e.ModelName())
}
