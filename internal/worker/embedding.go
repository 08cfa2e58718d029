package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ultramynd/notesync/internal/embedding"
	"github.com/ultramynd/notesync/internal/types"
)

// EmbeddingStore defines the store operations needed by the embedding workers.
type EmbeddingStore interface {
	LoadEmbeddingSources(ctx context.Context, ownerID string, takeawayIDs []string) ([]types.EmbeddingSource, error)
	GetStaleEmbeddings(ctx context.Context, limit int) ([]types.EmbeddingSource, error)
	SaveEmbedding(ctx context.Context, e types.TakeawayEmbedding) error
	MarkEmbeddingFailed(ctx context.Context, ownerID, takeawayID string, sourceUpdatedAt time.Time) error
}

// embeddingRecord assembles the stored row for a takeaway and its vector.
func embeddingRecord(src types.EmbeddingSource, meta types.EmbeddingMetadata, vec []float32, model string) types.TakeawayEmbedding {
	return types.TakeawayEmbedding{
		OwnerID:         src.OwnerID,
		TakeawayID:      src.TakeawayID,
		Embedding:       vec,
		Content:         src.Content,
		Model:           model,
		Metadata:        meta,
		SourceUpdatedAt: src.UpdatedAt,
	}
}

// embedOne embeds a single takeaway and stores the result.
func embedOne(ctx context.Context, s EmbeddingStore, e embedding.Embedder, src types.EmbeddingSource) error {
	text, meta, err := embedding.Document(src)
	if err != nil {
		return err
	}
	vec, err := e.Embed(ctx, text)
	if err != nil {
		return err
	}
	if err := s.SaveEmbedding(ctx, embeddingRecord(src, meta, vec, e.ModelName())); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}
