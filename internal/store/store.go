package store

import (
	"context"
	"time"

	"github.com/ultramynd/notesync/internal/types"
)

// Store defines the owner-scoped persistence contract used by the sync
// engine, the HTTP handlers and the embedding workers.
//
// Merge methods upsert a batch of one entity kind atomically with blind
// overwrite within the owner. Since methods return rows with
// updated_at strictly greater than the watermark, oldest first.
type Store interface {
	MergeTags(ctx context.Context, ownerID string, rows []types.Tag) error
	MergeCategories(ctx context.Context, ownerID string, rows []types.Category) error
	MergeSources(ctx context.Context, ownerID string, rows []types.Source) error
	MergeTakeaways(ctx context.Context, ownerID string, rows []types.Takeaway) error
	MergeTakeawayTags(ctx context.Context, ownerID string, rows []types.TakeawayTag) error

	TagsSince(ctx context.Context, ownerID string, since time.Time) ([]types.Tag, error)
	CategoriesSince(ctx context.Context, ownerID string, since time.Time) ([]types.Category, error)
	SourcesSince(ctx context.Context, ownerID string, since time.Time) ([]types.Source, error)
	TakeawaysSince(ctx context.Context, ownerID string, since time.Time) ([]types.Takeaway, error)
	TakeawayTagsSince(ctx context.Context, ownerID string, since time.Time) ([]types.TakeawayTag, error)

	UpsertProfile(ctx context.Context, p types.Profile) (*types.User, error)
	UpdateProfile(ctx context.Context, p types.Profile) (*types.User, error)
	GetUser(ctx context.Context, ownerID string) (*types.User, error)

	LoadEmbeddingSources(ctx context.Context, ownerID string, takeawayIDs []string) ([]types.EmbeddingSource, error)
	GetStaleEmbeddings(ctx context.Context, limit int) ([]types.EmbeddingSource, error)
	SaveEmbedding(ctx context.Context, e types.TakeawayEmbedding) error
	MarkEmbeddingFailed(ctx context.Context, ownerID, takeawayID string, sourceUpdatedAt time.Time) error

	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
