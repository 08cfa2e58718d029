package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ultramynd/notesync/internal/store"
	"github.com/ultramynd/notesync/internal/types"
)

func newSQLStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmbeddingWorkers_WithSQLStore(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.MergeCategories(ctx, "u1", []types.Category{{ID: "c1", Name: "Books", UpdatedAt: updated}}))
	require.NoError(t, s.MergeTakeaways(ctx, "u1", []types.Takeaway{
		{ID: "k1", CategoryID: "c1", Content: "first", UpdatedAt: updated},
		{ID: "k2", CategoryID: "c1", Content: "second", UpdatedAt: updated},
	}))

	// The queue embeds k1; the sweep picks up k2.
	q := NewEmbeddingQueue(s, &mockEmbedder{}, 1, 0, time.Second)
	q.process(ctx, embedJob{ownerID: "u1", ids: []string{"k1"}})

	stale, err := s.GetStaleEmbeddings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "k2", stale[0].TakeawayID)

	NewEmbeddingSweepWorker(s, &mockEmbedder{}, time.Hour, 3, 10).Sweep(ctx)

	stale, err = s.GetStaleEmbeddings(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	emb, status, err := s.GetEmbedding(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, types.EmbeddingStatusComplete, status)
	assert.Equal(t, "test-model", emb.Model)
	assert.Equal(t, "Books", emb.Metadata.CategoryName)
	assert.Len(t, emb.Embedding, 3)
}

func TestEmbeddingSweep_FailedIsNotRetriedUntilChanged(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.MergeTakeaways(ctx, "u1", []types.Takeaway{{ID: "k1", CategoryID: "c1", Content: "x", UpdatedAt: updated}}))

	failing := &mockEmbedder{embedErr: errors.New("provider down")}
	w := NewEmbeddingSweepWorker(s, failing, time.Hour, 1, 10)
	w.Sweep(ctx) // attempt 1 fails
	w.Sweep(ctx) // marks failed

	_, status, err := s.GetEmbedding(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, types.EmbeddingStatusFailed, status)

	stale, err := s.GetStaleEmbeddings(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	// An edit makes it eligible again.
	require.NoError(t, s.MergeTakeaways(ctx, "u1", []types.Takeaway{{ID: "k1", CategoryID: "c1", Content: "y", UpdatedAt: updated.Add(time.Minute)}}))
	stale, err = s.GetStaleEmbeddings(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stale, 1)
}
