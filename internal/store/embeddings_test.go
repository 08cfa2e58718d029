package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ultramynd/notesync/internal/types"
)

func seedTakeaway(t *testing.T, s *SQLStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.MergeCategories(ctx, "owner-1", []types.Category{{ID: "c1", Name: "Finance", UpdatedAt: ms(1000)}}))
	require.NoError(t, s.MergeSources(ctx, "owner-1", []types.Source{{ID: "s1", CategoryID: "c1", Name: "Rich Dad", UpdatedAt: ms(1000)}}))
	require.NoError(t, s.MergeTakeaways(ctx, "owner-1", []types.Takeaway{
		{ID: "k1", CategoryID: "c1", SourceID: strPtr("s1"), Content: "Pay yourself first", UpdatedAt: ms(2000)},
		{ID: "k2", CategoryID: "missing", Content: "Orphan", UpdatedAt: ms(2001)},
		{ID: "k3", CategoryID: "c1", Content: "Gone", IsDeleted: true, UpdatedAt: ms(2002)},
	}))
}

func TestLoadEmbeddingSources_JoinsNames(t *testing.T) {
	s := newTestStore(t)
	seedTakeaway(t, s)

	got, err := s.LoadEmbeddingSources(context.Background(), "owner-1", []string{"k1", "k2", "k3", "unknown"})
	require.NoError(t, err)

	// Then: tombstoned and unknown ids are skipped
	require.Len(t, got, 2)
	assert.Equal(t, "k1", got[0].TakeawayID)
	assert.Equal(t, "Finance", got[0].CategoryName)
	assert.Equal(t, "Rich Dad", got[0].SourceName)
	assert.Equal(t, "s1", got[0].SourceID)
	require.NotNil(t, got[0].CreatedAt)
	assert.True(t, got[0].CreatedAt.Equal(testNow))

	assert.Equal(t, "k2", got[1].TakeawayID)
	assert.Empty(t, got[1].CategoryName)
	assert.Empty(t, got[1].SourceName)
}

func TestLoadEmbeddingSources_OtherOwnerInvisible(t *testing.T) {
	s := newTestStore(t)
	seedTakeaway(t, s)

	got, err := s.LoadEmbeddingSources(context.Background(), "owner-2", []string{"k1"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.LoadEmbeddingSources(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveEmbedding_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	seedTakeaway(t, s)
	ctx := context.Background()

	err := s.SaveEmbedding(ctx, types.TakeawayEmbedding{
		OwnerID:    "owner-1",
		TakeawayID: "k1",
		Embedding:  []float32{0.25, -1.5, 3},
		Content:    "Date: x",
		Model:      "text-embedding-3-small",
		Metadata: types.EmbeddingMetadata{
			CategoryID:   "c1",
			CategoryName: "Finance",
		},
		SourceUpdatedAt: ms(2000),
	})
	require.NoError(t, err)

	e, status, err := s.GetEmbedding(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, types.EmbeddingStatusComplete, status)
	assert.Equal(t, []float32{0.25, -1.5, 3}, e.Embedding)
	assert.Equal(t, "Finance", e.Metadata.CategoryName)
	assert.Equal(t, "text-embedding-3-small", e.Model)
}

func TestGetStaleEmbeddings(t *testing.T) {
	s := newTestStore(t)
	seedTakeaway(t, s)
	ctx := context.Background()

	// Given: no embeddings yet
	stale, err := s.GetStaleEmbeddings(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stale, 2)

	// When: k1 is embedded and k2 is marked failed
	require.NoError(t, s.SaveEmbedding(ctx, types.TakeawayEmbedding{
		OwnerID: "owner-1", TakeawayID: "k1", Embedding: []float32{1}, SourceUpdatedAt: ms(2000),
	}))
	require.NoError(t, s.MarkEmbeddingFailed(ctx, "owner-1", "k2", ms(2001)))

	// Then: nothing is stale
	stale, err = s.GetStaleEmbeddings(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	// When: k1 is edited
	require.NoError(t, s.MergeTakeaways(ctx, "owner-1", []types.Takeaway{
		{ID: "k1", CategoryID: "c1", Content: "Pay yourself first, always", UpdatedAt: ms(3000)},
	}))

	// Then: k1 is stale again
	stale, err = s.GetStaleEmbeddings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "k1", stale[0].TakeawayID)
}

func TestSaveEmbedding_OlderVersionDoesNotReplaceNewer(t *testing.T) {
	s := newTestStore(t)
	seedTakeaway(t, s)
	ctx := context.Background()

	require.NoError(t, s.SaveEmbedding(ctx, types.TakeawayEmbedding{
		OwnerID: "owner-1", TakeawayID: "k1", Embedding: []float32{2}, Content: "new", SourceUpdatedAt: ms(3000),
	}))
	require.NoError(t, s.SaveEmbedding(ctx, types.TakeawayEmbedding{
		OwnerID: "owner-1", TakeawayID: "k1", Embedding: []float32{1}, Content: "old", SourceUpdatedAt: ms(2000),
	}))

	e, _, err := s.GetEmbedding(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "new", e.Content)
}

func TestGetEmbedding_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.GetEmbedding(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPackEmbedding_RoundTrip(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 1e-7}
	assert.Equal(t, v, unpackEmbedding(packEmbedding(v)))
	assert.Nil(t, packEmbedding(nil))
}
