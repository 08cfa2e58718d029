package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ultramynd/notesync/internal/types"
)

// --- Mock Implementations ---

type mockStore struct {
	mu          sync.Mutex
	sources     []types.EmbeddingSource
	loadErr     error
	staleErr    error
	saveErr     error
	saved       []types.TakeawayEmbedding
	markedFail  []string
	loadedOwner []string
}

func (m *mockStore) LoadEmbeddingSources(ctx context.Context, ownerID string, ids []string) ([]types.EmbeddingSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadedOwner = append(m.loadedOwner, ownerID)
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []types.EmbeddingSource
	for _, s := range m.sources {
		if s.OwnerID == ownerID && want[s.TakeawayID] {
			out = append(out, s)
		}
	}
	return out, nil
}

// GetStaleEmbeddings returns every source that has not been saved or marked.
func (m *mockStore) GetStaleEmbeddings(ctx context.Context, limit int) ([]types.EmbeddingSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleErr != nil {
		return nil, m.staleErr
	}
	if limit > len(m.sources) {
		limit = len(m.sources)
	}
	return append([]types.EmbeddingSource(nil), m.sources[:limit]...), nil
}

func (m *mockStore) SaveEmbedding(ctx context.Context, e types.TakeawayEmbedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, e)
	m.remove(e.TakeawayID)
	return nil
}

func (m *mockStore) MarkEmbeddingFailed(ctx context.Context, ownerID, takeawayID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markedFail = append(m.markedFail, takeawayID)
	m.remove(takeawayID)
	return nil
}

func (m *mockStore) remove(id string) {
	for i, s := range m.sources {
		if s.TakeawayID == id {
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			return
		}
	}
}

func (m *mockStore) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type mockEmbedder struct {
	mu         sync.Mutex
	embedErr   error
	callCount  int
	batchCalls int
	inputs     []string
}

func (m *mockEmbedder) Embed(ctx context.Context, content string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.inputs = append(m.inputs, content)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, contents []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.inputs = append(m.inputs, contents...)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(contents))
	for i := range contents {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *mockEmbedder) ModelName() string {
	return "test-model"
}

func source(owner, id, content string) types.EmbeddingSource {
	return types.EmbeddingSource{
		OwnerID:      owner,
		TakeawayID:   id,
		Content:      content,
		CategoryID:   "c1",
		CategoryName: "Books",
		UpdatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}
