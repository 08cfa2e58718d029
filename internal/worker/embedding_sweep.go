package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ultramynd/notesync/internal/embedding"
	"github.com/ultramynd/notesync/internal/types"
)

// EmbeddingSweepWorker periodically embeds live takeaways whose embedding
// is missing or out of date. A takeaway that keeps failing is marked failed
// after maxAttempts sweeps and skipped until it changes again.
type EmbeddingSweepWorker struct {
	store       EmbeddingStore
	embedder    embedding.Embedder
	interval    time.Duration
	maxAttempts int
	batchSize   int

	mu         sync.Mutex
	retryCount map[string]int // takeaway id -> failed attempts
}

// NewEmbeddingSweepWorker creates a new embedding sweep worker.
func NewEmbeddingSweepWorker(
	s EmbeddingStore,
	e embedding.Embedder,
	interval time.Duration,
	maxAttempts int,
	batchSize int,
) *EmbeddingSweepWorker {
	return &EmbeddingSweepWorker{
		store:       s,
		embedder:    e,
		interval:    interval,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		retryCount:  make(map[string]int),
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// It sweeps once on start so that work left by a previous run is not
// delayed by a full interval.
func (w *EmbeddingSweepWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "embedding-sweep",
		"interval", w.interval.String(),
		"max_attempts", w.maxAttempts,
		"batch_size", w.batchSize,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "embedding-sweep",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass.
func (w *EmbeddingSweepWorker) Sweep(ctx context.Context) {
	sources, err := w.store.GetStaleEmbeddings(ctx, w.batchSize)
	if err != nil {
		slog.Error("failed to get stale embeddings",
			"error", err,
			"component", "worker",
		)
		return
	}
	if len(sources) == 0 {
		return
	}

	var (
		toProcess []types.EmbeddingSource
		texts     []string
		metas     []types.EmbeddingMetadata
	)
	for _, src := range sources {
		if w.attempts(src.TakeawayID) >= w.maxAttempts {
			w.markAsFailed(ctx, src)
			continue
		}
		text, meta, err := embedding.Document(src)
		if errors.Is(err, embedding.ErrEmptyContent) {
			w.markAsFailed(ctx, src)
			continue
		}
		toProcess = append(toProcess, src)
		texts = append(texts, text)
		metas = append(metas, meta)
	}
	if len(toProcess) == 0 {
		return
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Warn("embedding batch failed, will retry",
			"error", err,
			"count", len(toProcess),
			"component", "worker",
		)
		for _, src := range toProcess {
			w.incr(src.TakeawayID)
		}
		return
	}

	var successCount int
	model := w.embedder.ModelName()
	for i, src := range toProcess {
		if err := w.store.SaveEmbedding(ctx, embeddingRecord(src, metas[i], vectors[i], model)); err != nil {
			slog.Error("failed to save embedding",
				"takeaway_id", src.TakeawayID,
				"error", err,
				"component", "worker",
			)
			w.incr(src.TakeawayID)
			continue
		}
		w.reset(src.TakeawayID)
		successCount++
	}

	if successCount > 0 {
		slog.Info("processed stale embeddings",
			"action", "embed_sweep",
			"count", successCount,
			"component", "worker",
		)
	}
}

func (w *EmbeddingSweepWorker) attempts(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.retryCount[id]
}

func (w *EmbeddingSweepWorker) incr(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.retryCount[id]++
}

func (w *EmbeddingSweepWorker) reset(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.retryCount, id)
}

func (w *EmbeddingSweepWorker) markAsFailed(ctx context.Context, src types.EmbeddingSource) {
	attempts := w.attempts(src.TakeawayID)

	if err := w.store.MarkEmbeddingFailed(ctx, src.OwnerID, src.TakeawayID, src.UpdatedAt); err != nil {
		slog.Error("failed to mark embedding as failed",
			"takeaway_id", src.TakeawayID,
			"error", err,
			"component", "worker",
		)
		return
	}

	slog.Error("embedding permanently failed",
		"action", "embed_sweep",
		"takeaway_id", src.TakeawayID,
		"attempts", attempts,
		"component", "worker",
	)

	w.reset(src.TakeawayID)
}
