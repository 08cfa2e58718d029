package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ultramynd/notesync/internal/embedding"
	"golang.org/x/time/rate"
)

type embedJob struct {
	ownerID string
	ids     []string
}

// EmbeddingQueue embeds takeaways handed over by sync requests. Enqueue
// never blocks; jobs are dropped when the buffer is full, and the sweep
// worker picks up anything missed. Embedding calls are spaced by pacing.
type EmbeddingQueue struct {
	store    EmbeddingStore
	embedder embedding.Embedder
	limiter  *rate.Limiter
	timeout  time.Duration
	jobs     chan embedJob

	dropped  atomic.Int64
	embedded atomic.Int64
	failed   atomic.Int64
}

// NewEmbeddingQueue creates a queue holding up to size jobs. pacing is the
// minimum interval between embedding calls; 0 disables pacing. timeout
// bounds each embed-and-save; 0 means no bound.
func NewEmbeddingQueue(s EmbeddingStore, e embedding.Embedder, size int, pacing, timeout time.Duration) *EmbeddingQueue {
	if size <= 0 {
		size = 1
	}
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	return &EmbeddingQueue{
		store:    s,
		embedder: e,
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  timeout,
		jobs:     make(chan embedJob, size),
	}
}

// Enqueue schedules ids for embedding.
func (q *EmbeddingQueue) Enqueue(ownerID string, takeawayIDs []string) {
	if len(takeawayIDs) == 0 {
		return
	}
	job := embedJob{ownerID: ownerID, ids: append([]string(nil), takeawayIDs...)}

	select {
	case q.jobs <- job:
	default:
		q.dropped.Add(1)
		slog.Warn("embedding queue full, job dropped",
			"component", "worker",
			"worker", "embedding-queue",
			"owner_id", ownerID,
			"count", len(takeawayIDs),
		)
	}
}

// Run processes jobs until ctx is cancelled. Jobs still buffered at
// shutdown are discarded.
func (q *EmbeddingQueue) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "embedding-queue",
		"capacity", cap(q.jobs),
		"model", q.embedder.ModelName(),
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "embedding-queue",
				"reason", "context_cancelled",
				"pending", len(q.jobs),
			)
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

// Stats returns counters since start: dropped jobs, embedded and failed takeaways.
func (q *EmbeddingQueue) Stats() (dropped, embedded, failed int64) {
	return q.dropped.Load(), q.embedded.Load(), q.failed.Load()
}

func (q *EmbeddingQueue) process(ctx context.Context, job embedJob) {
	start := time.Now()

	sources, err := q.store.LoadEmbeddingSources(ctx, job.ownerID, job.ids)
	if err != nil {
		q.failed.Add(int64(len(job.ids)))
		slog.Error("failed to load takeaways for embedding",
			"component", "worker",
			"worker", "embedding-queue",
			"owner_id", job.ownerID,
			"error", err,
		)
		return
	}

	var ok int
	for _, src := range sources {
		if err := q.limiter.Wait(ctx); err != nil {
			return
		}

		itemCtx, cancel := ctx, context.CancelFunc(func() {})
		if q.timeout > 0 {
			itemCtx, cancel = context.WithTimeout(ctx, q.timeout)
		}
		err := embedOne(itemCtx, q.store, q.embedder, src)
		cancel()

		if err != nil {
			q.failed.Add(1)
			slog.Warn("embedding failed",
				"component", "worker",
				"worker", "embedding-queue",
				"owner_id", job.ownerID,
				"takeaway_id", src.TakeawayID,
				"error", err,
			)
			continue
		}
		q.embedded.Add(1)
		ok++
	}

	slog.Info("embedding job finished",
		"action", "embed",
		"component", "worker",
		"worker", "embedding-queue",
		"owner_id", job.ownerID,
		"requested", len(job.ids),
		"embedded", ok,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
