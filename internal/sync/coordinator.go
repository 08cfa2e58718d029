package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ultramynd/notesync/internal/store"
	"github.com/ultramynd/notesync/internal/types"
	"github.com/ultramynd/notesync/internal/validation"
	"golang.org/x/sync/errgroup"
)

// ZeroWatermark selects what a pull with last_synced=0 returns.
type ZeroWatermark string

const (
	// ZeroWatermarkFull returns the owner's full history.
	ZeroWatermarkFull ZeroWatermark = "full"
	// ZeroWatermarkNow treats 0 as "now" and returns nothing.
	ZeroWatermarkNow ZeroWatermark = "now"
)

// DefaultMaxBatchSize caps each entity batch of a push.
const DefaultMaxBatchSize = 10000

// EmbeddingScheduler accepts takeaway ids for background embedding.
// Implementations must not block.
type EmbeddingScheduler interface {
	Enqueue(ownerID string, takeawayIDs []string)
}

// Options configures a Coordinator.
type Options struct {
	ZeroWatermark ZeroWatermark
	// Overlap is subtracted from each issued watermark.
	Overlap      time.Duration
	MaxBatchSize int
	Clock        func() time.Time
	Logger       *slog.Logger
}

// Coordinator runs the push-then-pull sync of one owner's records.
type Coordinator struct {
	store     store.Store
	embeds    EmbeddingScheduler
	validator *validation.Validator
	norm      Normalizer
	zero      ZeroWatermark
	overlap   time.Duration
	maxBatch  int
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator. embeds may be nil.
func NewCoordinator(s store.Store, embeds EmbeddingScheduler, opts Options) *Coordinator {
	if opts.ZeroWatermark == "" {
		opts.ZeroWatermark = ZeroWatermarkFull
	}
	if opts.MaxBatchSize == 0 {
		opts.MaxBatchSize = DefaultMaxBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		store:     s,
		embeds:    embeds,
		validator: validation.New(),
		norm:      NewNormalizer(opts.Clock),
		zero:      opts.ZeroWatermark,
		overlap:   opts.Overlap,
		maxBatch:  opts.MaxBatchSize,
		logger:    opts.Logger.With("component", "sync"),
	}
}

// Sync applies the caller's changes and returns everything changed since
// req.LastSynced along with the next watermark.
//
// Entity kinds are written in dependency order, each kind atomically. A
// failure stops the sync; kinds written before it stay written.
func (c *Coordinator) Sync(ctx context.Context, ownerID string, req SyncRequest) (*SyncData, error) {
	start := time.Now()

	if err := c.Validate(req); err != nil {
		return nil, err
	}

	profile := types.Profile{
		OwnerID: ownerID,
		Name:    req.Username,
		Bio:     req.ReadingLevel,
		Email:   req.Email,
	}
	if _, err := c.store.UpsertProfile(ctx, profile); err != nil {
		c.logFailure(ownerID, StageProfile, "", err)
		return nil, storageError(StageProfile, "", err)
	}

	pushed, err := c.push(ctx, ownerID, req.Changes)
	if err != nil {
		return nil, err
	}

	data, err := c.pull(ctx, ownerID, req.LastSynced)
	if err != nil {
		return nil, err
	}

	c.schedule(ownerID, pushed.LiveTakeawayIDs())

	c.logger.Info("sync completed",
		"action", "sync",
		"owner_id", ownerID,
		"pushed", pushed.Len(),
		"pulled", countWire(data.ChangeSet),
		"last_synced", int64(req.LastSynced),
		"new_sync_time", data.NewSyncTime,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// Pull returns everything changed since lastSynced without writing.
func (c *Coordinator) Pull(ctx context.Context, ownerID string, lastSynced Millis) (*SyncData, error) {
	switch {
	case lastSynced < 0:
		return nil, validationError(validation.Errors{{Field: "last_synced", Message: "must be greater than or equal to 0"}})
	case lastSynced > MaxMillis:
		return nil, validationError(validation.Errors{{Field: "last_synced", Message: fmt.Sprintf("must be less than or equal to %d", MaxMillis)}})
	}
	data, err := c.pull(ctx, ownerID, lastSynced)
	if err != nil {
		return nil, err
	}
	c.logger.Info("pull completed",
		"action", "pull",
		"owner_id", ownerID,
		"pulled", countWire(data.ChangeSet),
		"new_sync_time", data.NewSyncTime,
	)
	return data, nil
}

// Apply writes already-converted entities in dependency order and
// schedules embeddings for live takeaways. Missing timestamps are set to now.
func (c *Coordinator) Apply(ctx context.Context, ownerID string, cs types.ChangeSet) error {
	for _, kind := range types.WriteOrder {
		if cs.Count(kind) == 0 {
			continue
		}
		if err := c.mergeKind(ctx, ownerID, kind, cs); err != nil {
			return c.mergeFailed(ownerID, kind, err)
		}
	}
	c.schedule(ownerID, cs.LiveTakeawayIDs())
	return nil
}

// Validate checks a sync request without touching storage.
func (c *Coordinator) Validate(req SyncRequest) error {
	var col validation.Collector
	col.Merge(c.validator.Struct(req))

	counts := map[types.EntityKind]int{
		types.KindTag:         len(req.Changes.Tags),
		types.KindCategory:    len(req.Changes.Categories),
		types.KindSource:      len(req.Changes.Sources),
		types.KindTakeaway:    len(req.Changes.Takeaways),
		types.KindTakeawayTag: len(req.Changes.TakeawayTags),
	}
	for _, kind := range types.WriteOrder {
		col.Add(validation.ValidateMaxItems("changes."+string(kind), counts[kind], c.maxBatch))
	}

	if err := col.Err(); err != nil {
		return validationError(err)
	}
	return nil
}

// push converts and writes each non-empty batch in WriteOrder. Conversion
// happens right before each write so substituted timestamps reflect the
// time of that write.
func (c *Coordinator) push(ctx context.Context, ownerID string, changes ChangeSet) (types.ChangeSet, error) {
	var pushed types.ChangeSet
	for _, kind := range types.WriteOrder {
		switch kind {
		case types.KindTag:
			if len(changes.Tags) > 0 {
				pushed.Tags = mapSlice(changes.Tags, func(r TagRecord) types.Tag { return r.entity(c.norm) })
			}
		case types.KindCategory:
			if len(changes.Categories) > 0 {
				pushed.Categories = mapSlice(changes.Categories, func(r CategoryRecord) types.Category { return r.entity(c.norm) })
			}
		case types.KindSource:
			if len(changes.Sources) > 0 {
				pushed.Sources = mapSlice(changes.Sources, func(r SourceRecord) types.Source { return r.entity(c.norm) })
			}
		case types.KindTakeaway:
			if len(changes.Takeaways) > 0 {
				pushed.Takeaways = mapSlice(changes.Takeaways, func(r TakeawayRecord) types.Takeaway { return r.entity(c.norm) })
			}
		case types.KindTakeawayTag:
			if len(changes.TakeawayTags) > 0 {
				pushed.TakeawayTags = mapSlice(changes.TakeawayTags, func(r TakeawayTagRecord) types.TakeawayTag { return r.entity(c.norm) })
			}
		}

		if pushed.Count(kind) == 0 {
			continue
		}
		if err := c.mergeKind(ctx, ownerID, kind, pushed); err != nil {
			return pushed, c.mergeFailed(ownerID, kind, err)
		}
	}
	return pushed, nil
}

func (c *Coordinator) mergeFailed(ownerID string, kind types.EntityKind, err error) error {
	c.logFailure(ownerID, StageMerge, kind, err)
	return storageError(StageMerge, kind, err)
}

func (c *Coordinator) mergeKind(ctx context.Context, ownerID string, kind types.EntityKind, cs types.ChangeSet) error {
	switch kind {
	case types.KindTag:
		return c.store.MergeTags(ctx, ownerID, cs.Tags)
	case types.KindCategory:
		return c.store.MergeCategories(ctx, ownerID, cs.Categories)
	case types.KindSource:
		return c.store.MergeSources(ctx, ownerID, cs.Sources)
	case types.KindTakeaway:
		return c.store.MergeTakeaways(ctx, ownerID, cs.Takeaways)
	case types.KindTakeawayTag:
		return c.store.MergeTakeawayTags(ctx, ownerID, cs.TakeawayTags)
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
}

// pull captures the next watermark and then reads all kinds concurrently.
func (c *Coordinator) pull(ctx context.Context, ownerID string, lastSynced Millis) (*SyncData, error) {
	now := c.norm.Now()
	since := c.since(lastSynced, now)
	watermark := now.Add(-c.overlap)

	var cs types.ChangeSet
	g, gctx := errgroup.WithContext(ctx)
	read := func(kind types.EntityKind, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(gctx); err != nil {
				c.logFailure(ownerID, StageRead, kind, err)
				return storageError(StageRead, kind, err)
			}
			return nil
		})
	}

	read(types.KindTag, func(ctx context.Context) (err error) {
		cs.Tags, err = c.store.TagsSince(ctx, ownerID, since)
		return err
	})
	read(types.KindCategory, func(ctx context.Context) (err error) {
		cs.Categories, err = c.store.CategoriesSince(ctx, ownerID, since)
		return err
	})
	read(types.KindSource, func(ctx context.Context) (err error) {
		cs.Sources, err = c.store.SourcesSince(ctx, ownerID, since)
		return err
	})
	read(types.KindTakeaway, func(ctx context.Context) (err error) {
		cs.Takeaways, err = c.store.TakeawaysSince(ctx, ownerID, since)
		return err
	})
	read(types.KindTakeawayTag, func(ctx context.Context) (err error) {
		cs.TakeawayTags, err = c.store.TakeawayTagsSince(ctx, ownerID, since)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SyncData{
		NewSyncTime: watermark.UnixMilli(),
		ChangeSet:   FromEntities(cs),
	}, nil
}

// since maps the caller's watermark to the read bound.
func (c *Coordinator) since(lastSynced Millis, now time.Time) time.Time {
	if lastSynced == 0 {
		if c.zero == ZeroWatermarkNow {
			return now
		}
		return time.Time{}
	}
	return time.UnixMilli(int64(lastSynced)).UTC()
}

func (c *Coordinator) schedule(ownerID string, ids []string) {
	if c.embeds == nil || len(ids) == 0 {
		return
	}
	c.embeds.Enqueue(ownerID, ids)
}

func (c *Coordinator) logFailure(ownerID, stage string, kind types.EntityKind, err error) {
	c.logger.Error("sync failed",
		"action", "sync",
		"owner_id", ownerID,
		"stage", stage,
		"entity", string(kind),
		"error", err,
	)
}

func countWire(cs ChangeSet) int {
	return len(cs.Tags) + len(cs.Categories) + len(cs.Sources) + len(cs.Takeaways) + len(cs.TakeawayTags)
}
