package client

import (
	"context"
	"sync"
)

// Syncer tracks one device's watermark across syncs.
type Syncer struct {
	client *Client

	mu         sync.Mutex
	lastSynced int64
}

// NewSyncer creates a Syncer starting from lastSynced (0 for a new device).
func NewSyncer(c *Client, lastSynced int64) *Syncer {
	return &Syncer{client: c, lastSynced: lastSynced}
}

// Sync pushes changes with the stored watermark and advances it on success.
// Syncs of one Syncer are serialized.
func (s *Syncer) Sync(ctx context.Context, changes ChangeSet) (*SyncData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.client.Sync(ctx, SyncRequest{
		LastSynced: Millis(s.lastSynced),
		Changes:    changes,
	})
	if err != nil {
		return nil, err
	}
	s.lastSynced = data.NewSyncTime
	return data, nil
}

// LastSynced returns the current watermark.
func (s *Syncer) LastSynced() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSynced
}
