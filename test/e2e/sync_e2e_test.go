//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/ultramynd/notesync/pkg/client"
)

func TestE2E_TwoDevicesConverge(t *testing.T) {
	s := startNotesync(t)
	ctx := context.Background()

	deviceA := client.NewSyncer(s.client(t, "owner-e2e"), 0)
	deviceB := client.NewSyncer(s.client(t, "owner-e2e"), 0)

	// Device A creates a category and a takeaway offline, then syncs.
	_, err := deviceA.Sync(ctx, client.ChangeSet{
		Categories: []client.CategoryRecord{{CategoryID: "C1", CategoryName: "Books", UpdatedAt: 1000}},
		Takeaways:  []client.TakeawayRecord{{TakeawayID: "T1", CategoryID: "C1", Content: "Write it down", UpdatedAt: 1000}},
	})
	if err != nil {
		t.Fatalf("device A sync: %v", err)
	}
	if deviceA.LastSynced() <= 0 {
		t.Fatalf("device A watermark = %d, want > 0", deviceA.LastSynced())
	}

	// Device B's first sync receives both.
	data, err := deviceB.Sync(ctx, client.ChangeSet{})
	if err != nil {
		t.Fatalf("device B sync: %v", err)
	}
	if len(data.Takeaways) != 1 || data.Takeaways[0].TakeawayID != "T1" {
		t.Fatalf("device B takeaways = %+v", data.Takeaways)
	}
	if len(data.Categories) != 1 {
		t.Fatalf("device B categories = %+v", data.Categories)
	}

	// Device B deletes the takeaway; device A sees the tombstone.
	_, err = deviceB.Sync(ctx, client.ChangeSet{
		Takeaways: []client.TakeawayRecord{{TakeawayID: "T1", CategoryID: "C1", Content: "Write it down", IsDeleted: true}},
	})
	if err != nil {
		t.Fatalf("device B delete: %v", err)
	}

	data, err = deviceA.Sync(ctx, client.ChangeSet{})
	if err != nil {
		t.Fatalf("device A second sync: %v", err)
	}
	if len(data.Takeaways) != 1 || !bool(data.Takeaways[0].IsDeleted) {
		t.Fatalf("device A expected tombstone, got %+v", data.Takeaways)
	}
}

func TestE2E_OwnersAreIsolated(t *testing.T) {
	s := startNotesync(t)
	ctx := context.Background()

	_, err := s.client(t, "alice").Sync(ctx, client.SyncRequest{Changes: client.ChangeSet{
		Tags: []client.TagRecord{{TagID: "tag-1", TagName: "secret"}},
	}})
	if err != nil {
		t.Fatalf("alice sync: %v", err)
	}

	bob := s.client(t, "bob")
	data, err := bob.Download(ctx, 0)
	if err != nil {
		t.Fatalf("bob download: %v", err)
	}
	if len(data.Tags) != 0 {
		t.Fatalf("bob sees alice's tags: %+v", data.Tags)
	}

	// Reusing alice's key is rejected.
	_, err = bob.Sync(ctx, client.SyncRequest{Changes: client.ChangeSet{
		Tags: []client.TagRecord{{TagID: "tag-1", TagName: "mine now"}},
	}})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 conflict, got %v", err)
	}
}

func TestE2E_PullCommand(t *testing.T) {
	s := startNotesync(t)
	ctx := context.Background()

	_, err := s.client(t, "carol").Sync(ctx, client.SyncRequest{Changes: client.ChangeSet{
		Sources: []client.SourceRecord{{SourceID: "S1", CategoryID: "C1", SourceName: "Podcast", UpdatedAt: 5000}},
	}})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	out, err := s.run(t, "pull", "--server", s.baseURL(), "--token", s.token(t, "carol"))
	if err != nil {
		t.Fatalf("notesync pull: %v\n%s", err, out)
	}

	var data client.SyncData
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("decode pull output: %v\n%s", err, out)
	}
	if len(data.Sources) != 1 || data.Sources[0].SourceName != "Podcast" {
		t.Fatalf("pull sources = %+v", data.Sources)
	}
}

func TestE2E_Unauthorized(t *testing.T) {
	s := startNotesync(t)

	resp, err := http.Post(s.baseURL()+"/api/sync/syncdata", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("X-Correlation-ID") == "" {
		t.Error("missing correlation id header")
	}
}
