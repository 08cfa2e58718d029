package types

import (
	"time"
)

// EntityKind names one of the synced record types.
// The value doubles as the storage table name and the wire collection key.
type EntityKind string

const (
	KindTag         EntityKind = "tags"
	KindCategory    EntityKind = "categories"
	KindSource      EntityKind = "sources"
	KindTakeaway    EntityKind = "takeaways"
	KindTakeawayTag EntityKind = "takeaway_tags"
)

// WriteOrder is the dependency order in which push batches are applied.
// Referenced kinds come before the kinds that reference them.
var WriteOrder = []EntityKind{
	KindTag,
	KindCategory,
	KindSource,
	KindTakeaway,
	KindTakeawayTag,
}

// Tag is a user-defined label attached to takeaways.
type Tag struct {
	ID        string
	OwnerID   string
	Name      string
	IsDeleted bool
	UpdatedAt time.Time
}

// Category groups sources and takeaways.
type Category struct {
	ID        string
	OwnerID   string
	Name      string
	IsDeleted bool
	UpdatedAt time.Time
}

// Source is a book, article or other origin of takeaways. Belongs to a Category.
type Source struct {
	ID         string
	OwnerID    string
	CategoryID string
	Name       string
	IsDeleted  bool
	UpdatedAt  time.Time
}

// Takeaway is a single note. SourceID is nil when the note has no source.
type Takeaway struct {
	ID         string
	OwnerID    string
	CategoryID string
	SourceID   *string
	Content    string
	IsDeleted  bool
	UpdatedAt  time.Time
}

// TakeawayTag links a Takeaway to a Tag.
type TakeawayTag struct {
	ID         string
	OwnerID    string
	TakeawayID string
	TagID      string
	IsDeleted  bool
	UpdatedAt  time.Time
}

// ChangeSet holds records of every kind, either pushed by a client or
// read back for one.
type ChangeSet struct {
	Tags         []Tag
	Categories   []Category
	Sources      []Source
	Takeaways    []Takeaway
	TakeawayTags []TakeawayTag
}

// Len returns the total number of records across all kinds.
func (c ChangeSet) Len() int {
	return len(c.Tags) + len(c.Categories) + len(c.Sources) + len(c.Takeaways) + len(c.TakeawayTags)
}

// Count returns the number of records of the given kind.
func (c ChangeSet) Count(kind EntityKind) int {
	switch kind {
	case KindTag:
		return len(c.Tags)
	case KindCategory:
		return len(c.Categories)
	case KindSource:
		return len(c.Sources)
	case KindTakeaway:
		return len(c.Takeaways)
	case KindTakeawayTag:
		return len(c.TakeawayTags)
	default:
		return 0
	}
}

// LiveTakeawayIDs returns the ids of takeaways that are not tombstoned,
// in batch order, without duplicates.
func (c ChangeSet) LiveTakeawayIDs() []string {
	seen := make(map[string]struct{}, len(c.Takeaways))
	ids := make([]string, 0, len(c.Takeaways))
	for _, t := range c.Takeaways {
		if t.IsDeleted {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		ids = append(ids, t.ID)
	}
	return ids
}

// Profile carries owner attributes sent alongside a sync or profile request.
// Nil fields leave the stored value untouched.
type Profile struct {
	OwnerID string
	Name    *string
	Bio     *string
	Email   *string
}

// User is the stored owner profile row.
type User struct {
	OwnerID   string    `json:"user_id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmbeddingStatus values stored on takeaway_embeddings rows.
const (
	EmbeddingStatusComplete = "complete"
	EmbeddingStatusFailed   = "failed"
)

// EmbeddingSource is everything needed to build the embedding text for one takeaway.
type EmbeddingSource struct {
	OwnerID      string
	TakeawayID   string
	Content      string
	CategoryID   string
	SourceID     string
	CategoryName string
	SourceName   string
	CreatedAt    *time.Time
	UpdatedAt    time.Time
}

// TakeawayEmbedding is a generated vector ready to be stored.
type TakeawayEmbedding struct {
	OwnerID         string
	TakeawayID      string
	Embedding       []float32
	Content         string
	Model           string
	Metadata        EmbeddingMetadata
	SourceUpdatedAt time.Time
}

// EmbeddingMetadata is persisted as JSON next to the vector for search filtering.
type EmbeddingMetadata struct {
	CreatedAt    *time.Time `json:"created_at"`
	CategoryID   string     `json:"category_id"`
	SourceID     string     `json:"source_id,omitempty"`
	CategoryName string     `json:"category_name"`
	SourceName   string     `json:"source_name"`
}

// StoreStats holds aggregate counts for health reporting.
type StoreStats struct {
	Users             int64
	Takeaways         int64
	Embeddings        int64
	PendingEmbeddings int64
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	EmbeddingModel    string `json:"embedding_model"`
	Users             int64  `json:"users"`
	Takeaways         int64  `json:"takeaways"`
	Embeddings        int64  `json:"embeddings"`
	PendingEmbeddings int64  `json:"pending_embeddings"`
}
