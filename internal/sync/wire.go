package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Millis is a millisecond epoch timestamp as exchanged with clients.
// It decodes from a JSON number, a numeric string, null or false, and
// always encodes as a string of digits.
type Millis int64

// MaxMillis is 9999-12-31T23:59:59.999Z, the latest instant the store can
// write and read back. Requests past it fail validation.
const MaxMillis Millis = 253402300799999

// UnmarshalJSON implements json.Unmarshaler.
func (m *Millis) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch raw {
	case "", "null", "false", `""`:
		*m = 0
		return nil
	}

	if raw[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s", raw)
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*m = 0
			return nil
		}
	}

	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*m = Millis(v)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("invalid timestamp %s", raw)
	}
	*m = Millis(int64(f))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Millis) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(m), 10))), nil
}

// Flag is a tombstone marker. It accepts true/false, 1/0 and their string
// forms because device databases commonly store booleans as integers.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	raw := string(bytes.TrimSpace(b))
	switch raw {
	case "true", "1", `"true"`, `"1"`:
		*f = true
	case "false", "0", "null", `"false"`, `"0"`, `""`:
		*f = false
	default:
		return fmt.Errorf("invalid boolean %s", raw)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// TagRecord is the wire form of a tag.
type TagRecord struct {
	TagID     string `json:"tagid" validate:"notblank,max=255"`
	TagName   string `json:"tagname" validate:"max=1024,text"`
	IsDeleted Flag   `json:"isdeleted"`
	UpdatedAt Millis `json:"updatedat" validate:"gte=0,lte=253402300799999"`
}

// CategoryRecord is the wire form of a category.
type CategoryRecord struct {
	CategoryID   string `json:"categoryid" validate:"notblank,max=255"`
	CategoryName string `json:"categoryname" validate:"max=1024,text"`
	IsDeleted    Flag   `json:"isdeleted"`
	UpdatedAt    Millis `json:"updatedat" validate:"gte=0,lte=253402300799999"`
}

// SourceRecord is the wire form of a source.
type SourceRecord struct {
	SourceID   string `json:"sourceid" validate:"notblank,max=255"`
	CategoryID string `json:"categoryid" validate:"max=255"`
	SourceName string `json:"sourcename" validate:"max=1024,text"`
	IsDeleted  Flag   `json:"isdeleted"`
	UpdatedAt  Millis `json:"updatedat" validate:"gte=0,lte=253402300799999"`
}

// TakeawayRecord is the wire form of a takeaway. SourceID is null when the
// takeaway has no source.
type TakeawayRecord struct {
	TakeawayID string  `json:"takeawayid" validate:"notblank,max=255"`
	CategoryID string  `json:"categoryid" validate:"max=255"`
	SourceID   *string `json:"sourceid" validate:"omitempty,max=255"`
	Content    string  `json:"content" validate:"max=100000,text"`
	IsDeleted  Flag    `json:"isdeleted"`
	UpdatedAt  Millis  `json:"updatedat" validate:"gte=0,lte=253402300799999"`
}

// TakeawayTagRecord is the wire form of a takeaway/tag link.
type TakeawayTagRecord struct {
	TakeawayTagID string `json:"takeawaytagid" validate:"notblank,max=255"`
	TakeawayID    string `json:"takeawayid" validate:"max=255"`
	TagID         string `json:"tagid" validate:"max=255"`
	IsDeleted     Flag   `json:"isdeleted"`
	UpdatedAt     Millis `json:"updatedat" validate:"gte=0,lte=253402300799999"`
}

// ChangeSet is the wire form of a set of changes, in either direction.
type ChangeSet struct {
	Tags         []TagRecord         `json:"tags" validate:"dive"`
	Categories   []CategoryRecord    `json:"categories" validate:"dive"`
	Sources      []SourceRecord      `json:"sources" validate:"dive"`
	Takeaways    []TakeawayRecord    `json:"takeaways" validate:"dive"`
	TakeawayTags []TakeawayTagRecord `json:"takeaway_tags" validate:"dive"`
}

// SyncRequest is the body of a push-and-pull sync call.
type SyncRequest struct {
	LastSynced   Millis    `json:"last_synced" validate:"gte=0,lte=253402300799999"`
	Changes      ChangeSet `json:"changes"`
	Username     *string   `json:"username,omitempty" validate:"omitempty,max=255,text"`
	ReadingLevel *string   `json:"reading_level,omitempty" validate:"omitempty,max=255,text"`
	Email        *string   `json:"email,omitempty" validate:"omitempty,max=320,text"`
}

// SyncData is the payload returned on success: the new watermark and the
// changes the caller has not seen.
type SyncData struct {
	NewSyncTime int64 `json:"new_sync_time"`
	ChangeSet
}
