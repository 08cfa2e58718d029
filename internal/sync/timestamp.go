package sync

import "time"

// Normalizer converts between client millisecond timestamps and store times.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer returns a Normalizer reading the given clock. A nil clock
// uses time.Now.
func NewNormalizer(now func() time.Time) Normalizer {
	if now == nil {
		now = time.Now
	}
	return Normalizer{now: now}
}

// Now returns the current time in UTC at millisecond precision.
func (n Normalizer) Now() time.Time {
	return n.now().UTC().Truncate(time.Millisecond)
}

// ToStoreTime maps a client timestamp to a store time. Zero means the
// client did not supply one, so the current time is used.
func (n Normalizer) ToStoreTime(m Millis) time.Time {
	if m == 0 {
		return n.Now()
	}
	return time.UnixMilli(int64(m)).UTC()
}

// ToClientTime maps a store time to a client timestamp; the zero time maps to 0.
func ToClientTime(t time.Time) Millis {
	if t.IsZero() {
		return 0
	}
	return Millis(t.UnixMilli())
}
