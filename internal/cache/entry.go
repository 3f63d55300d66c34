package cache

import "time"

// Entry is the value envelope stored by the in-process backend. Expiry is
// always evaluated by comparing the clock against ExpiresAt, never by
// counting down, so liveness checks are stateless and safe to repeat from
// any code path (Get, Has, sweep).
type Entry struct {
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration
	ExpiresAt time.Time
}

// NewEntry builds an entry whose ExpiresAt is CreatedAt + ttl.
// A ttl <= 0 leaves ExpiresAt zero, meaning the entry never expires.
func NewEntry(value []byte, ttl time.Duration) *Entry {
	now := time.Now()
	e := &Entry{
		Value:     value,
		CreatedAt: now,
		TTL:       ttl,
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// Live reports whether the entry has not yet expired.
func (e *Entry) Live() bool {
	return e.ExpiresAt.IsZero() || time.Now().Before(e.ExpiresAt)
}
