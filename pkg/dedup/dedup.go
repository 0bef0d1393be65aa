package dedup

import (
	"sync"
	"time"
)

// Deduper remembers recently seen message IDs for a TTL. QoS1 subscriptions
// can see the same payload redelivered after a reconnect; the hash of the
// payload makes a stable ID for suppressing those.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// ShouldProcess reports whether this ID is new (or expired) and marks it
// seen. An empty ID is always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	d.evictLocked(now)
	return true
}

// evictLocked drops expired entries once the map outgrows max, so memory
// stays bounded even under a flood of unique IDs.
func (d *Deduper) evictLocked(now time.Time) {
	if len(d.seen) <= d.max {
		return
	}
	for id, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, id)
		}
		if len(d.seen) <= d.max {
			return
		}
	}
}
