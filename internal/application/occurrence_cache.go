package application

import (
	"strings"
	"sync"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/recurrence"
)

// occurrenceCache stores recently expanded occurrence lists to avoid
// re-running the generator for identical calendar queries while the
// underlying office hours remain unchanged.
type occurrenceCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]occurrenceCacheEntry
}

type occurrenceCacheEntry struct {
	occurrences []recurrence.Occurrence
	expiresAt   time.Time
}

func newOccurrenceCache(ttl time.Duration, maxEntries int, now func() time.Time) *occurrenceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &occurrenceCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]occurrenceCacheEntry),
	}
}

func (c *occurrenceCache) Get(key string) ([]recurrence.Occurrence, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneOccurrences(entry.occurrences), true
}

func (c *occurrenceCache) Store(key string, occurrences []recurrence.Occurrence) {
	if c == nil {
		return
	}
	cloned := cloneOccurrences(occurrences)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = occurrenceCacheEntry{occurrences: cloned, expiresAt: expiry}
}

// Invalidate drops every entry. Any write to an office hour invalidates the
// whole cache; entries are cheap to recompute.
func (c *occurrenceCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]occurrenceCacheEntry)
	c.mu.Unlock()
}

func (c *occurrenceCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *occurrenceCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneOccurrences(occurrences []recurrence.Occurrence) []recurrence.Occurrence {
	if len(occurrences) == 0 {
		return nil
	}
	out := make([]recurrence.Occurrence, len(occurrences))
	copy(out, occurrences)
	return out
}

func buildOccurrenceCacheKey(officeHourID string, updatedAt time.Time, params ListOccurrencesParams) string {
	builder := strings.Builder{}
	builder.WriteString(officeHourID)
	builder.WriteString("|")
	builder.WriteString(updatedAt.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	if params.From != nil {
		builder.WriteString(params.From.String())
	}
	builder.WriteString("|")
	if params.To != nil {
		builder.WriteString(params.To.String())
	}
	return builder.String()
}
