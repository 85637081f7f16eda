package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/types"
	"github.com/zeebo/xxh3"
)

// Tier is an in-memory L1/L2 cache layer (spec §4.4): identical
// semantics at different capacities, frequency-biased eviction via
// admitter, and lazy-plus-periodic TTL expiry.
//
// Grounded on the teacher's MemoryCache (internal/cache/memory.go):
// same atomic hit/miss/set/eviction counters and Name/IsAvailable/
// Close shape, but the teacher's bigcache-backed storage (a pure
// ring-buffer, no frequency signal) is replaced with a mutex-guarded
// map plus the admitter above, since spec §4.4 requires frequency-
// biased eviction bigcache cannot express.
type Tier struct {
	name     string
	capacity int
	ttl      time.Duration
	admit    *admitter
	logger   *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
	expired   atomic.Int64

	closed atomic.Bool

	stopPurge chan struct{}
	purgeDone chan struct{}
}

type entry struct {
	url       string
	expiresAt time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewTier creates a tier with the given name (for logging/metrics),
// capacity, default TTL and purge interval.
func NewTier(name string, capacity int, ttl time.Duration, purgeInterval time.Duration, logger *slog.Logger) *Tier {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tier{
		name:      name,
		capacity:  capacity,
		ttl:       ttl,
		admit:     newAdmitter(capacity),
		logger:    logger.With("component", "cache-tier", "tier", name),
		entries:   make(map[string]*entry, capacity),
		stopPurge: make(chan struct{}),
		purgeDone: make(chan struct{}),
	}
	if purgeInterval > 0 {
		go t.runPurge(purgeInterval)
	} else {
		close(t.purgeDone)
	}
	return t
}

// Get retrieves the url mapped to code, lazily purging an expired entry.
func (t *Tier) Get(code string) (string, bool) {
	h := xxh3.HashString(code)
	t.admit.Record(h)

	t.mu.RLock()
	e, ok := t.entries[code]
	t.mu.RUnlock()

	if !ok {
		t.misses.Add(1)
		return "", false
	}
	if e.isExpired(time.Now()) {
		t.removeExpired(code)
		t.misses.Add(1)
		return "", false
	}

	t.hits.Add(1)
	return e.url, true
}

// Insert stores code → url with the given TTL (0 uses the tier default).
// If the tier is at capacity, a random existing entry is sampled as a
// candidate victim; it is evicted only if the admitter judges the new
// entry more frequently accessed (spec §4.4's admission policy).
// Otherwise the new entry is not stored, so the tier never holds more
// than its capacity.
func (t *Tier) Insert(code, url string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.ttl
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	h := xxh3.HashString(code)
	t.admit.Record(h)

	t.mu.Lock()
	if _, exists := t.entries[code]; !exists && len(t.entries) >= t.capacity {
		if !t.evictVictim(h) {
			t.mu.Unlock()
			return
		}
	}
	t.entries[code] = &entry{url: url, expiresAt: expiresAt}
	t.mu.Unlock()

	t.sets.Add(1)
}

// evictVictim must be called with t.mu held. It samples one entry and
// evicts it only if the candidate hash is judged more frequent. It
// reports whether an entry was evicted.
func (t *Tier) evictVictim(candidate uint64) bool {
	for victimCode := range t.entries {
		victimHash := xxh3.HashString(victimCode)
		if t.admit.Allow(candidate, victimHash) {
			delete(t.entries, victimCode)
			t.evictions.Add(1)
			return true
		}
		return false
	}
	return false
}

// Contains reports whether code is present and unexpired, without
// updating admission-policy frequency state.
func (t *Tier) Contains(code string) bool {
	t.mu.RLock()
	e, ok := t.entries[code]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	if e.isExpired(time.Now()) {
		t.removeExpired(code)
		return false
	}
	return true
}

// Remove deletes code unconditionally.
func (t *Tier) Remove(code string) {
	t.mu.Lock()
	delete(t.entries, code)
	t.mu.Unlock()
}

func (t *Tier) removeExpired(code string) {
	t.mu.Lock()
	if e, ok := t.entries[code]; ok && e.isExpired(time.Now()) {
		delete(t.entries, code)
		t.expired.Add(1)
	}
	t.mu.Unlock()
}

// Len returns the current entry count.
func (t *Tier) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Stats returns a snapshot of this tier's counters.
func (t *Tier) Stats() types.TierStats {
	return types.TierStats{
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
		Sets:      t.sets.Load(),
		Evictions: t.evictions.Load(),
		Expired:   t.expired.Load(),
	}
}

// Close stops the background purge loop and releases the tier.
func (t *Tier) Close() {
	if t.closed.Swap(true) {
		return
	}
	close(t.stopPurge)
	<-t.purgeDone
}

func (t *Tier) runPurge(interval time.Duration) {
	defer close(t.purgeDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopPurge:
			return
		case <-ticker.C:
			t.purgeExpired()
		}
	}
}

func (t *Tier) purgeExpired() {
	now := time.Now()
	var expiredCodes []string

	t.mu.RLock()
	for code, e := range t.entries {
		if e.isExpired(now) {
			expiredCodes = append(expiredCodes, code)
		}
	}
	t.mu.RUnlock()

	if len(expiredCodes) == 0 {
		return
	}

	t.mu.Lock()
	for _, code := range expiredCodes {
		if e, ok := t.entries[code]; ok && e.isExpired(now) {
			delete(t.entries, code)
			t.expired.Add(1)
		}
	}
	t.mu.Unlock()

	t.logger.Debug("purged expired entries", "count", len(expiredCodes))
}

var _ types.CacheTier = (*Tier)(nil)
