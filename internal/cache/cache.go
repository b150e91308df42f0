// Package cache implements a namespaced, TTL-bounded, capacity-bounded
// key-value store with hit/miss/eviction statistics and optional durable
// snapshots through an injected persistence slot.
//
// Entries are stamped with the store's schema version at write time; bumping
// the version invalidates every previously written entry regardless of
// remaining TTL, which lets a host force a full cache bust across restarts
// without clearing persisted data. Stale entries are removed lazily by the
// lookups that hit them and by a periodic background sweep owned by the
// store's lifecycle.
package cache

import (
	"sync"
	"time"

	"github.com/forbiddenlink/finance-quest-core/internal/logging"
	"github.com/forbiddenlink/finance-quest-core/internal/persistence"
)

// Entry is a single cached record. The value itself is immutable once
// written; a new Set replaces the whole entry. Metadata is the only part
// that can be updated in place.
type Entry[V any] struct {
	Value         V                 `json:"value"`
	CreatedAt     time.Time         `json:"created_at"`
	SchemaVersion string            `json:"schema_version"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Stats holds store counters. Hits, Misses and Evictions accumulate
// monotonically; Size tracks the current entry count.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// KV is a key/value pair returned by Entries, with the namespace prefix
// already stripped from the key.
type KV[V any] struct {
	Key   string
	Value V
}

// Config holds store construction settings.
type Config struct {
	// Namespace prefixes every key so independent stores can share one
	// persistence medium without collisions.
	Namespace string
	// Version is the schema version stamped on entries at write time.
	// Entries written under any other version are invalid.
	Version string
	// TTL is the entry lifetime. Zero or negative means entries never
	// expire by age.
	TTL time.Duration
	// MaxEntries bounds the store size. Zero means unbounded. When a Set
	// would exceed the bound, the single oldest entry by creation time is
	// evicted first.
	MaxEntries int
	// SlotKey names the persistence slot. Empty defaults to Namespace.
	SlotKey string
	// SweepInterval is the period of the background invalidation sweep.
	// Zero disables the sweep; lazy eviction on lookup still applies.
	SweepInterval time.Duration
	// Clock overrides the time source. Nil means time.Now. Tests use this
	// to advance a virtual clock without sleeping.
	Clock func() time.Time
}

// ConfigPatch is a partial config change applied by UpdateConfig. Nil fields
// are left unchanged.
type ConfigPatch struct {
	Version    *string
	TTL        *time.Duration
	MaxEntries *int
}

// Store is a bounded, expiring, namespaced key-value store. All methods are
// safe for concurrent use.
type Store[V any] struct {
	mu      sync.Mutex
	cfg     Config
	clock   func() time.Time
	entries map[string]Entry[V]
	stats   Stats
	slot    persistence.Slot

	stopSweep chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// New constructs a store. If slot is non-nil the store attempts to hydrate
// entries and stats from the configured slot; a missing, corrupt or
// version-mismatched snapshot degrades to a cold start, never an error.
// A background sweep goroutine is started when cfg.SweepInterval > 0 and
// runs until Close.
func New[V any](cfg Config, slot persistence.Slot) *Store[V] {
	if cfg.SlotKey == "" {
		cfg.SlotKey = cfg.Namespace
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Store[V]{
		cfg:       cfg,
		clock:     clock,
		entries:   make(map[string]Entry[V]),
		slot:      slot,
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	if slot != nil {
		s.hydrate()
	}

	if cfg.SweepInterval > 0 {
		go s.runSweeper(cfg.SweepInterval)
	} else {
		close(s.sweepDone)
	}

	return s
}

// Set stores value under key, stamped with the current time and schema
// version. At capacity the single oldest entry by creation time is evicted
// first. Metadata may be nil.
func (s *Store[V]) Set(key string, value V, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nk := s.namespaced(key)
	if _, replacing := s.entries[nk]; !replacing {
		if s.cfg.MaxEntries > 0 && len(s.entries) >= s.cfg.MaxEntries {
			s.evictOldestLocked()
		}
	}

	var meta map[string]string
	if len(metadata) > 0 {
		meta = make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}

	s.entries[nk] = Entry[V]{
		Value:         value,
		CreatedAt:     s.clock(),
		SchemaVersion: s.cfg.Version,
		Metadata:      meta,
	}
	s.stats.Size = len(s.entries)
	s.persistLocked()
}

// Get returns the value stored under key. An entry that exists but fails the
// validity check (version mismatch or TTL expired) is removed, counted as an
// eviction and reported as a miss.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	nk := s.namespaced(key)
	entry, ok := s.entries[nk]
	if !ok {
		s.stats.Misses++
		return zero, false
	}
	if !s.validLocked(entry) {
		delete(s.entries, nk)
		s.stats.Evictions++
		s.stats.Misses++
		s.stats.Size = len(s.entries)
		s.persistLocked()
		return zero, false
	}
	s.stats.Hits++
	return entry.Value, true
}

// Has reports whether a valid entry exists under key. Unlike Get it affects
// neither the statistics nor the entry itself.
func (s *Store[V]) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[s.namespaced(key)]
	return ok && s.validLocked(entry)
}

// Delete removes the entry under key unconditionally. Deleting an absent key
// is a no-op.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nk := s.namespaced(key)
	if _, ok := s.entries[nk]; !ok {
		return
	}
	delete(s.entries, nk)
	s.stats.Size = len(s.entries)
	s.persistLocked()
}

// Clear removes all entries. The wipe counts as a single eviction event.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry[V])
	s.stats.Evictions++
	s.stats.Size = 0
	s.persistLocked()
}

// Stats returns a snapshot copy of the counters.
func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Entries returns the currently valid entries with the namespace prefix
// stripped. It does not mutate the store even when it encounters invalid
// entries; those are left for lazy eviction or the sweep.
func (s *Store[V]) Entries() []KV[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]KV[V], 0, len(s.entries))
	prefix := s.cfg.Namespace + ":"
	for nk, entry := range s.entries {
		if !s.validLocked(entry) {
			continue
		}
		key := nk
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			key = key[len(prefix):]
		}
		out = append(out, KV[V]{Key: key, Value: entry.Value})
	}
	return out
}

// UpdateConfig merges the patch into the store configuration and immediately
// re-runs the invalidation sweep under the new settings, so a shortened TTL
// or bumped version takes effect at once. A lowered MaxEntries evicts oldest
// entries until the store fits the new bound.
func (s *Store[V]) UpdateConfig(patch ConfigPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Version != nil {
		s.cfg.Version = *patch.Version
	}
	if patch.TTL != nil {
		s.cfg.TTL = *patch.TTL
	}
	if patch.MaxEntries != nil {
		s.cfg.MaxEntries = *patch.MaxEntries
	}

	s.sweepLocked()
	for s.cfg.MaxEntries > 0 && len(s.entries) > s.cfg.MaxEntries {
		s.evictOldestLocked()
	}
	s.stats.Size = len(s.entries)
	s.persistLocked()
}

// Metadata returns a copy of the metadata of the valid entry under key.
func (s *Store[V]) Metadata(key string) (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[s.namespaced(key)]
	if !ok || !s.validLocked(entry) {
		return nil, false
	}
	out := make(map[string]string, len(entry.Metadata))
	for k, v := range entry.Metadata {
		out[k] = v
	}
	return out, true
}

// UpdateMetadata shallow-merges patch into the metadata of the entry under
// key. Updating an absent key is a no-op.
func (s *Store[V]) UpdateMetadata(key string, patch map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nk := s.namespaced(key)
	entry, ok := s.entries[nk]
	if !ok {
		return
	}
	if entry.Metadata == nil {
		entry.Metadata = make(map[string]string, len(patch))
	}
	for k, v := range patch {
		entry.Metadata[k] = v
	}
	s.entries[nk] = entry
	s.persistLocked()
}

// Sweep removes every invalid entry, accumulates the eviction count and
// persists once at the end. It returns the number of entries removed. The
// background sweeper calls this on its interval; hosts may also call it
// directly.
func (s *Store[V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.sweepLocked()
	if removed > 0 {
		s.persistLocked()
	}
	return removed
}

// Close stops the background sweeper. The store remains usable afterwards;
// only lazy eviction applies.
func (s *Store[V]) Close() {
	s.closeOnce.Do(func() {
		close(s.stopSweep)
	})
	<-s.sweepDone
}

func (s *Store[V]) runSweeper(interval time.Duration) {
	defer close(s.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				logging.Debug(nil, logging.ComponentCache, logging.ActionSweep, "Sweep removed invalid entries", map[string]interface{}{
					"namespace": s.cfg.Namespace,
					"removed":   removed,
				})
			}
		case <-s.stopSweep:
			return
		}
	}
}

// sweepLocked removes invalid entries. Caller must hold the mutex.
func (s *Store[V]) sweepLocked() int {
	removed := 0
	for nk, entry := range s.entries {
		if !s.validLocked(entry) {
			delete(s.entries, nk)
			s.stats.Evictions++
			removed++
		}
	}
	s.stats.Size = len(s.entries)
	return removed
}

// validLocked reports whether entry passes the version and TTL checks.
func (s *Store[V]) validLocked(entry Entry[V]) bool {
	if entry.SchemaVersion != s.cfg.Version {
		return false
	}
	if s.cfg.TTL <= 0 {
		return true
	}
	return s.clock().Sub(entry.CreatedAt) < s.cfg.TTL
}

// evictOldestLocked removes the single oldest entry by creation time, ties
// broken arbitrarily. Linear scan; the documented policy is write-time
// ordering, not true LRU.
func (s *Store[V]) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	found := false
	for nk, entry := range s.entries {
		if !found || entry.CreatedAt.Before(oldestAt) {
			found = true
			oldestKey = nk
			oldestAt = entry.CreatedAt
		}
	}
	if found {
		delete(s.entries, oldestKey)
		s.stats.Evictions++
	}
}

func (s *Store[V]) namespaced(key string) string {
	return s.cfg.Namespace + ":" + key
}
