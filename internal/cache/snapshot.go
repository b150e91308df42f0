package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/forbiddenlink/finance-quest-core/internal/logging"
	"github.com/forbiddenlink/finance-quest-core/internal/persistence"
)

// snapshotPair serializes as a two-element JSON array ["key", {entry}] to
// match the on-disk document shape.
type snapshotPair[V any] struct {
	Key   string
	Entry Entry[V]
}

func (p snapshotPair[V]) MarshalJSON() ([]byte, error) {
	key, err := json.Marshal(p.Key)
	if err != nil {
		return nil, err
	}
	entry, err := json.Marshal(p.Entry)
	if err != nil {
		return nil, err
	}
	return json.Marshal([2]json.RawMessage{key, entry})
}

func (p *snapshotPair[V]) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw[0] == nil || raw[1] == nil {
		return fmt.Errorf("snapshot pair must hold a key and an entry")
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Entry)
}

// snapshotDocument is the durable form of the store: the full entry list as
// key/entry pairs, the counters, and the schema version the snapshot was
// written under. Checksum is an xxhash64 of the serialized entry list,
// verified on load when present.
type snapshotDocument[V any] struct {
	Entries  []snapshotPair[V] `json:"entries"`
	Stats    Stats             `json:"stats"`
	Version  string            `json:"version"`
	Checksum string            `json:"checksum,omitempty"`
}

func entriesChecksum(entriesJSON []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(entriesJSON))
}

// encodeSnapshotLocked serializes the current store state. Pairs are sorted
// by key so the checksum is deterministic. Caller must hold the mutex.
func (s *Store[V]) encodeSnapshotLocked() ([]byte, error) {
	pairs := make([]snapshotPair[V], 0, len(s.entries))
	for nk, entry := range s.entries {
		pairs = append(pairs, snapshotPair[V]{Key: nk, Entry: entry})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })

	entriesJSON, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot entries: %w", err)
	}

	return json.Marshal(snapshotDocument[V]{
		Entries:  pairs,
		Stats:    s.stats,
		Version:  s.cfg.Version,
		Checksum: entriesChecksum(entriesJSON),
	})
}

// persistLocked writes the snapshot to the configured slot. Persistence
// failures are logged and swallowed; the store degrades to in-memory-only
// for the session. Caller must hold the mutex.
func (s *Store[V]) persistLocked() {
	if s.slot == nil {
		return
	}
	data, err := s.encodeSnapshotLocked()
	if err != nil {
		logging.Error(nil, logging.ComponentPersistence, logging.ActionPersist, "Failed to encode cache snapshot", err, map[string]interface{}{
			"namespace": s.cfg.Namespace,
			"slot":      s.cfg.SlotKey,
		})
		return
	}
	if err := s.slot.Write(s.cfg.SlotKey, data); err != nil {
		logging.Error(nil, logging.ComponentPersistence, logging.ActionPersist, "Failed to write cache snapshot", err, map[string]interface{}{
			"namespace": s.cfg.Namespace,
			"slot":      s.cfg.SlotKey,
		})
	}
}

// hydrate restores entries and stats from the slot. Any failure (missing
// slot, unparseable blob, checksum mismatch, version mismatch) results in a
// cold start. Hydrated entries that expired while persisted are left in
// place; the validity check catches them on access.
func (s *Store[V]) hydrate() {
	data, err := s.slot.Read(s.cfg.SlotKey)
	if err != nil {
		if !errors.Is(err, persistence.ErrSlotEmpty) {
			logging.Warn(nil, logging.ComponentPersistence, logging.ActionRestore, "Failed to read cache snapshot, starting cold", map[string]interface{}{
				"namespace": s.cfg.Namespace,
				"slot":      s.cfg.SlotKey,
				"error":     err.Error(),
			})
		}
		return
	}

	var doc snapshotDocument[V]
	if err := json.Unmarshal(data, &doc); err != nil {
		logging.Warn(nil, logging.ComponentPersistence, logging.ActionRestore, "Corrupt cache snapshot, starting cold", map[string]interface{}{
			"namespace": s.cfg.Namespace,
			"slot":      s.cfg.SlotKey,
			"error":     err.Error(),
		})
		return
	}

	if doc.Version != s.cfg.Version {
		logging.Info(nil, logging.ComponentPersistence, logging.ActionRestore, "Snapshot schema version mismatch, starting cold", map[string]interface{}{
			"namespace":        s.cfg.Namespace,
			"snapshot_version": doc.Version,
			"current_version":  s.cfg.Version,
		})
		return
	}

	if doc.Checksum != "" {
		entriesJSON, err := json.Marshal(doc.Entries)
		if err != nil || entriesChecksum(entriesJSON) != doc.Checksum {
			logging.Warn(nil, logging.ComponentPersistence, logging.ActionRestore, "Snapshot checksum mismatch, starting cold", map[string]interface{}{
				"namespace": s.cfg.Namespace,
				"slot":      s.cfg.SlotKey,
			})
			return
		}
	}

	for _, pair := range doc.Entries {
		s.entries[pair.Key] = pair.Entry
	}
	s.stats = doc.Stats
	s.stats.Size = len(s.entries)

	logging.Info(nil, logging.ComponentPersistence, logging.ActionRestore, "Cache snapshot restored", map[string]interface{}{
		"namespace": s.cfg.Namespace,
		"entries":   len(s.entries),
	})
}
