package cache_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/forbiddenlink/finance-quest-core/internal/cache"
	"github.com/forbiddenlink/finance-quest-core/internal/persistence"
)

// failingSlot simulates an unavailable persistence medium.
type failingSlot struct{}

func (failingSlot) Read(string) ([]byte, error) { return nil, errors.New("storage unavailable") }
func (failingSlot) Write(string, []byte) error  { return errors.New("storage unavailable") }

func TestSnapshotRoundTrip(t *testing.T) {
	clock := newFakeClock()
	slot := persistence.NewMemorySlot()
	cfg := cache.Config{
		Namespace: "roundtrip",
		Version:   "1.0.0",
		TTL:       time.Hour,
		Clock:     clock.Now,
	}

	a := cache.New[string](cfg, slot)
	a.Set("npv", "1532.11", map[string]string{"calculator": "bond"})
	a.Set("irr", "0.074", nil)
	a.Get("npv")
	a.Get("missing")
	a.Close()

	b := cache.New[string](cfg, slot)
	defer b.Close()

	entries := b.Entries()
	if len(entries) != 2 {
		t.Fatalf("restored %d entries, want 2", len(entries))
	}
	if got, ok := b.Get("npv"); !ok || got != "1532.11" {
		t.Errorf("Get(npv) = (%q, %v)", got, ok)
	}

	meta, ok := b.Metadata("npv")
	if !ok || meta["calculator"] != "bond" {
		t.Errorf("metadata not restored: %v", meta)
	}

	// Snapshots are written on mutating operations, so the stored stats
	// reflect the state as of the last Set. The lookups on the first store
	// happened after that and are not carried over.
	stats := b.Stats()
	if stats.Misses != 0 {
		t.Errorf("Misses = %d, want 0", stats.Misses)
	}
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1 (from the Get after restore)", stats.Hits)
	}
}

func TestSnapshotExpiryWhilePersisted(t *testing.T) {
	clock := newFakeClock()
	slot := persistence.NewMemorySlot()
	cfg := cache.Config{
		Namespace: "expiring",
		Version:   "1.0.0",
		TTL:       time.Minute,
		Clock:     clock.Now,
	}

	a := cache.New[string](cfg, slot)
	a.Set("short-lived", "v", nil)
	a.Close()

	// Time keeps passing while the snapshot sits on disk.
	clock.Advance(2 * time.Minute)

	b := cache.New[string](cfg, slot)
	defer b.Close()

	if len(b.Entries()) != 0 {
		t.Error("entry that expired while persisted should not be listed")
	}
	if _, ok := b.Get("short-lived"); ok {
		t.Error("entry that expired while persisted should be absent")
	}
}

func TestSnapshotCorruptBlob(t *testing.T) {
	slot := persistence.NewMemorySlot()
	if err := slot.Write("corrupt", []byte(`{"entries": [[`)); err != nil {
		t.Fatal(err)
	}

	store := cache.New[string](cache.Config{
		Namespace: "corrupt",
		Version:   "1.0.0",
		TTL:       time.Hour,
	}, slot)
	defer store.Close()

	if stats := store.Stats(); stats.Size != 0 {
		t.Errorf("corrupt snapshot must yield a cold start, Size = %d", stats.Size)
	}

	// The store must stay fully usable.
	store.Set("k", "v", nil)
	if _, ok := store.Get("k"); !ok {
		t.Error("store should work normally after a corrupt snapshot")
	}
}

func TestSnapshotWrongShape(t *testing.T) {
	slot := persistence.NewMemorySlot()
	if err := slot.Write("shape", []byte(`{"entries": "not-an-array", "version": "1.0.0"}`)); err != nil {
		t.Fatal(err)
	}

	store := cache.New[string](cache.Config{
		Namespace: "shape",
		Version:   "1.0.0",
		TTL:       time.Hour,
	}, slot)
	defer store.Close()

	if stats := store.Stats(); stats.Size != 0 {
		t.Errorf("malformed snapshot must yield a cold start, Size = %d", stats.Size)
	}
}

func TestSnapshotVersionMismatch(t *testing.T) {
	slot := persistence.NewMemorySlot()

	a := cache.New[string](cache.Config{
		Namespace: "versioned",
		Version:   "1.0.0",
		TTL:       time.Hour,
	}, slot)
	a.Set("k", "v", nil)
	a.Close()

	b := cache.New[string](cache.Config{
		Namespace: "versioned",
		Version:   "2.0.0",
		TTL:       time.Hour,
	}, slot)
	defer b.Close()

	if stats := b.Stats(); stats.Size != 0 {
		t.Errorf("version-mismatched snapshot must yield a cold start, Size = %d", stats.Size)
	}
}

func TestSnapshotChecksumMismatch(t *testing.T) {
	slot := persistence.NewMemorySlot()

	a := cache.New[string](cache.Config{
		Namespace: "summed",
		Version:   "1.0.0",
		TTL:       time.Hour,
	}, slot)
	a.Set("k", "v", nil)
	a.Close()

	// Tamper with the stored checksum.
	blob, err := slot.Read("summed")
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(blob, &doc); err != nil {
		t.Fatal(err)
	}
	doc["checksum"] = json.RawMessage(`"00000000deadbeef"`)
	tampered, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := slot.Write("summed", tampered); err != nil {
		t.Fatal(err)
	}

	b := cache.New[string](cache.Config{
		Namespace: "summed",
		Version:   "1.0.0",
		TTL:       time.Hour,
	}, slot)
	defer b.Close()

	if stats := b.Stats(); stats.Size != 0 {
		t.Errorf("checksum mismatch must yield a cold start, Size = %d", stats.Size)
	}
}

func TestPersistenceFailureDegradesToMemory(t *testing.T) {
	store := cache.New[string](cache.Config{
		Namespace: "degraded",
		Version:   "1.0.0",
		TTL:       time.Hour,
	}, failingSlot{})
	defer store.Close()

	// Every mutating call triggers a failing write; none may propagate.
	store.Set("k", "v", nil)
	store.UpdateMetadata("k", map[string]string{"a": "b"})
	store.Delete("k")
	store.Set("k2", "v2", nil)
	store.Clear()
	store.Set("k3", "v3", nil)

	if got, ok := store.Get("k3"); !ok || got != "v3" {
		t.Errorf("in-memory operation failed under persistence outage: (%q, %v)", got, ok)
	}
}

func TestSnapshotDocumentShape(t *testing.T) {
	clock := newFakeClock()
	slot := persistence.NewMemorySlot()
	store := cache.New[string](cache.Config{
		Namespace: "shape-check",
		Version:   "3.1.0",
		TTL:       time.Hour,
		Clock:     clock.Now,
	}, slot)
	defer store.Close()

	store.Set("key-a", "val-a", nil)

	blob, err := slot.Read("shape-check")
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Entries  [][2]json.RawMessage `json:"entries"`
		Stats    cache.Stats          `json:"stats"`
		Version  string               `json:"version"`
		Checksum string               `json:"checksum"`
	}
	if err := json.Unmarshal(blob, &doc); err != nil {
		t.Fatalf("snapshot is not the documented shape: %v", err)
	}
	if doc.Version != "3.1.0" {
		t.Errorf("version = %q", doc.Version)
	}
	if len(doc.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(doc.Entries))
	}
	var key string
	if err := json.Unmarshal(doc.Entries[0][0], &key); err != nil {
		t.Fatal(err)
	}
	if key != "shape-check:key-a" {
		t.Errorf("persisted key = %q, want namespaced form", key)
	}
	if doc.Checksum == "" {
		t.Error("snapshot should carry a checksum")
	}
	if doc.Stats.Size != 1 {
		t.Errorf("persisted stats size = %d, want 1", doc.Stats.Size)
	}
}
