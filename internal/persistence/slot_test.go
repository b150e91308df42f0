package persistence_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/forbiddenlink/finance-quest-core/internal/persistence"
)

func testSlotContract(t *testing.T, slot persistence.Slot) {
	t.Helper()

	// Empty slot reads as cold start.
	if _, err := slot.Read("absent"); !errors.Is(err, persistence.ErrSlotEmpty) {
		t.Errorf("Read(absent) error = %v, want ErrSlotEmpty", err)
	}

	// Write then read round-trips.
	if err := slot.Write("quest:cache", []byte(`{"entries":[]}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := slot.Read("quest:cache")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != `{"entries":[]}` {
		t.Errorf("Read = %q", data)
	}

	// Write replaces the previous blob.
	if err := slot.Write("quest:cache", []byte(`{"entries":[["a",{}]]}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err = slot.Read("quest:cache")
	if err != nil {
		t.Fatalf("Read after overwrite: %v", err)
	}
	if string(data) != `{"entries":[["a",{}]]}` {
		t.Errorf("Read after overwrite = %q", data)
	}

	// Slots are independent.
	if _, err := slot.Read("quest:other"); !errors.Is(err, persistence.ErrSlotEmpty) {
		t.Errorf("unrelated slot should be empty, got %v", err)
	}
}

func TestMemorySlot(t *testing.T) {
	slot := persistence.NewMemorySlot()
	testSlotContract(t, slot)

	// Mutating a returned blob must not affect the stored copy.
	if err := slot.Write("iso", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	data, _ := slot.Read("iso")
	data[0] = 'X'
	again, _ := slot.Read("iso")
	if string(again) != "abc" {
		t.Errorf("stored blob was mutated through the returned slice: %q", again)
	}
}

func TestFileSlot(t *testing.T) {
	dir := t.TempDir()
	slot, err := persistence.NewFileSlot(dir)
	if err != nil {
		t.Fatal(err)
	}
	testSlotContract(t, slot)

	// No temp files left behind after writes.
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}

	// Slot names with separators map to safe filenames.
	if err := slot.Write("ns:with/sep", []byte("x")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Errorf("unexpected file in data dir: %s", e.Name())
		}
	}
}

func TestFileSlotEmptyDir(t *testing.T) {
	if _, err := persistence.NewFileSlot(""); err == nil {
		t.Error("NewFileSlot(\"\") should fail")
	}
}

func TestFileSlotSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	a, err := persistence.NewFileSlot(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Write("durable", []byte("payload")); err != nil {
		t.Fatal(err)
	}

	b, err := persistence.NewFileSlot(dir)
	if err != nil {
		t.Fatal(err)
	}
	data, err := b.Read("durable")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("Read after reopen = %q", data)
	}
}

func TestBoltSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.db")
	slot, err := persistence.OpenBoltSlot(path)
	if err != nil {
		t.Fatal(err)
	}
	defer slot.Close()

	testSlotContract(t, slot)
}

func TestBoltSlotSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.db")

	a, err := persistence.OpenBoltSlot(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Write("durable", []byte("payload")); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := persistence.OpenBoltSlot(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	data, err := b.Read("durable")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("Read after reopen = %q", data)
	}
}
