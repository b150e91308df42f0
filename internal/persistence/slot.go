// Package persistence provides the durable slot abstraction used by the cache
// store. A slot is a single named blob in some key-value durable medium; the
// cache writes its full snapshot document into one slot and reads it back on
// startup. Backends are interchangeable: in-process memory (tests), plain
// files with atomic replace, or an embedded bbolt database.
package persistence

import (
	"errors"
	"sync"
)

// ErrSlotEmpty is returned by Read when the named slot has never been written.
// Callers treat it as a cold start, not a failure.
var ErrSlotEmpty = errors.New("persistence: slot empty")

// Slot is the durable storage port. Implementations must be safe for
// concurrent use by multiple goroutines.
type Slot interface {
	// Read returns the blob stored under name, or ErrSlotEmpty.
	Read(name string) ([]byte, error)
	// Write replaces the blob stored under name.
	Write(name string, data []byte) error
}

// MemorySlot is an in-process Slot used in tests and for cache instances that
// should not outlive the process.
type MemorySlot struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemorySlot creates an empty in-memory slot store.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{blobs: make(map[string][]byte)}
}

// Read returns a copy of the stored blob.
func (m *MemorySlot) Read(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrSlotEmpty
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores a copy of data under name.
func (m *MemorySlot) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob := make([]byte, len(data))
	copy(blob, data)
	m.blobs[name] = blob
	return nil
}
