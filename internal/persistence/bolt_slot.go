package persistence

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const slotBucket = "slots"

// BoltSlot stores slots as keys inside a single bbolt bucket. Suited for
// hosts that already keep other durable state in the same database file.
type BoltSlot struct {
	db *bolt.DB
}

// OpenBoltSlot opens (or creates) the bbolt database at path and ensures the
// slot bucket exists.
func OpenBoltSlot(path string) (*BoltSlot, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open slot database: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(slotBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create slot bucket: %w", err)
	}
	return &BoltSlot{db: db}, nil
}

// Read returns the blob stored under name, or ErrSlotEmpty.
func (b *BoltSlot) Read(name string) ([]byte, error) {
	var out []byte
	if err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(slotBucket)).Get([]byte(name))
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", name, err)
	}
	if out == nil {
		return nil, ErrSlotEmpty
	}
	return out, nil
}

// Write replaces the blob stored under name.
func (b *BoltSlot) Write(name string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(slotBucket)).Put([]byte(name), data)
	})
}

// Close closes the underlying database.
func (b *BoltSlot) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
