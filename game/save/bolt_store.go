package save

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore keeps each slot in its own bucket of a bbolt database
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file at path
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt database path is required")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (bs *BoltStore) Get(ctx context.Context, slot, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := bs.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(slot))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s/%s: %w", slot, key, err)
	}
	return value, found, nil
}

func (bs *BoltStore) Put(ctx context.Context, slot, key, value string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	err := bs.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(slot))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", slot, key, err)
	}
	return nil
}

func (bs *BoltStore) DeleteSlot(ctx context.Context, slot string) error {
	err := bs.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(slot)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(slot))
	})
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	return nil
}

// ListSlots returns bucket names in key order
func (bs *BoltStore) ListSlots(ctx context.Context) ([]string, error) {
	var slots []string
	err := bs.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			slots = append(slots, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}
