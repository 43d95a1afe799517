package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStorage persists keys in a bbolt database file.
type BoltStorage struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database at path.
// Errors wrap ErrUnavailable.
func OpenBolt(path string) (*BoltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir: %v", ErrUnavailable, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(Namespace))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create bucket: %v", ErrUnavailable, err)
	}

	return &BoltStorage{db: db}, nil
}

// Get returns a copy of the stored value, or nil if absent.
func (s *BoltStorage) Get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(Namespace))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// bolt values are only valid for the life of the transaction
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out, nil
}

// Update runs fn inside a single read-write transaction.
func (s *BoltStorage) Update(fn func(w Writer) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(Namespace))
		if err != nil {
			return fmt.Errorf("bucket: %w", err)
		}
		return fn(boltWriter{bucket: b})
	})
}

// Close closes the database file.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

type boltWriter struct {
	bucket *bolt.Bucket
}

func (w boltWriter) Put(key string, value []byte) error {
	if err := w.bucket.Put([]byte(key), value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
