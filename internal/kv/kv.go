// Package kv provides durable key-value storage with hardware abstraction.
// The bolt implementation writes through to a file and fsyncs on commit.
// The memory implementation is volatile and supports fault injection for tests.
package kv

import (
	"encoding/binary"
	"errors"
)

// Namespace is the bucket holding every persisted key.
const Namespace = "hrwatch"

// Persisted layout.
const (
	KeyHistoryIndex     = "historyIndex"     // uint8
	KeyHistoryTimestamp = "historyTimestamp" // uint32, unix seconds
	KeyHistorySamples   = "historySamples"   // [capacity]byte
	KeyBootCount        = "bootCount"        // uint32
	KeyScreenMode       = "screenMode"       // uint8
)

// ErrUnavailable is wrapped by Open errors when the storage subsystem cannot be opened.
var ErrUnavailable = errors.New("storage unavailable")

// Writer stages puts inside a single Update.
type Writer interface {
	Put(key string, value []byte) error
}

// Storage is a durable key-value store.
type Storage interface {
	// Get returns a copy of the value for key, or nil if the key is absent.
	Get(key string) ([]byte, error)

	// Update runs fn and commits every Put it made atomically.
	// If fn returns an error nothing is committed.
	Update(fn func(w Writer) error) error

	// Close releases the underlying resources.
	Close() error
}

// Uint8 reads a single-byte scalar. Missing or malformed values yield def.
func Uint8(s Storage, key string, def uint8) (uint8, error) {
	b, err := s.Get(key)
	if err != nil {
		return def, err
	}
	if len(b) != 1 {
		return def, nil
	}
	return b[0], nil
}

// Uint32 reads a big-endian uint32 scalar. Missing or malformed values yield def.
func Uint32(s Storage, key string, def uint32) (uint32, error) {
	b, err := s.Get(key)
	if err != nil {
		return def, err
	}
	if len(b) != 4 {
		return def, nil
	}
	return binary.BigEndian.Uint32(b), nil
}

// PutUint8 stages a single-byte scalar.
func PutUint8(w Writer, key string, v uint8) error {
	return w.Put(key, []byte{v})
}

// PutUint32 stages a big-endian uint32 scalar.
func PutUint32(w Writer, key string, v uint32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return w.Put(key, b)
}
