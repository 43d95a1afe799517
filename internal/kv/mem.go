package kv

import (
	"errors"
	"sync"
)

// ErrPowerLoss is returned by MemStorage.Update when an injected fault fires.
var ErrPowerLoss = errors.New("simulated power loss")

// MemStorage is a volatile Storage. It stands in for the bolt file when the
// file cannot be opened, and is the test double for everything that persists.
type MemStorage struct {
	mu     sync.Mutex
	values map[string][]byte

	// FailAt, if > 0, aborts the next Update on its FailAt-th Put (1-based).
	// Staged writes are discarded and FailAt resets to 0.
	FailAt int

	// Commits counts successful Updates.
	Commits int

	// Closed tracks if Close was called.
	Closed bool
}

// NewMemStorage creates an empty MemStorage.
func NewMemStorage() *MemStorage {
	return &MemStorage{values: make(map[string][]byte)}
}

// Get returns a copy of the stored value, or nil if absent.
func (m *MemStorage) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Update stages every Put made by fn and commits them together.
func (m *MemStorage) Update(fn func(w Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := &memWriter{staged: make(map[string][]byte), failAt: m.FailAt}
	err := fn(w)
	if w.fired {
		m.FailAt = 0
	}
	if err != nil {
		return err
	}

	for k, v := range w.staged {
		m.values[k] = v
	}
	m.Commits++
	return nil
}

// Close marks the storage as closed. Values are kept so tests can reopen.
func (m *MemStorage) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Keys returns the number of stored keys.
func (m *MemStorage) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

type memWriter struct {
	staged map[string][]byte
	puts   int
	failAt int
	fired  bool
}

func (w *memWriter) Put(key string, value []byte) error {
	w.puts++
	if w.failAt > 0 && w.puts == w.failAt {
		w.fired = true
		return ErrPowerLoss
	}
	w.staged[key] = append([]byte(nil), value...)
	return nil
}
