// Package history keeps the rolling heart-rate history in a fixed-capacity
// ring that is written through to durable storage on every mutation.
package history

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/wrist-hr/internal/kv"
)

// Capacity is the production ring size: 4 hours at 5-minute intervals.
const Capacity = 48

// Store is a circular buffer of BPM samples. A zero sample marks an empty slot.
// Not safe for concurrent use: the session controller is the only owner.
type Store struct {
	storage kv.Storage
	logger  *zap.Logger
	now     func() time.Time

	samples []uint8
	cursor  int    // next slot to overwrite
	updated uint32 // unix seconds of the last append, 0 = never
}

// Open loads the ring from storage. A stored array whose length differs from
// capacity (first boot, corruption, or a capacity change) is replaced by a
// clean all-zero ring, which is persisted immediately. A failure to persist
// the clean ring is logged and the ring is still returned; the next Append
// writes the whole state again.
func Open(storage kv.Storage, capacity int, now func() time.Time, logger *zap.Logger) (*Store, error) {
	if capacity <= 0 || capacity > 256 {
		return nil, fmt.Errorf("history: capacity %d out of range 1..256", capacity)
	}

	s := &Store{
		storage: storage,
		logger:  logger,
		now:     now,
		samples: make([]uint8, capacity),
	}

	data, err := storage.Get(kv.KeyHistorySamples)
	if err != nil {
		return nil, fmt.Errorf("history: load samples: %w", err)
	}
	idx, err := kv.Uint8(storage, kv.KeyHistoryIndex, 0)
	if err != nil {
		return nil, fmt.Errorf("history: load index: %w", err)
	}
	ts, err := kv.Uint32(storage, kv.KeyHistoryTimestamp, 0)
	if err != nil {
		return nil, fmt.Errorf("history: load timestamp: %w", err)
	}

	if len(data) != capacity || int(idx) >= capacity {
		logger.Info("initializing new history buffer",
			zap.Int("stored_len", len(data)),
			zap.Int("capacity", capacity))
		if err := s.persist(); err != nil {
			logger.Error("save clean history failed, continuing in memory", zap.Error(err))
		}
		return s, nil
	}

	copy(s.samples, data)
	s.cursor = int(idx)
	s.updated = ts
	logger.Info("loaded history",
		zap.Int("index", s.cursor),
		zap.Int("count", s.Count()))
	return s, nil
}

// Append stores sample at the cursor and advances it. Cursor, timestamp and
// samples are persisted together; on failure the in-memory ring is left
// unchanged so it keeps matching storage.
func (s *Store) Append(sample uint8) error {
	prevSample := s.samples[s.cursor]
	prevCursor := s.cursor
	prevUpdated := s.updated

	s.samples[s.cursor] = sample
	s.cursor = (s.cursor + 1) % len(s.samples)
	s.updated = uint32(s.now().Unix())

	if err := s.persist(); err != nil {
		s.samples[prevCursor] = prevSample
		s.cursor = prevCursor
		s.updated = prevUpdated
		return fmt.Errorf("history: append: %w", err)
	}

	s.logger.Debug("added sample", zap.Uint8("bpm", sample), zap.Int("index", prevCursor))
	return nil
}

// Chronological returns every slot from oldest (at the cursor) to newest
// (just before the cursor), empty slots included.
func (s *Store) Chronological() []uint8 {
	n := len(s.samples)
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		out[i] = s.samples[(s.cursor+i)%n]
	}
	return out
}

// Count returns the number of non-empty slots.
func (s *Store) Count() int {
	count := 0
	for _, v := range s.samples {
		if v > 0 {
			count++
		}
	}
	return count
}

// IsFull reports whether every slot holds a reading.
func (s *Store) IsFull() bool {
	return s.Count() == len(s.samples)
}

// Capacity returns the ring size.
func (s *Store) Capacity() int {
	return len(s.samples)
}

// Latest returns the most recent non-empty sample.
func (s *Store) Latest() (uint8, bool) {
	n := len(s.samples)
	for i := 1; i <= n; i++ {
		if v := s.samples[(s.cursor-i+n)%n]; v > 0 {
			return v, true
		}
	}
	return 0, false
}

// LastUpdate returns the time of the last append, or the zero time.
func (s *Store) LastUpdate() time.Time {
	if s.updated == 0 {
		return time.Time{}
	}
	return time.Unix(int64(s.updated), 0)
}

// Clear resets the ring to all-empty and persists it.
func (s *Store) Clear() error {
	prev := s.Chronological()
	prevCursor, prevUpdated := s.cursor, s.updated

	for i := range s.samples {
		s.samples[i] = 0
	}
	s.cursor = 0
	s.updated = 0

	if err := s.persist(); err != nil {
		// restore in ring order
		n := len(s.samples)
		for i, v := range prev {
			s.samples[(prevCursor+i)%n] = v
		}
		s.cursor, s.updated = prevCursor, prevUpdated
		return fmt.Errorf("history: clear: %w", err)
	}

	s.logger.Info("history cleared")
	return nil
}

func (s *Store) persist() error {
	return s.storage.Update(func(w kv.Writer) error {
		if err := kv.PutUint8(w, kv.KeyHistoryIndex, uint8(s.cursor)); err != nil {
			return err
		}
		if err := kv.PutUint32(w, kv.KeyHistoryTimestamp, s.updated); err != nil {
			return err
		}
		return w.Put(kv.KeyHistorySamples, s.samples)
	})
}
