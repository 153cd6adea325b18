// SPDX-License-Identifier: MIT

// Package ringbuf holds the most recent audio samples shared between the
// capture callback (sole writer) and the tick loop (sole reader).
//
// The store is a fixed-capacity FIFO: once full, each push overwrites the
// oldest sample. A single mutex serializes the writer's per-chunk push with
// the reader's snapshot copy; nothing else happens under the lock.
package ringbuf

import (
	"errors"
	"fmt"
	"sync"

	"audiowheel/pkg/bitint"
)

// ErrNotFull is returned by Snapshot until Cap samples have been pushed.
// It is a normal warm-up condition, not a failure.
var ErrNotFull = errors.New("ring buffer not full")

// Store is a mutex-guarded circular buffer of float32 samples.
type Store struct {
	mu    sync.Mutex
	buf   []float32
	head  int // next write position
	count int
}

// New creates a store holding capacity samples. Capacity must be a power of
// two so it lines up with the FFT sizes drawn from it.
func New(capacity int) (*Store, error) {
	if !bitint.IsPowerOfTwo(capacity) {
		return nil, fmt.Errorf("ring buffer capacity must be a power of 2, got %d", capacity)
	}
	return &Store{buf: make([]float32, capacity)}, nil
}

// Cap returns the fixed capacity.
func (s *Store) Cap() int {
	return len(s.buf)
}

// Len returns the number of samples held, never more than Cap.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Full reports whether enough history has been collected for analysis.
func (s *Store) Full() bool {
	return s.Len() == len(s.buf)
}

// Push appends one sample, discarding the oldest when full.
func (s *Store) Push(sample float32) {
	s.mu.Lock()
	s.push(sample)
	s.mu.Unlock()
}

// PushSlice appends a delivered chunk under a single lock acquisition.
func (s *Store) PushSlice(samples []float32) {
	s.mu.Lock()
	for _, v := range samples {
		s.push(v)
	}
	s.mu.Unlock()
}

func (s *Store) push(v float32) {
	s.buf[s.head] = v
	s.head = (s.head + 1) & (len(s.buf) - 1)
	if s.count < len(s.buf) {
		s.count++
	}
}

// Snapshot copies the Cap most recent samples into dst, oldest first, without
// mutating the store. dst must hold at least Cap samples. ErrNotFull is
// returned, and dst left untouched, until the store has filled once.
func (s *Store) Snapshot(dst []float32) error {
	if len(dst) < len(s.buf) {
		return fmt.Errorf("snapshot destination holds %d samples, need %d", len(dst), len(s.buf))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count < len(s.buf) {
		return ErrNotFull
	}

	// When full, head points at the oldest sample.
	n := copy(dst, s.buf[s.head:])
	copy(dst[n:], s.buf[:s.head])
	return nil
}

// Reset drops all samples. Used when the capture source is swapped.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = 0
	s.count = 0
	clear(s.buf)
}
