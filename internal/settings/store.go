// SPDX-License-Identifier: MIT
package settings

import (
	"sync"
)

// Restructure asks the scene to tear down and rebuild its columns.
type Restructure struct {
	ColumnCount int
	ColumnWidth float64
}

// Store guards the live settings. Writers validate a modified copy before it
// becomes visible, so readers only ever see consistent settings.
type Store struct {
	mu          sync.RWMutex
	current     Spectrum
	capacity    int
	restructure chan Restructure
}

// NewStore validates initial against a sample buffer of the given capacity.
func NewStore(initial Spectrum, capacity int) (*Store, error) {
	initial.Normalize()
	if err := initial.Validate(capacity); err != nil {
		return nil, err
	}
	return &Store{
		current:     initial,
		capacity:    capacity,
		restructure: make(chan Restructure, 1),
	}, nil
}

// Snapshot returns a copy of the current settings.
func (st *Store) Snapshot() Spectrum {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Update applies fn to a copy of the current settings, normalizes and
// validates it, and publishes it. An invalid result leaves the store
// unchanged; the unchanged settings are returned with the validation error.
func (st *Store) Update(fn func(*Spectrum)) (Spectrum, error) {
	return st.Edit(func(s *Spectrum) error {
		fn(s)
		return nil
	})
}

// Edit is Update for edits that can fail part way, such as decoding a
// patch. An error from fn discards the copy and is returned as is.
func (st *Store) Edit(fn func(*Spectrum) error) (Spectrum, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.current
	if err := fn(&next); err != nil {
		return st.current, err
	}
	if err := st.commit(&next); err != nil {
		return st.current, err
	}
	return next, nil
}

// Replace swaps in a complete settings value, as loaded from a config file.
func (st *Store) Replace(next Spectrum) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.commit(&next)
}

// Restructure delivers a request whenever the column count exponent or the
// column width changes. Pending requests coalesce; only the latest is kept.
func (st *Store) Restructure() <-chan Restructure {
	return st.restructure
}

func (st *Store) commit(next *Spectrum) error {
	next.Normalize()
	if err := next.Validate(st.capacity); err != nil {
		return err
	}

	prev := st.current
	st.current = *next

	if prev.ColumnCountPowerOfTwo != next.ColumnCountPowerOfTwo || prev.ColumnWidth != next.ColumnWidth {
		req := Restructure{ColumnCount: next.ColumnCount, ColumnWidth: next.ColumnWidth}
		select {
		case <-st.restructure:
		default:
		}
		select {
		case st.restructure <- req:
		default:
		}
	}
	return nil
}
