// SPDX-License-Identifier: MIT

// Package schedule gates the audio-reactive updates to a fixed tick rate,
// independent of how often the render loop spins.
package schedule

import (
	"fmt"
	"time"
)

// DefaultPeriod is the interval between analysis ticks.
const DefaultPeriod = 32 * time.Millisecond

// Timer is a repeating interval timer. Each pass feeds it the elapsed wall
// time; it reports "just finished" at most once per pass, however much time
// accumulated. Not safe for concurrent use.
type Timer struct {
	period   time.Duration
	elapsed  time.Duration
	finished bool
	fired    uint64
}

// NewTimer creates a timer with the given period.
func NewTimer(period time.Duration) (*Timer, error) {
	if period <= 0 {
		return nil, fmt.Errorf("timer period must be positive, got %v", period)
	}
	return &Timer{period: period}, nil
}

// Tick advances the timer by delta and returns whether it fired during this
// pass. The remainder carries into the next period.
func (t *Timer) Tick(delta time.Duration) bool {
	if delta < 0 {
		delta = 0
	}
	t.elapsed += delta
	t.finished = t.elapsed >= t.period
	if t.finished {
		t.elapsed %= t.period
		t.fired++
	}
	return t.finished
}

// JustFinished reports the result of the last Tick.
func (t *Timer) JustFinished() bool { return t.finished }

// Period returns the timer's interval.
func (t *Timer) Period() time.Duration { return t.period }

// Elapsed returns the time accumulated toward the next firing.
func (t *Timer) Elapsed() time.Duration { return t.elapsed }

// Fired returns how many passes have fired so far.
func (t *Timer) Fired() uint64 { return t.fired }

// Reset clears the accumulated time.
func (t *Timer) Reset() {
	t.elapsed = 0
	t.finished = false
}
