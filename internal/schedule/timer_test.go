// SPDX-License-Identifier: MIT
package schedule

import (
	"testing"
	"time"
)

func TestNewTimer(t *testing.T) {
	if _, err := NewTimer(0); err == nil {
		t.Error("NewTimer(0) succeeded")
	}
	if _, err := NewTimer(-time.Second); err == nil {
		t.Error("NewTimer(-1s) succeeded")
	}
	timer, err := NewTimer(DefaultPeriod)
	if err != nil {
		t.Fatalf("NewTimer() error = %v", err)
	}
	if timer.Period() != 32*time.Millisecond {
		t.Errorf("Period() = %v, want 32ms", timer.Period())
	}
}

func TestTimerTick(t *testing.T) {
	tests := []struct {
		name        string
		deltas      []time.Duration
		want        []bool
		wantElapsed time.Duration
	}{
		{
			name:        "Render Faster Than Tick",
			deltas:      []time.Duration{10, 10, 10, 10, 10, 10, 10},
			want:        []bool{false, false, false, true, false, false, true},
			wantElapsed: 6,
		},
		{
			name:        "Exact Period",
			deltas:      []time.Duration{32, 32},
			want:        []bool{true, true},
			wantElapsed: 0,
		},
		{
			name:        "Long Stall Fires Once",
			deltas:      []time.Duration{100, 1},
			want:        []bool{true, false},
			wantElapsed: 5,
		},
		{
			name:        "Negative Delta Ignored",
			deltas:      []time.Duration{-50, 31, 1},
			want:        []bool{false, false, true},
			wantElapsed: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer, _ := NewTimer(32)
			for i, d := range tt.deltas {
				got := timer.Tick(d)
				if got != tt.want[i] {
					t.Errorf("pass %d: Tick(%v) = %v, want %v", i, d, got, tt.want[i])
				}
				if timer.JustFinished() != got {
					t.Errorf("pass %d: JustFinished() = %v, Tick returned %v", i, timer.JustFinished(), got)
				}
			}
			if timer.Elapsed() != tt.wantElapsed {
				t.Errorf("Elapsed() = %v, want %v", timer.Elapsed(), tt.wantElapsed)
			}
		})
	}
}

func TestTimerFiredCount(t *testing.T) {
	timer, _ := NewTimer(DefaultPeriod)
	for range 1000 {
		timer.Tick(time.Second / 144)
	}
	// 1000 passes at 144 Hz is ~6.94s, ~217 periods of 32ms.
	if got := timer.Fired(); got < 215 || got > 217 {
		t.Errorf("Fired() = %d, want about 217", got)
	}

	timer.Reset()
	if timer.Elapsed() != 0 || timer.JustFinished() {
		t.Error("Reset() left state behind")
	}
}

func TestTimerTickAllocations(t *testing.T) {
	timer, _ := NewTimer(DefaultPeriod)
	allocs := testing.AllocsPerRun(100, func() {
		timer.Tick(time.Millisecond)
	})
	if allocs > 0 {
		t.Errorf("Tick() allocated memory: got %.1f allocs, want 0", allocs)
	}
}
