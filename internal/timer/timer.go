// Package timer derives an exam's remaining time from a fixed start instant
// and duration. Remaining time is recomputed on demand, never counted down,
// so suspension, throttled callers and restarts cannot make it drift.
package timer

import (
	"fmt"
	"time"

	"github.com/stemsi/exstem-portal/internal/model"
)

// LowTimeThreshold is the remaining time under which an exam is "running low".
const LowTimeThreshold = 5 * time.Minute

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Reading is the outcome of one recomputation.
type Reading struct {
	Remaining int64 // seconds
	Expired   bool
	// Skewed is set when the clock reads earlier than the start instant.
	// Elapsed time is clamped to zero in that case.
	Skewed bool
}

// Timer holds the clock state of one exam attempt. It is not safe for
// concurrent use; the owning session serializes access.
type Timer struct {
	clock     Clock
	state     *model.ClockState
	remaining int64
}

// New creates a stopped Timer.
func New(clock Clock) *Timer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Timer{clock: clock}
}

// Started reports whether the clock fields are set.
func (t *Timer) Started() bool {
	return t.state != nil
}

// Start records the start instant and duration. It returns false and leaves
// the clock untouched if the timer was already started.
func (t *Timer) Start(durationMinutes int) bool {
	if t.state != nil {
		return false
	}
	if durationMinutes < 0 {
		durationMinutes = 0
	}
	dur := int64(durationMinutes) * 60
	t.state = &model.ClockState{
		StartedAt:       t.clock.Now(),
		DurationSeconds: dur,
	}
	t.remaining = dur
	return true
}

// Recompute derives the remaining time from the current clock. The second
// return value is false when the timer was never started.
func (t *Timer) Recompute() (Reading, bool) {
	if t.state == nil {
		return Reading{}, false
	}

	r := compute(*t.state, t.clock.Now())
	// Never hand back more time than a previous reading did.
	if r.Remaining > t.remaining {
		r.Remaining = t.remaining
		r.Expired = r.Remaining == 0
	}
	t.remaining = r.Remaining
	return r, true
}

// Restore rehydrates the timer from a persisted clock and recomputes.
func (t *Timer) Restore(state model.ClockState) Reading {
	t.state = &state
	t.remaining = state.DurationSeconds
	r, _ := t.Recompute()
	return r
}

// State returns a copy of the clock fields.
func (t *Timer) State() (model.ClockState, bool) {
	if t.state == nil {
		return model.ClockState{}, false
	}
	return *t.state, true
}

// Remaining returns the result of the last recomputation in seconds.
func (t *Timer) Remaining() int64 {
	return t.remaining
}

// Clear drops the clock state.
func (t *Timer) Clear() {
	t.state = nil
	t.remaining = 0
}

func compute(state model.ClockState, now time.Time) Reading {
	var r Reading

	elapsed := now.Sub(state.StartedAt)
	if elapsed < 0 {
		elapsed = 0
		r.Skewed = true
	}

	remaining := state.DurationSeconds - int64(elapsed/time.Second)
	if remaining < 0 {
		remaining = 0
	}
	r.Remaining = remaining
	r.Expired = remaining == 0
	return r
}

// Format renders seconds as H:MM:SS, or M:SS under an hour.
func Format(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// RunningLow reports whether seconds is under LowTimeThreshold.
func RunningLow(seconds int64) bool {
	return seconds < int64(LowTimeThreshold/time.Second)
}
