// Package timer keeps the shared market refresh countdown: a persisted
// anchor plus an interval from which every client derives the same
// remaining time.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
)

type snapshot struct {
	Anchor     time.Time `json:"anchor"`
	IntervalMs int64     `json:"interval_ms"`
}

// Timer derives the countdown arithmetically from the anchor; it never
// ticks on its own. Anchor and interval survive restarts through the
// state file.
type Timer struct {
	mu       sync.Mutex
	anchor   time.Time
	interval time.Duration
	state    *storage.StateFile
	now      func() time.Time
}

// New loads the persisted timer or initializes one with defaultInterval.
// A nil now defaults to time.Now.
func New(state *storage.StateFile, defaultInterval time.Duration, now func() time.Time) (*Timer, error) {
	if now == nil {
		now = time.Now
	}
	t := &Timer{state: state, now: now}

	var snap snapshot
	ok, err := state.Load(&snap)
	if err != nil {
		return nil, err
	}
	if ok {
		t.anchor = snap.Anchor
		t.interval = time.Duration(snap.IntervalMs) * time.Millisecond
		return t, nil
	}

	t.anchor = now()
	t.interval = defaultInterval
	if err := t.persistLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

// Interval returns the configured refresh interval.
func (t *Timer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Anchor returns the reference instant the countdown is derived from.
func (t *Timer) Anchor() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.anchor
}

// RemainingMs returns the milliseconds until the next refresh tick as
// seen at now. A zero interval means the timer is disabled and always
// reports 0.
func (t *Timer) RemainingMs(now time.Time) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.interval <= 0 {
		return 0
	}
	elapsed := now.Sub(t.anchor)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := t.interval - elapsed%t.interval
	return remaining.Milliseconds()
}

// Remaining is RemainingMs evaluated at the timer's own clock.
func (t *Timer) Remaining() int64 {
	return t.RemainingMs(t.now())
}

// SetInterval changes the refresh interval and restarts the countdown
// from now. The new state is persisted before returning.
func (t *Timer) SetInterval(interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("%w: timer interval must not be negative", models.ErrValidation)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = interval
	t.anchor = t.now()
	return t.persistLocked()
}

// ForceRefresh restarts the countdown from now without changing the
// interval.
func (t *Timer) ForceRefresh() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anchor = t.now()
	return t.persistLocked()
}

func (t *Timer) persistLocked() error {
	return t.state.Save(snapshot{
		Anchor:     t.anchor,
		IntervalMs: t.interval.Milliseconds(),
	})
}
