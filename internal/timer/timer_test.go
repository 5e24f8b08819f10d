package timer

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
)

var t0 = time.Date(2025, time.March, 5, 18, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTimer(t *testing.T, interval time.Duration) (*Timer, *clock, *storage.StateFile) {
	t.Helper()
	state := storage.NewStateFile(filepath.Join(t.TempDir(), "timer.json"))
	c := &clock{t: t0}
	tmr, err := New(state, interval, c.now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tmr, c, state
}

func TestTimer_DisabledReportsZero(t *testing.T) {
	tmr, c, _ := newTestTimer(t, 0)
	if got := tmr.RemainingMs(c.now()); got != 0 {
		t.Errorf("got %d, want 0 for disabled timer", got)
	}
}

func TestTimer_RemainingIsModular(t *testing.T) {
	tmr, c, _ := newTestTimer(t, time.Minute)

	if got := tmr.RemainingMs(c.now()); got != 60000 {
		t.Errorf("at anchor: got %d, want 60000", got)
	}
	c.advance(10 * time.Second)
	if got := tmr.RemainingMs(c.now()); got != 50000 {
		t.Errorf("after 10s: got %d, want 50000", got)
	}
	// Two full cycles plus 15 seconds in.
	c.advance(2*time.Minute + 5*time.Second)
	if got := tmr.RemainingMs(c.now()); got != 45000 {
		t.Errorf("after wrap: got %d, want 45000", got)
	}
}

func TestTimer_SetIntervalRestartsCountdown(t *testing.T) {
	tmr, c, _ := newTestTimer(t, time.Minute)
	c.advance(30 * time.Second)

	if err := tmr.SetInterval(20 * time.Second); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	if got := tmr.RemainingMs(c.now()); got != 20000 {
		t.Errorf("got %d, want 20000 right after SetInterval", got)
	}
	if err := tmr.SetInterval(-time.Second); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected ErrValidation for negative interval, got %v", err)
	}
}

func TestTimer_ForceRefresh(t *testing.T) {
	tmr, c, _ := newTestTimer(t, time.Minute)
	c.advance(45 * time.Second)

	if err := tmr.ForceRefresh(); err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if got := tmr.RemainingMs(c.now()); got != 60000 {
		t.Errorf("got %d, want full interval after refresh", got)
	}
}

func TestTimer_PersistsAcrossRestart(t *testing.T) {
	tmr, c, state := newTestTimer(t, time.Minute)
	if err := tmr.SetInterval(30 * time.Second); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}

	reloaded, err := New(state, 5*time.Minute, c.now)
	if err != nil {
		t.Fatalf("New after restart: %v", err)
	}
	if reloaded.Interval() != 30*time.Second {
		t.Errorf("got interval %v, want persisted 30s", reloaded.Interval())
	}
	if !reloaded.Anchor().Equal(tmr.Anchor()) {
		t.Errorf("anchor drifted across restart: %v vs %v", reloaded.Anchor(), tmr.Anchor())
	}
}
