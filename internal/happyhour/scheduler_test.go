package happyhour

import (
	"errors"
	"testing"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(t *testing.T) (*Scheduler, storage.Store, *clock) {
	t.Helper()
	store, err := storage.NewCSV(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	c := &clock{t: time.Date(2025, time.March, 5, 18, 0, 0, 0, time.UTC)}
	return New(store, c.now), store, c
}

func lastEvent(t *testing.T, store storage.Store) string {
	t.Helper()
	entries, err := store.ReadHistory(1)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Event
}

func pilsner(t *testing.T, store storage.Store) models.Drink {
	t.Helper()
	d, err := store.ReadDrink(1)
	if err != nil {
		t.Fatalf("ReadDrink: %v", err)
	}
	return *d
}

func TestScheduler_StartRejectsNonPositiveDuration(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	err := s.Start(pilsner(t, store), 0)
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestScheduler_StartActivatesDiscount(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	d := pilsner(t, store)

	if err := s.Start(d, time.Hour); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsActive(d.ID) {
		t.Error("window should be active")
	}
	if got := s.DisplayPrice(d); got != d.MinPrice {
		t.Errorf("display price %v, want floor %v", got, d.MinPrice)
	}
	if got := lastEvent(t, store); got != "happy_hour_start_3600" {
		t.Errorf("got event %q, want happy_hour_start_3600", got)
	}
}

func TestScheduler_LazyExpiry(t *testing.T) {
	s, store, c := newTestScheduler(t)
	d := pilsner(t, store)

	if err := s.Start(d, time.Minute); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.advance(61 * time.Second)

	if s.IsActive(d.ID) {
		t.Error("window should have expired")
	}
	if got := lastEvent(t, store); got != "happy_hour_expired" {
		t.Errorf("got event %q, want happy_hour_expired", got)
	}
	if got := s.DisplayPrice(d); got != d.Price {
		t.Errorf("display price %v, want stored price %v", got, d.Price)
	}
}

func TestScheduler_ExpiryOutlivesDrinkDeletion(t *testing.T) {
	s, store, c := newTestScheduler(t)
	d := pilsner(t, store)

	if err := s.Start(d, time.Minute); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := store.DeleteDrink(d.ID); err != nil {
		t.Fatalf("DeleteDrink: %v", err)
	}
	c.advance(2 * time.Minute)

	// Expiry logs with the name captured at start time.
	if s.IsActive(d.ID) {
		t.Error("window should have expired")
	}
	entries, err := store.ReadHistory(1)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(entries) != 1 || entries[0].Event != "happy_hour_expired" || entries[0].Name != d.Name {
		t.Errorf("unexpected expiry entry: %+v", entries)
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	d := pilsner(t, store)

	if err := s.Start(d, time.Hour); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(d.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := lastEvent(t, store); got != "happy_hour_stop" {
		t.Errorf("got event %q, want happy_hour_stop", got)
	}

	before, _ := store.ReadHistory(0)
	if err := s.Stop(d.ID); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	after, _ := store.ReadHistory(0)
	if len(after) != len(before) {
		t.Error("second stop must not log a new entry")
	}
}

func TestScheduler_StopAll(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	d1 := pilsner(t, store)
	d2, err := store.ReadDrink(2)
	if err != nil {
		t.Fatalf("ReadDrink: %v", err)
	}

	if err := s.Start(d1, time.Hour); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(*d2, time.Hour); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if len(s.ListActive()) != 0 {
		t.Error("windows still active after StopAll")
	}
}

func TestScheduler_StartReplacesWindow(t *testing.T) {
	s, store, c := newTestScheduler(t)
	d := pilsner(t, store)

	if err := s.Start(d, time.Minute); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(d, time.Hour); err != nil {
		t.Fatalf("restart: %v", err)
	}
	c.advance(2 * time.Minute)
	if !s.IsActive(d.ID) {
		t.Error("replacement window should still be active")
	}
}

func TestScheduler_SnapshotRestore(t *testing.T) {
	s, store, c := newTestScheduler(t)
	d := pilsner(t, store)

	if err := s.Start(d, time.Hour); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := s.Snapshot()

	restored := New(store, c.now)
	restored.Restore(snap)
	if !restored.IsActive(d.ID) {
		t.Error("restored scheduler lost the window")
	}
}
