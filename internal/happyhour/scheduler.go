// Package happyhour schedules per-drink discount windows. A window
// forces the displayed price to the drink's floor without touching the
// authoritative price series. Expiry is lazy: windows are reaped on
// read, never by a background timer.
package happyhour

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/logger"
	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
)

// Window is one active discount. Name and StartPrice are captured at
// start time so expiry can be logged even after the drink is deleted
// from the catalog.
type Window struct {
	DrinkID    int64         `json:"drink_id"`
	Name       string        `json:"name"`
	StartPrice float64       `json:"start_price"`
	Start      time.Time     `json:"start"`
	Duration   time.Duration `json:"duration"`
}

// Expired reports whether the window's elapsed time reached its duration.
func (w Window) Expired(now time.Time) bool {
	return now.Sub(w.Start) >= w.Duration
}

// Scheduler tracks at most one window per drink.
type Scheduler struct {
	mu      sync.Mutex
	store   storage.Store
	now     func() time.Time
	windows map[int64]Window
}

// New creates a scheduler. A nil now defaults to time.Now.
func New(store storage.Store, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:   store,
		now:     now,
		windows: make(map[int64]Window),
	}
}

// Start opens a discount window for d, replacing any existing one. The
// start entry is logged at the current non-discounted price.
func (s *Scheduler) Start(d models.Drink, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: happy hour duration must be positive", models.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expireLocked(now)

	s.windows[d.ID] = Window{
		DrinkID:    d.ID,
		Name:       d.Name,
		StartPrice: d.Price,
		Start:      now,
		Duration:   duration,
	}
	return s.store.AppendHistory(&models.HistoryEntry{
		DrinkID:   d.ID,
		Name:      d.Name,
		Price:     d.Price,
		Event:     fmt.Sprintf("happy_hour_start_%d", int(duration.Seconds())),
		Timestamp: now,
	})
}

// Stop closes the drink's window if one is active; a no-op otherwise.
func (s *Scheduler) Stop(drinkID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expireLocked(now)

	w, ok := s.windows[drinkID]
	if !ok {
		return nil
	}
	delete(s.windows, drinkID)
	return s.store.AppendHistory(&models.HistoryEntry{
		DrinkID:   w.DrinkID,
		Name:      w.Name,
		Price:     w.StartPrice,
		Event:     "happy_hour_stop",
		Timestamp: now,
	})
}

// StopAll closes every active window.
func (s *Scheduler) StopAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expireLocked(now)

	for id, w := range s.windows {
		delete(s.windows, id)
		if err := s.store.AppendHistory(&models.HistoryEntry{
			DrinkID:   w.DrinkID,
			Name:      w.Name,
			Price:     w.StartPrice,
			Event:     "happy_hour_stop_all",
			Timestamp: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// IsActive reports whether the drink currently has a discount window,
// reaping expired windows first.
func (s *Scheduler) IsActive(drinkID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(s.now())
	_, ok := s.windows[drinkID]
	return ok
}

// ListActive returns the active windows ordered by drink id.
func (s *Scheduler) ListActive() []Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(s.now())

	active := make([]Window, 0, len(s.windows))
	for _, w := range s.windows {
		active = append(active, w)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].DrinkID < active[j].DrinkID })
	return active
}

// DisplayPrice returns the price to show for d: the floor while a window
// is active, the stored price otherwise. Display rounding is left to the
// presentation layer.
func (s *Scheduler) DisplayPrice(d models.Drink) float64 {
	if s.IsActive(d.ID) {
		return d.MinPrice
	}
	return d.Price
}

// expireLocked reaps every expired window, logging its expiry with the
// name captured at start time. Never looks the drink up by id: the
// catalog entry may be gone.
func (s *Scheduler) expireLocked(now time.Time) {
	for id, w := range s.windows {
		if !w.Expired(now) {
			continue
		}
		if err := s.store.AppendHistory(&models.HistoryEntry{
			DrinkID:   w.DrinkID,
			Name:      w.Name,
			Price:     w.StartPrice,
			Event:     "happy_hour_expired",
			Timestamp: now,
		}); err != nil {
			logger.Warn("Failed to log happy hour expiry for %s: %v", w.Name, err)
		}
		delete(s.windows, id)
	}
}

// Snapshot captures the active windows for persistence.
func (s *Scheduler) Snapshot() []Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	windows := make([]Window, 0, len(s.windows))
	for _, w := range s.windows {
		windows = append(windows, w)
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].DrinkID < windows[j].DrinkID })
	return windows
}

// Restore rehydrates the windows from a persisted snapshot.
func (s *Scheduler) Restore(windows []Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[int64]Window, len(windows))
	for _, w := range windows {
		s.windows[w.DrinkID] = w
	}
}
