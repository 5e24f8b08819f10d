package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// testStores builds one store per backend so every test runs against
// both CSV and SQLite.
func testStores(t *testing.T) map[string]Store {
	t.Helper()
	csvStore, err := NewCSV(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create CSV store: %v", err)
	}
	sqliteStore, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to create SQLite store: %v", err)
	}
	stores := map[string]Store{"csv": csvStore, "sqlite": sqliteStore}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func testEntry(drinkID int64, event string) *models.HistoryEntry {
	return &models.HistoryEntry{
		DrinkID:   drinkID,
		Name:      "Pilsner",
		Price:     5.1,
		Quantity:  2,
		Change:    0.1,
		Event:     event,
		Timestamp: time.Now(),
	}
}

func TestStore_SeedsDefaultCatalog(t *testing.T) {
	for name, s := range testStores(t) {
		drinks, err := s.ReadAllDrinks()
		if err != nil {
			t.Fatalf("%s: ReadAllDrinks: %v", name, err)
		}
		if len(drinks) != 5 {
			t.Fatalf("%s: expected 5 seeded drinks, got %d", name, len(drinks))
		}
		if drinks[0].Name != "Pilsner" || drinks[0].Price != 5.0 {
			t.Errorf("%s: unexpected first drink: %+v", name, drinks[0])
		}
	}
}

func TestStore_ReadDrink_NotFound(t *testing.T) {
	for name, s := range testStores(t) {
		_, err := s.ReadDrink(999)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestStore_WriteDrinkPrice(t *testing.T) {
	for name, s := range testStores(t) {
		if err := s.WriteDrinkPrice(1, 5.1234); err != nil {
			t.Fatalf("%s: WriteDrinkPrice: %v", name, err)
		}
		d, err := s.ReadDrink(1)
		if err != nil {
			t.Fatalf("%s: ReadDrink: %v", name, err)
		}
		if d.Price != 5.1234 {
			t.Errorf("%s: got price %v, want 5.1234", name, d.Price)
		}
		if d.BasePrice != 5.0 {
			t.Errorf("%s: base price changed to %v", name, d.BasePrice)
		}
		if err := s.WriteDrinkPrice(999, 1.0); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound for missing drink, got %v", name, err)
		}
	}
}

func TestStore_CreateDrink(t *testing.T) {
	for name, s := range testStores(t) {
		created, err := s.CreateDrink(&models.Drink{
			Name:      "Stout",
			Category:  models.CategoryBeer,
			BasePrice: 7.0,
			MinPrice:  4.0,
			MaxPrice:  14.0,
		})
		if err != nil {
			t.Fatalf("%s: CreateDrink: %v", name, err)
		}
		if created.ID != 6 {
			t.Errorf("%s: got id %d, want 6", name, created.ID)
		}
		if created.Price != 7.0 {
			t.Errorf("%s: initial price %v, want base price 7.0", name, created.Price)
		}

		_, err = s.CreateDrink(&models.Drink{Name: "", BasePrice: 1, MinPrice: 1, MaxPrice: 2})
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("%s: expected ErrValidation for empty name, got %v", name, err)
		}
	}
}

func TestStore_UpdateDrinkFields(t *testing.T) {
	newName := "Lager"
	badMin := 100.0
	for name, s := range testStores(t) {
		d, err := s.UpdateDrinkFields(1, DrinkUpdate{Name: &newName})
		if err != nil {
			t.Fatalf("%s: UpdateDrinkFields: %v", name, err)
		}
		if d.Name != "Lager" {
			t.Errorf("%s: got name %q, want Lager", name, d.Name)
		}
		if d.Price != 5.0 {
			t.Errorf("%s: price changed to %v", name, d.Price)
		}

		if _, err := s.UpdateDrinkFields(1, DrinkUpdate{MinPrice: &badMin}); !errors.Is(err, models.ErrValidation) {
			t.Errorf("%s: expected ErrValidation for min above max, got %v", name, err)
		}
		if _, err := s.UpdateDrinkFields(999, DrinkUpdate{Name: &newName}); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestStore_DeleteDrink(t *testing.T) {
	for name, s := range testStores(t) {
		if err := s.DeleteDrink(2); err != nil {
			t.Fatalf("%s: DeleteDrink: %v", name, err)
		}
		if _, err := s.ReadDrink(2); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%s: drink 2 still readable: %v", name, err)
		}
		if err := s.DeleteDrink(2); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound on second delete, got %v", name, err)
		}
	}
}

func TestStore_AppendAndReadHistory(t *testing.T) {
	for name, s := range testStores(t) {
		first := testEntry(1, "buy")
		first.Timestamp = time.Time{}
		if err := s.AppendHistory(first); err != nil {
			t.Fatalf("%s: AppendHistory: %v", name, err)
		}
		if first.ID == 0 {
			t.Errorf("%s: entry id not assigned", name)
		}
		if first.Timestamp.IsZero() {
			t.Errorf("%s: entry timestamp not assigned", name)
		}
		if err := s.AppendHistory(testEntry(1, "correlation")); err != nil {
			t.Fatalf("%s: AppendHistory: %v", name, err)
		}

		all, err := s.ReadHistory(0)
		if err != nil {
			t.Fatalf("%s: ReadHistory: %v", name, err)
		}
		if len(all) != 2 {
			t.Fatalf("%s: got %d entries, want 2", name, len(all))
		}
		if all[0].Event != "buy" || all[1].Event != "correlation" {
			t.Errorf("%s: wrong order: %s, %s", name, all[0].Event, all[1].Event)
		}

		limited, err := s.ReadHistory(1)
		if err != nil {
			t.Fatalf("%s: ReadHistory(1): %v", name, err)
		}
		if len(limited) != 1 || limited[0].Event != "correlation" {
			t.Errorf("%s: limit should keep the most recent entry, got %+v", name, limited)
		}
	}
}

func TestStore_AppendHistory_Invalid(t *testing.T) {
	for name, s := range testStores(t) {
		err := s.AppendHistory(&models.HistoryEntry{DrinkID: 0, Event: "buy"})
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestStore_UpdateHistoryEntry(t *testing.T) {
	quantity := 7
	event := "manual_update"
	for name, s := range testStores(t) {
		e := testEntry(1, "buy")
		if err := s.AppendHistory(e); err != nil {
			t.Fatalf("%s: AppendHistory: %v", name, err)
		}

		updated, err := s.UpdateHistoryEntry(e.ID, &quantity, &event)
		if err != nil {
			t.Fatalf("%s: UpdateHistoryEntry: %v", name, err)
		}
		if updated.Quantity != 7 || updated.Event != "manual_update" {
			t.Errorf("%s: got %+v", name, updated)
		}
		if updated.Price != e.Price || updated.Change != e.Change {
			t.Errorf("%s: price fields must not change: %+v", name, updated)
		}

		got, err := s.GetHistoryEntry(e.ID)
		if err != nil {
			t.Fatalf("%s: GetHistoryEntry: %v", name, err)
		}
		if got.Quantity != 7 {
			t.Errorf("%s: update not persisted: %+v", name, got)
		}

		if _, err := s.UpdateHistoryEntry(12345, &quantity, nil); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestStore_DeleteAndClearHistory(t *testing.T) {
	for name, s := range testStores(t) {
		e := testEntry(1, "buy")
		if err := s.AppendHistory(e); err != nil {
			t.Fatalf("%s: AppendHistory: %v", name, err)
		}
		if err := s.AppendHistory(testEntry(2, "buy")); err != nil {
			t.Fatalf("%s: AppendHistory: %v", name, err)
		}

		if err := s.DeleteHistoryEntry(e.ID); err != nil {
			t.Fatalf("%s: DeleteHistoryEntry: %v", name, err)
		}
		if err := s.DeleteHistoryEntry(e.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound on second delete, got %v", name, err)
		}

		if err := s.ClearHistory(); err != nil {
			t.Fatalf("%s: ClearHistory: %v", name, err)
		}
		all, err := s.ReadHistory(0)
		if err != nil {
			t.Fatalf("%s: ReadHistory: %v", name, err)
		}
		if len(all) != 0 {
			t.Errorf("%s: history not cleared: %d entries", name, len(all))
		}
	}
}
