package models

import (
	"errors"
	"testing"
)

func validDrink() Drink {
	return Drink{
		ID:        1,
		Name:      "Pilsner",
		Category:  CategoryBeer,
		Price:     5.0,
		BasePrice: 5.0,
		MinPrice:  3.0,
		MaxPrice:  10.0,
	}
}

func TestDrinkValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Drink)
		wantErr bool
	}{
		{"valid", func(d *Drink) {}, false},
		{"empty name", func(d *Drink) { d.Name = "" }, true},
		{"zero base price", func(d *Drink) { d.BasePrice = 0 }, true},
		{"min above max", func(d *Drink) { d.MinPrice = 11 }, true},
		{"base outside bounds", func(d *Drink) { d.BasePrice = 2 }, true},
		{"price outside bounds", func(d *Drink) { d.Price = 12 }, true},
		{"alcohol degree over 100", func(d *Drink) { d.AlcoholDegree = 120 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDrink()
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestClampPrice(t *testing.T) {
	d := validDrink()
	if got := d.ClampPrice(2.0); got != 3.0 {
		t.Errorf("got %v, want floor 3.0", got)
	}
	if got := d.ClampPrice(15.0); got != 10.0 {
		t.Errorf("got %v, want ceiling 10.0", got)
	}
	if got := d.ClampPrice(5.5); got != 5.5 {
		t.Errorf("got %v, want 5.5 untouched", got)
	}
}

func TestRounding(t *testing.T) {
	if got := RoundStored(5.12345678); got != 5.1235 {
		t.Errorf("RoundStored: got %v, want 5.1235", got)
	}
	if got := RoundDisplay(5.15); got != 5.2 {
		t.Errorf("RoundDisplay: got %v, want 5.2", got)
	}
	if got := RoundDisplay(5.1499); got != 5.1 {
		t.Errorf("RoundDisplay: got %v, want 5.1", got)
	}
}

func TestSessionTotals(t *testing.T) {
	s := Session{Sales: []SessionSale{
		{Quantity: 2, Total: 11.0, ProfitLoss: 1.0},
		{Quantity: 1, Total: 8.0, ProfitLoss: -1.0},
	}}
	quantity, revenue, profit := s.Totals()
	if quantity != 3 || revenue != 19.0 || profit != 0.0 {
		t.Errorf("got %d, %v, %v", quantity, revenue, profit)
	}
}

func TestHistoryEntryValidate(t *testing.T) {
	e := HistoryEntry{DrinkID: 1, Event: "buy"}
	if err := e.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	e.Event = ""
	if err := e.Validate(); err == nil {
		t.Error("expected error for empty event")
	}
	e = HistoryEntry{DrinkID: 1, Event: "buy", Quantity: -1}
	if err := e.Validate(); err == nil {
		t.Error("expected error for negative quantity")
	}
}
