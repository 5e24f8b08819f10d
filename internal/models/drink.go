// Package models defines the core domain entities: drinks, price history,
// sessions, and market status.
package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Drink categories used by the correlation matrix and event-effect tables.
const (
	CategoryBeer     = "beer"
	CategoryCocktail = "cocktail"
	CategorySoft     = "soft"
	CategoryShot     = "shot"
)

// Drink is a priced, bounded sellable item. Price is the authoritative
// unrounded-for-display value; the discounted or 0.10-rounded price shown
// to customers is derived and never written back.
type Drink struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	BasePrice     float64 `json:"base_price"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	AlcoholDegree float64 `json:"alcohol_degree,omitempty"`
}

// Validate checks drink field constraints.
func (d *Drink) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: drink name must not be empty", ErrValidation)
	}
	if d.MinPrice <= 0 || d.MaxPrice <= 0 || d.BasePrice <= 0 {
		return fmt.Errorf("%w: prices must be positive", ErrValidation)
	}
	if d.MinPrice > d.MaxPrice {
		return fmt.Errorf("%w: min_price must not exceed max_price", ErrValidation)
	}
	if d.BasePrice < d.MinPrice || d.BasePrice > d.MaxPrice {
		return fmt.Errorf("%w: base_price must be between min_price and max_price", ErrValidation)
	}
	if d.Price < d.MinPrice || d.Price > d.MaxPrice {
		return fmt.Errorf("%w: price must be between min_price and max_price", ErrValidation)
	}
	if d.AlcoholDegree < 0 || d.AlcoholDegree > 100 {
		return fmt.Errorf("%w: alcohol_degree must be between 0 and 100", ErrValidation)
	}
	return nil
}

// ClampPrice forces p into the drink's [MinPrice, MaxPrice] bounds.
func (d *Drink) ClampPrice(p float64) float64 {
	return math.Max(d.MinPrice, math.Min(d.MaxPrice, p))
}

// RoundStored rounds a price to the 4-decimal storage precision.
func RoundStored(p float64) float64 {
	return math.Round(p*10000) / 10000
}

// RoundDisplay rounds a price to the nearest 0.10 for end users. Never
// applied to the stored price.
func RoundDisplay(p float64) float64 {
	return math.Round(p*10) / 10
}

// HistoryEntry is one immutable price-affecting event. Quantity is 0 for
// non-purchase events.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	DrinkID   int64     `json:"drink_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Change    float64   `json:"change"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks history entry field constraints.
func (h *HistoryEntry) Validate() error {
	if h.DrinkID <= 0 {
		return errors.New("history entry drink_id must be positive")
	}
	if h.Quantity < 0 {
		return errors.New("history entry quantity must not be negative")
	}
	if h.Event == "" {
		return errors.New("history entry event must not be empty")
	}
	return nil
}

// MarketStatus is a read-only snapshot of the shared market context.
type MarketStatus struct {
	Trend           string    `json:"trend"`
	TrendStrength   float64   `json:"trend_strength"`
	Volatility      float64   `json:"volatility"`
	CurrentEvent    string    `json:"current_event"`
	CrashRecovery   bool      `json:"crash_recovery"`
	LastTrendChange time.Time `json:"last_trend_change"`
}
