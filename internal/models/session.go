package models

import (
	"errors"
	"time"
)

// SessionSale is one line item in an open shift.
type SessionSale struct {
	ID         string    `json:"id"`
	DrinkID    int64     `json:"drink_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	BasePrice  float64   `json:"base_price"`
	Total      float64   `json:"total"`
	ProfitLoss float64   `json:"profit_loss"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate checks sale field constraints.
func (s *SessionSale) Validate() error {
	if s.DrinkID <= 0 {
		return errors.New("sale drink_id must be positive")
	}
	if s.Quantity < 0 {
		return errors.New("sale quantity must not be negative")
	}
	if s.UnitPrice < 0 {
		return errors.New("sale unit price must not be negative")
	}
	return nil
}

// Session is one bounded shift of sales. At most one session is active at
// a time; ending it is terminal.
type Session struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	StartedAt time.Time     `json:"started_at"`
	Active    bool          `json:"active"`
	Sales     []SessionSale `json:"sales"`
}

// SessionSummary holds the totals computed when a session ends.
type SessionSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	TotalQuantity int       `json:"total_quantity"`
	TotalRevenue  float64   `json:"total_revenue"`
	TotalProfit   float64   `json:"total_profit"`
	SaleCount     int       `json:"sale_count"`
	ExportPath    string    `json:"export_path"`
}

// Totals computes the running totals over the session's sales.
func (s *Session) Totals() (quantity int, revenue, profit float64) {
	for _, sale := range s.Sales {
		quantity += sale.Quantity
		revenue += sale.Total
		profit += sale.ProfitLoss
	}
	return quantity, revenue, profit
}
