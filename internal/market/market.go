// Package market is the transaction core: it drives the pricing engine
// against the catalog, spreads correlation cascades, applies forced
// crash/boom/reset events, and feeds the session ledger. All mutations
// are serialized through one mutex so concurrent purchases observe a
// consistent price series.
package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/engine"
	"github.com/Skyxo/cours-de-la-biere/internal/happyhour"
	"github.com/Skyxo/cours-de-la-biere/internal/logger"
	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/session"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
)

// Market coordinates the pricing pipeline over a Store.
type Market struct {
	mu      sync.Mutex
	store   storage.Store
	eng     *engine.Engine
	happy   *happyhour.Scheduler
	ledger  *session.Ledger
	cascade CascadeStrategy

	correlationEnabled bool
	now                func() time.Time
}

// New wires the market core. A nil cascade disables cross-drink spread;
// a nil ledger disables sale recording; a nil now defaults to time.Now.
// correlationEnabled controls the in-pipeline correlation term,
// independent of the cascade strategy.
func New(store storage.Store, eng *engine.Engine, happy *happyhour.Scheduler, ledger *session.Ledger, cascade CascadeStrategy, correlationEnabled bool, now func() time.Time) *Market {
	if now == nil {
		now = time.Now
	}
	return &Market{
		store:              store,
		eng:                eng,
		happy:              happy,
		ledger:             ledger,
		cascade:            cascade,
		correlationEnabled: correlationEnabled,
		now:                now,
	}
}

// PriceView is one catalog row as shown to customers: the display price
// with the happy-hour override and 0.10 rounding applied.
type PriceView struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	BasePrice     float64 `json:"base_price"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	AlcoholDegree float64 `json:"alcohol_degree,omitempty"`
	HappyHour     bool    `json:"happy_hour"`
}

// Prices returns the customer-facing price board.
func (m *Market) Prices() ([]PriceView, error) {
	drinks, err := m.store.ReadAllDrinks()
	if err != nil {
		return nil, err
	}
	views := make([]PriceView, 0, len(drinks))
	for _, d := range drinks {
		views = append(views, PriceView{
			ID:            d.ID,
			Name:          d.Name,
			Category:      d.Category,
			Price:         m.DisplayPrice(d),
			BasePrice:     d.BasePrice,
			MinPrice:      d.MinPrice,
			MaxPrice:      d.MaxPrice,
			AlcoholDegree: d.AlcoholDegree,
			HappyHour:     m.happy.IsActive(d.ID),
		})
	}
	return views, nil
}

// DisplayPrice is the price shown for d right now: the floor during an
// active happy hour, the 0.10-rounded stored price otherwise.
func (m *Market) DisplayPrice(d models.Drink) float64 {
	if m.happy.IsActive(d.ID) {
		return d.MinPrice
	}
	return models.RoundDisplay(d.Price)
}

// ApplyPurchase runs the full pricing pipeline for a purchase of
// quantity units: engine delta, bound clamp, history append, cascade to
// the other drinks, and a ledger sale at the price the customer saw.
// Returns the drink with its post-purchase price.
func (m *Market) ApplyPurchase(drinkID int64, quantity int) (*models.Drink, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", models.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.store.ReadDrink(drinkID)
	if err != nil {
		return nil, err
	}
	all, err := m.store.ReadAllDrinks()
	if err != nil {
		return nil, err
	}

	// The customer pays the board price at order time, before the
	// purchase itself moves the market.
	chargedUnit := m.DisplayPrice(*d)

	delta, label := m.eng.PriceChange(*d, quantity, all, m.correlationEnabled)
	newPrice := models.RoundStored(d.ClampPrice(d.Price + delta))
	change := models.RoundStored(newPrice - d.Price)

	if err := m.store.WriteDrinkPrice(d.ID, newPrice); err != nil {
		return nil, err
	}
	m.eng.Context().RecordChange(d.ID, change)
	if err := m.store.AppendHistory(&models.HistoryEntry{
		DrinkID:   d.ID,
		Name:      d.Name,
		Price:     newPrice,
		Quantity:  quantity,
		Change:    change,
		Event:     label,
		Timestamp: m.now(),
	}); err != nil {
		return nil, err
	}

	if m.cascade != nil {
		m.cascade.Apply(m, d.ID, quantity)
	}

	if m.ledger != nil && m.ledger.Active() != nil {
		sale := models.SessionSale{
			DrinkID:    d.ID,
			Name:       d.Name,
			Quantity:   quantity,
			UnitPrice:  chargedUnit,
			BasePrice:  d.BasePrice,
			Total:      models.RoundStored(chargedUnit * float64(quantity)),
			ProfitLoss: models.RoundStored((chargedUnit - d.BasePrice) * float64(quantity)),
		}
		if err := m.ledger.RecordSale(sale); err != nil {
			logger.Warn("Failed to record sale of %s in session: %v", d.Name, err)
		}
	}

	updated := *d
	updated.Price = newPrice
	return &updated, nil
}

// Status reports the current market state.
func (m *Market) Status() models.MarketStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eng.Status()
}

// Drinks returns the raw catalog.
func (m *Market) Drinks() ([]models.Drink, error) {
	return m.store.ReadAllDrinks()
}

// Drink returns one catalog entry.
func (m *Market) Drink(id int64) (*models.Drink, error) {
	return m.store.ReadDrink(id)
}

// CreateDrink adds a drink to the catalog.
func (m *Market) CreateDrink(d *models.Drink) (*models.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.CreateDrink(d)
}

// UpdateDrink applies an administrative field update.
func (m *Market) UpdateDrink(id int64, upd storage.DrinkUpdate) (*models.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.UpdateDrinkFields(id, upd)
}

// DeleteDrink removes a drink, its correlation tracking and any active
// happy-hour window.
func (m *Market) DeleteDrink(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.DeleteDrink(id); err != nil {
		return err
	}
	m.eng.Context().ForgetDrink(id)
	return m.happy.Stop(id)
}

// History returns up to limit entries, most recent last. limit <= 0
// returns everything.
func (m *Market) History(limit int) ([]models.HistoryEntry, error) {
	return m.store.ReadHistory(limit)
}

// UpdateHistoryEntry edits quantity and/or event of one history entry.
func (m *Market) UpdateHistoryEntry(id int64, quantity *int, event *string) (*models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.UpdateHistoryEntry(id, quantity, event)
}

// ClearHistory wipes the whole price history.
func (m *Market) ClearHistory() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ClearHistory()
}
