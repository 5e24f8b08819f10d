package market

import (
	"fmt"
	"math"

	"github.com/Skyxo/cours-de-la-biere/internal/logger"
	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// cascadeThreshold suppresses noise-level correlation moves so the
// history is not flooded with sub-millicent entries.
const cascadeThreshold = 0.001

// CascadeStrategy spreads the side effects of a purchase to the other
// drinks. Apply is called with the market mutex held; failures on a
// single drink are logged and skipped, never aborting the purchase.
type CascadeStrategy interface {
	Name() string
	Apply(m *Market, boughtID int64, quantity int)
}

// NewCascade maps a configured strategy name to an implementation;
// "none" returns nil.
func NewCascade(name string) (CascadeStrategy, error) {
	switch name {
	case "correlation":
		return &CorrelationCascade{}, nil
	case "balance":
		return &BalanceCascade{}, nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unknown cascade strategy %q", models.ErrValidation, name)
}

// CorrelationCascade moves each other drink by the correlation matrix
// applied to the recent price changes, the same effect the engine uses
// inside a purchase.
type CorrelationCascade struct{}

func (*CorrelationCascade) Name() string { return "correlation" }

func (*CorrelationCascade) Apply(m *Market, boughtID int64, quantity int) {
	snapshot, err := m.store.ReadAllDrinks()
	if err != nil {
		logger.Warn("Cascade aborted, cannot read catalog: %v", err)
		return
	}
	for _, d := range snapshot {
		if d.ID == boughtID {
			continue
		}
		effect := m.eng.CorrelationEffect(d, snapshot)
		if math.Abs(effect) <= cascadeThreshold {
			continue
		}
		applyCascadeMove(m, d.ID, effect, "correlation")
	}
}

// BalanceCascade nudges every other drink down by a flat 5 cents per
// unit bought, a zero-sum counterweight to the purchased drink's rise.
type BalanceCascade struct{}

func (*BalanceCascade) Name() string { return "balance" }

func (*BalanceCascade) Apply(m *Market, boughtID int64, quantity int) {
	snapshot, err := m.store.ReadAllDrinks()
	if err != nil {
		logger.Warn("Cascade aborted, cannot read catalog: %v", err)
		return
	}
	delta := -0.05 * float64(quantity)
	for _, d := range snapshot {
		if d.ID == boughtID {
			continue
		}
		applyCascadeMove(m, d.ID, delta, "balance")
	}
}

// applyCascadeMove re-reads the drink so the move lands on its current
// price, not the snapshot taken before earlier cascade steps.
func applyCascadeMove(m *Market, drinkID int64, delta float64, label string) {
	cur, err := m.store.ReadDrink(drinkID)
	if err != nil {
		logger.Warn("Cascade skipped drink %d: %v", drinkID, err)
		return
	}
	d := *cur
	newPrice := models.RoundStored(d.ClampPrice(d.Price + delta))
	change := models.RoundStored(newPrice - d.Price)
	if change == 0 {
		return
	}
	if err := m.store.WriteDrinkPrice(d.ID, newPrice); err != nil {
		logger.Warn("Cascade price write failed for %s: %v", d.Name, err)
		return
	}
	m.eng.Context().RecordChange(d.ID, change)
	if err := m.store.AppendHistory(&models.HistoryEntry{
		DrinkID:   d.ID,
		Name:      d.Name,
		Price:     newPrice,
		Change:    change,
		Event:     label,
		Timestamp: m.now(),
	}); err != nil {
		logger.Warn("Cascade history append failed for %s: %v", d.Name, err)
	}
}
