package market

import (
	"errors"
	"fmt"

	"github.com/Skyxo/cours-de-la-biere/internal/engine"
	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

func isNotFound(err error) bool { return errors.Is(err, models.ErrNotFound) }

// TriggerCrash drops every drink by a level-graded fraction of its
// current price and arms the crash event. Maximum snaps straight to the
// floor. Returns the number of drinks whose price actually moved.
func (m *Market) TriggerCrash(level engine.Level) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eng.ForceEvent(engine.EventCrash, 0)
	return m.applyForced(level, fmt.Sprintf("crash_%s", level), true)
}

// TriggerBoom is the upward mirror of TriggerCrash: a level-graded rise,
// maximum snapping to the ceiling.
func (m *Market) TriggerBoom(level engine.Level) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyForced(level, fmt.Sprintf("boom_%s", level), false)
}

func (m *Market) applyForced(level engine.Level, label string, down bool) (int, error) {
	drinks, err := m.store.ReadAllDrinks()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, d := range drinks {
		var target float64
		switch {
		case level == engine.LevelMaximum && down:
			target = d.MinPrice
		case level == engine.LevelMaximum:
			target = d.MaxPrice
		default:
			pct := m.eng.SampleLevelPct(level)
			if down {
				pct = -pct
			}
			target = models.RoundStored(d.ClampPrice(d.Price * (1 + pct)))
		}
		change := models.RoundStored(target - d.Price)
		if change == 0 {
			continue
		}
		if err := m.store.WriteDrinkPrice(d.ID, target); err != nil {
			return moved, err
		}
		m.eng.Context().RecordChange(d.ID, change)
		if err := m.store.AppendHistory(&models.HistoryEntry{
			DrinkID:   d.ID,
			Name:      d.Name,
			Price:     target,
			Change:    change,
			Event:     label,
			Timestamp: m.now(),
		}); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// ResetPrices returns every drink to its base price and the market
// context to its initial state. A reset entry is logged per drink even
// when the price was already at base.
func (m *Market) ResetPrices() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drinks, err := m.store.ReadAllDrinks()
	if err != nil {
		return err
	}
	for _, d := range drinks {
		change := models.RoundStored(d.BasePrice - d.Price)
		if err := m.store.WriteDrinkPrice(d.ID, d.BasePrice); err != nil {
			return err
		}
		if err := m.store.AppendHistory(&models.HistoryEntry{
			DrinkID:   d.ID,
			Name:      d.Name,
			Price:     d.BasePrice,
			Change:    change,
			Event:     "reset",
			Timestamp: m.now(),
		}); err != nil {
			return err
		}
	}
	m.eng.Context().Reset(m.now())
	return nil
}

// SetManualPrice pins a drink to an exact price inside its bounds.
func (m *Market) SetManualPrice(drinkID int64, price float64) (*models.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.store.ReadDrink(drinkID)
	if err != nil {
		return nil, err
	}
	if price < d.MinPrice || price > d.MaxPrice {
		return nil, fmt.Errorf("%w: price %.2f outside [%.2f, %.2f]", models.ErrValidation, price, d.MinPrice, d.MaxPrice)
	}
	newPrice := models.RoundStored(price)
	change := models.RoundStored(newPrice - d.Price)
	if err := m.store.WriteDrinkPrice(d.ID, newPrice); err != nil {
		return nil, err
	}
	m.eng.Context().RecordChange(d.ID, change)
	if err := m.store.AppendHistory(&models.HistoryEntry{
		DrinkID:   d.ID,
		Name:      d.Name,
		Price:     newPrice,
		Change:    change,
		Event:     "manual_update",
		Timestamp: m.now(),
	}); err != nil {
		return nil, err
	}
	updated := *d
	updated.Price = newPrice
	return &updated, nil
}

// RevertHistoryEntry undoes the price change an entry recorded, then
// deletes the entry. Reverting an entry whose drink no longer exists
// just deletes the entry.
func (m *Market) RevertHistoryEntry(entryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, err := m.store.GetHistoryEntry(entryID)
	if err != nil {
		return err
	}
	if entry.Change != 0 {
		d, err := m.store.ReadDrink(entry.DrinkID)
		switch {
		case err == nil:
			reverted := models.RoundStored(d.ClampPrice(d.Price - entry.Change))
			if reverted != d.Price {
				if err := m.store.WriteDrinkPrice(d.ID, reverted); err != nil {
					return err
				}
			}
		case isNotFound(err):
			// Drink deleted since; nothing to revert.
		default:
			return err
		}
	}
	return m.store.DeleteHistoryEntry(entryID)
}
