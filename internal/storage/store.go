// Package storage implements the persistence collaborator for the drink
// catalog and price history. Two backends are provided: flat CSV files
// rewritten whole on every update, and a SQLite database. Both guarantee
// last-writer-wins semantics and never interleave concurrent writers.
package storage

import (
	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// Store is the record-level persistence contract consumed by the market
// core. History reads are ordered most-recent-last.
type Store interface {
	ReadAllDrinks() ([]models.Drink, error)
	ReadDrink(id int64) (*models.Drink, error)
	// WriteDrinkPrice updates the single price field, last writer wins.
	WriteDrinkPrice(id int64, price float64) error
	CreateDrink(d *models.Drink) (*models.Drink, error)
	UpdateDrinkFields(id int64, upd DrinkUpdate) (*models.Drink, error)
	DeleteDrink(id int64) error

	AppendHistory(e *models.HistoryEntry) error
	ReadHistory(limit int) ([]models.HistoryEntry, error)
	GetHistoryEntry(id int64) (*models.HistoryEntry, error)
	// UpdateHistoryEntry mutates quantity and/or event of one entry without
	// re-deriving the price series.
	UpdateHistoryEntry(id int64, quantity *int, event *string) (*models.HistoryEntry, error)
	DeleteHistoryEntry(id int64) error
	ClearHistory() error

	Close() error
}

// DrinkUpdate carries the optional fields of an administrative drink
// update; nil fields are left unchanged.
type DrinkUpdate struct {
	Name          *string
	Category      *string
	Price         *float64
	BasePrice     *float64
	MinPrice      *float64
	MaxPrice      *float64
	AlcoholDegree *float64
}

// Apply merges the update into d, validating the resulting bounds.
func (u DrinkUpdate) Apply(d *models.Drink) error {
	merged := *d
	if u.Name != nil {
		merged.Name = *u.Name
	}
	if u.Category != nil {
		merged.Category = *u.Category
	}
	if u.BasePrice != nil {
		merged.BasePrice = *u.BasePrice
	}
	if u.MinPrice != nil {
		merged.MinPrice = *u.MinPrice
	}
	if u.MaxPrice != nil {
		merged.MaxPrice = *u.MaxPrice
	}
	if u.Price != nil {
		merged.Price = *u.Price
	}
	if u.AlcoholDegree != nil {
		merged.AlcoholDegree = *u.AlcoholDegree
	}
	if err := merged.Validate(); err != nil {
		return err
	}
	*d = merged
	return nil
}

// defaultCatalog is the drink set seeded on first run.
func defaultCatalog() []models.Drink {
	return []models.Drink{
		{ID: 1, Name: "Pilsner", Category: models.CategoryBeer, Price: 5.0, BasePrice: 5.0, MinPrice: 3.0, MaxPrice: 10.0, AlcoholDegree: 4.7},
		{ID: 2, Name: "IPA", Category: models.CategoryBeer, Price: 6.0, BasePrice: 6.0, MinPrice: 4.0, MaxPrice: 12.0, AlcoholDegree: 6.2},
		{ID: 3, Name: "Cocktail", Category: models.CategoryCocktail, Price: 9.0, BasePrice: 9.0, MinPrice: 6.0, MaxPrice: 15.0, AlcoholDegree: 12.0},
		{ID: 4, Name: "Soft", Category: models.CategorySoft, Price: 3.0, BasePrice: 3.0, MinPrice: 2.0, MaxPrice: 6.0},
		{ID: 5, Name: "Shot", Category: models.CategoryShot, Price: 4.0, BasePrice: 4.0, MinPrice: 2.0, MaxPrice: 8.0, AlcoholDegree: 40.0},
	}
}
