package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

var drinkHeader = []string{"id", "name", "category", "price", "base_price", "min_price", "max_price", "alcohol_degree"}
var historyHeader = []string{"id", "drink_id", "name", "price", "quantity", "change", "event", "timestamp"}

// CSVStore persists the catalog and history as flat CSV files. Updates
// rewrite the whole file through a temp-file rename so a crash never
// leaves a partially written row behind. A single mutex serializes
// writers.
type CSVStore struct {
	mu          sync.Mutex
	drinksPath  string
	historyPath string
	lastEntryID int64
}

// NewCSV opens or creates the CSV store under dataDir, seeding the
// default catalog on first run.
func NewCSV(dataDir string) (*CSVStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %v", models.ErrPersistence, err)
	}
	s := &CSVStore{
		drinksPath:  filepath.Join(dataDir, "drinks.csv"),
		historyPath: filepath.Join(dataDir, "history.csv"),
	}

	if _, err := os.Stat(s.drinksPath); os.IsNotExist(err) {
		if err := s.writeDrinks(defaultCatalog()); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(s.historyPath); os.IsNotExist(err) {
		if err := s.writeHistory(nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close is a no-op; every operation opens and closes its own files.
func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrPersistence, path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrPersistence, path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil // skip header
}

func writeCSVAtomic(path string, header []string, rows [][]string) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", models.ErrPersistence, tmp, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %v", models.ErrPersistence, tmp, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %v", models.ErrPersistence, tmp, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("%w: flush %s: %v", models.ErrPersistence, tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", models.ErrPersistence, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", models.ErrPersistence, tmp, err)
	}
	return nil
}

func drinkToRow(d models.Drink) []string {
	return []string{
		strconv.FormatInt(d.ID, 10),
		d.Name,
		d.Category,
		strconv.FormatFloat(d.Price, 'f', -1, 64),
		strconv.FormatFloat(d.BasePrice, 'f', -1, 64),
		strconv.FormatFloat(d.MinPrice, 'f', -1, 64),
		strconv.FormatFloat(d.MaxPrice, 'f', -1, 64),
		strconv.FormatFloat(d.AlcoholDegree, 'f', -1, 64),
	}
}

func rowToDrink(row []string) (models.Drink, error) {
	var d models.Drink
	if len(row) < len(drinkHeader) {
		return d, fmt.Errorf("%w: malformed drink row (%d columns)", models.ErrPersistence, len(row))
	}
	var err error
	if d.ID, err = strconv.ParseInt(row[0], 10, 64); err != nil {
		return d, fmt.Errorf("%w: drink id %q: %v", models.ErrPersistence, row[0], err)
	}
	d.Name = row[1]
	d.Category = row[2]
	for i, dst := range []*float64{&d.Price, &d.BasePrice, &d.MinPrice, &d.MaxPrice, &d.AlcoholDegree} {
		if *dst, err = strconv.ParseFloat(row[3+i], 64); err != nil {
			return d, fmt.Errorf("%w: drink %d column %s: %v", models.ErrPersistence, d.ID, drinkHeader[3+i], err)
		}
	}
	return d, nil
}

func (s *CSVStore) readDrinks() ([]models.Drink, error) {
	rows, err := s.readCSV(s.drinksPath)
	if err != nil {
		return nil, err
	}
	drinks := make([]models.Drink, 0, len(rows))
	for _, row := range rows {
		d, err := rowToDrink(row)
		if err != nil {
			return nil, err
		}
		drinks = append(drinks, d)
	}
	return drinks, nil
}

func (s *CSVStore) writeDrinks(drinks []models.Drink) error {
	rows := make([][]string, 0, len(drinks))
	for _, d := range drinks {
		rows = append(rows, drinkToRow(d))
	}
	return writeCSVAtomic(s.drinksPath, drinkHeader, rows)
}

// ReadAllDrinks returns the full catalog.
func (s *CSVStore) ReadAllDrinks() ([]models.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readDrinks()
}

// ReadDrink returns one drink or ErrNotFound.
func (s *CSVStore) ReadDrink(id int64) (*models.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drinks, err := s.readDrinks()
	if err != nil {
		return nil, err
	}
	for i := range drinks {
		if drinks[i].ID == id {
			return &drinks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: drink %d", models.ErrNotFound, id)
}

// WriteDrinkPrice updates the price field of one drink.
func (s *CSVStore) WriteDrinkPrice(id int64, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drinks, err := s.readDrinks()
	if err != nil {
		return err
	}
	for i := range drinks {
		if drinks[i].ID == id {
			drinks[i].Price = price
			return s.writeDrinks(drinks)
		}
	}
	return fmt.Errorf("%w: drink %d", models.ErrNotFound, id)
}

// CreateDrink appends a new drink, assigning the next free id. The
// initial price is always the base price.
func (s *CSVStore) CreateDrink(d *models.Drink) (*models.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drinks, err := s.readDrinks()
	if err != nil {
		return nil, err
	}
	var maxID int64
	for _, existing := range drinks {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	created := *d
	created.ID = maxID + 1
	created.Price = created.BasePrice
	if err := created.Validate(); err != nil {
		return nil, err
	}
	drinks = append(drinks, created)
	if err := s.writeDrinks(drinks); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDrinkFields merges upd into one drink.
func (s *CSVStore) UpdateDrinkFields(id int64, upd DrinkUpdate) (*models.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drinks, err := s.readDrinks()
	if err != nil {
		return nil, err
	}
	for i := range drinks {
		if drinks[i].ID == id {
			if err := upd.Apply(&drinks[i]); err != nil {
				return nil, err
			}
			if err := s.writeDrinks(drinks); err != nil {
				return nil, err
			}
			updated := drinks[i]
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("%w: drink %d", models.ErrNotFound, id)
}

// DeleteDrink removes a drink from the catalog; history is untouched.
func (s *CSVStore) DeleteDrink(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drinks, err := s.readDrinks()
	if err != nil {
		return err
	}
	kept := drinks[:0]
	for _, d := range drinks {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(drinks) {
		return fmt.Errorf("%w: drink %d", models.ErrNotFound, id)
	}
	return s.writeDrinks(kept)
}

func entryToRow(e models.HistoryEntry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		strconv.FormatInt(e.DrinkID, 10),
		e.Name,
		strconv.FormatFloat(e.Price, 'f', -1, 64),
		strconv.Itoa(e.Quantity),
		strconv.FormatFloat(e.Change, 'f', -1, 64),
		e.Event,
		e.Timestamp.Format(time.RFC3339Nano),
	}
}

func rowToEntry(row []string) (models.HistoryEntry, error) {
	var e models.HistoryEntry
	if len(row) < len(historyHeader) {
		return e, fmt.Errorf("%w: malformed history row (%d columns)", models.ErrPersistence, len(row))
	}
	var err error
	if e.ID, err = strconv.ParseInt(row[0], 10, 64); err != nil {
		return e, fmt.Errorf("%w: history id %q: %v", models.ErrPersistence, row[0], err)
	}
	if e.DrinkID, err = strconv.ParseInt(row[1], 10, 64); err != nil {
		return e, fmt.Errorf("%w: history drink_id %q: %v", models.ErrPersistence, row[1], err)
	}
	e.Name = row[2]
	if e.Price, err = strconv.ParseFloat(row[3], 64); err != nil {
		return e, fmt.Errorf("%w: history price %q: %v", models.ErrPersistence, row[3], err)
	}
	if e.Quantity, err = strconv.Atoi(row[4]); err != nil {
		return e, fmt.Errorf("%w: history quantity %q: %v", models.ErrPersistence, row[4], err)
	}
	if e.Change, err = strconv.ParseFloat(row[5], 64); err != nil {
		return e, fmt.Errorf("%w: history change %q: %v", models.ErrPersistence, row[5], err)
	}
	e.Event = row[6]
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, row[7]); err != nil {
		return e, fmt.Errorf("%w: history timestamp %q: %v", models.ErrPersistence, row[7], err)
	}
	return e, nil
}

func (s *CSVStore) readHistoryRows() ([]models.HistoryEntry, error) {
	rows, err := s.readCSV(s.historyPath)
	if err != nil {
		return nil, err
	}
	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		e, err := rowToEntry(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *CSVStore) writeHistory(entries []models.HistoryEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryToRow(e))
	}
	return writeCSVAtomic(s.historyPath, historyHeader, rows)
}

// nextEntryID derives a strictly increasing id from the wall clock.
func (s *CSVStore) nextEntryID() int64 {
	id := time.Now().UnixMicro()
	if id <= s.lastEntryID {
		id = s.lastEntryID + 1
	}
	s.lastEntryID = id
	return id
}

// AppendHistory appends one entry, assigning its id and timestamp when
// unset.
func (s *CSVStore) AppendHistory(e *models.HistoryEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.nextEntryID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	f, err := os.OpenFile(s.historyPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", models.ErrPersistence, s.historyPath, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(entryToRow(*e)); err != nil {
		return fmt.Errorf("%w: append history: %v", models.ErrPersistence, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: append history: %v", models.ErrPersistence, err)
	}
	return nil
}

// ReadHistory returns up to limit entries, most recent last. A limit of
// 0 or less returns everything.
func (s *CSVStore) ReadHistory(limit int) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readHistoryRows()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// GetHistoryEntry returns one entry by id or ErrNotFound.
func (s *CSVStore) GetHistoryEntry(id int64) (*models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readHistoryRows()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: history entry %d", models.ErrNotFound, id)
}

// UpdateHistoryEntry mutates quantity and/or event of one entry.
func (s *CSVStore) UpdateHistoryEntry(id int64, quantity *int, event *string) (*models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readHistoryRows()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		if quantity != nil {
			q := *quantity
			if q < 0 {
				q = 0
			}
			entries[i].Quantity = q
		}
		if event != nil && *event != "" {
			entries[i].Event = *event
		}
		if err := s.writeHistory(entries); err != nil {
			return nil, err
		}
		updated := entries[i]
		return &updated, nil
	}
	return nil, fmt.Errorf("%w: history entry %d", models.ErrNotFound, id)
}

// DeleteHistoryEntry removes one entry by id.
func (s *CSVStore) DeleteHistoryEntry(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readHistoryRows()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return fmt.Errorf("%w: history entry %d", models.ErrNotFound, id)
	}
	return s.writeHistory(kept)
}

// ClearHistory removes every entry, leaving only the header.
func (s *CSVStore) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeHistory(nil)
}
