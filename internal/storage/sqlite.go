package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the database-backed variant of the persistence
// collaborator, for installations that outgrow the flat CSV files.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates the SQLite database at dbPath and seeds the
// default catalog when the drinks table is empty.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data directory: %v", models.ErrPersistence, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", models.ErrPersistence, err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("%w: set WAL mode: %v", models.ErrPersistence, err)
	}
	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("%w: create tables: %v", models.ErrPersistence, err)
	}
	if err := s.seedIfEmpty(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drinks (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			name           TEXT NOT NULL,
			category       TEXT NOT NULL,
			price          REAL NOT NULL,
			base_price     REAL NOT NULL,
			min_price      REAL NOT NULL,
			max_price      REAL NOT NULL,
			alcohol_degree REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			drink_id  INTEGER NOT NULL,
			name      TEXT NOT NULL,
			price     REAL NOT NULL,
			quantity  INTEGER NOT NULL,
			change    REAL NOT NULL,
			event     TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) seedIfEmpty() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM drinks`).Scan(&n); err != nil {
		return fmt.Errorf("%w: count drinks: %v", models.ErrPersistence, err)
	}
	if n > 0 {
		return nil
	}
	for _, d := range defaultCatalog() {
		if _, err := s.db.Exec(`
			INSERT INTO drinks (id, name, category, price, base_price, min_price, max_price, alcohol_degree)
			VALUES (?,?,?,?,?,?,?,?)`,
			d.ID, d.Name, d.Category, d.Price, d.BasePrice, d.MinPrice, d.MaxPrice, d.AlcoholDegree,
		); err != nil {
			return fmt.Errorf("%w: seed catalog: %v", models.ErrPersistence, err)
		}
	}
	return nil
}

const drinkCols = `id, name, category, price, base_price, min_price, max_price, alcohol_degree`

func scanDrink(scan func(...any) error) (*models.Drink, error) {
	var d models.Drink
	err := scan(&d.ID, &d.Name, &d.Category, &d.Price, &d.BasePrice, &d.MinPrice, &d.MaxPrice, &d.AlcoholDegree)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ReadAllDrinks returns the full catalog ordered by id.
func (s *SQLiteStore) ReadAllDrinks() ([]models.Drink, error) {
	rows, err := s.db.Query(`SELECT ` + drinkCols + ` FROM drinks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query drinks: %v", models.ErrPersistence, err)
	}
	defer rows.Close()
	var drinks []models.Drink
	for rows.Next() {
		d, err := scanDrink(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan drink: %v", models.ErrPersistence, err)
		}
		drinks = append(drinks, *d)
	}
	return drinks, rows.Err()
}

// ReadDrink returns one drink or ErrNotFound.
func (s *SQLiteStore) ReadDrink(id int64) (*models.Drink, error) {
	row := s.db.QueryRow(`SELECT `+drinkCols+` FROM drinks WHERE id = ?`, id)
	d, err := scanDrink(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: drink %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get drink: %v", models.ErrPersistence, err)
	}
	return d, nil
}

// WriteDrinkPrice updates the price field of one drink.
func (s *SQLiteStore) WriteDrinkPrice(id int64, price float64) error {
	res, err := s.db.Exec(`UPDATE drinks SET price = ? WHERE id = ?`, price, id)
	if err != nil {
		return fmt.Errorf("%w: update price: %v", models.ErrPersistence, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: drink %d", models.ErrNotFound, id)
	}
	return nil
}

// CreateDrink inserts a new drink; the initial price is the base price.
func (s *SQLiteStore) CreateDrink(d *models.Drink) (*models.Drink, error) {
	created := *d
	created.Price = created.BasePrice
	created.ID = 1 // placeholder so Validate passes before the real id is assigned
	if err := created.Validate(); err != nil {
		return nil, err
	}
	res, err := s.db.Exec(`
		INSERT INTO drinks (name, category, price, base_price, min_price, max_price, alcohol_degree)
		VALUES (?,?,?,?,?,?,?)`,
		created.Name, created.Category, created.Price, created.BasePrice, created.MinPrice, created.MaxPrice, created.AlcoholDegree,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert drink: %v", models.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: insert drink: %v", models.ErrPersistence, err)
	}
	created.ID = id
	return &created, nil
}

// UpdateDrinkFields merges upd into one drink.
func (s *SQLiteStore) UpdateDrinkFields(id int64, upd DrinkUpdate) (*models.Drink, error) {
	d, err := s.ReadDrink(id)
	if err != nil {
		return nil, err
	}
	if err := upd.Apply(d); err != nil {
		return nil, err
	}
	_, err = s.db.Exec(`
		UPDATE drinks SET name=?, category=?, price=?, base_price=?, min_price=?, max_price=?, alcohol_degree=?
		WHERE id=?`,
		d.Name, d.Category, d.Price, d.BasePrice, d.MinPrice, d.MaxPrice, d.AlcoholDegree, id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: update drink: %v", models.ErrPersistence, err)
	}
	return d, nil
}

// DeleteDrink removes a drink; history is untouched.
func (s *SQLiteStore) DeleteDrink(id int64) error {
	res, err := s.db.Exec(`DELETE FROM drinks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete drink: %v", models.ErrPersistence, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: drink %d", models.ErrNotFound, id)
	}
	return nil
}

// AppendHistory appends one entry, assigning its id and timestamp when
// unset.
func (s *SQLiteStore) AppendHistory(e *models.HistoryEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO history (drink_id, name, price, quantity, change, event, timestamp)
		VALUES (?,?,?,?,?,?,?)`,
		e.DrinkID, e.Name, e.Price, e.Quantity, e.Change, e.Event, e.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert history: %v", models.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: insert history: %v", models.ErrPersistence, err)
	}
	e.ID = id
	return nil
}

const historyCols = `id, drink_id, name, price, quantity, change, event, timestamp`

func scanEntry(scan func(...any) error) (*models.HistoryEntry, error) {
	var e models.HistoryEntry
	var ts int64
	err := scan(&e.ID, &e.DrinkID, &e.Name, &e.Price, &e.Quantity, &e.Change, &e.Event, &ts)
	if err != nil {
		return nil, err
	}
	e.Timestamp = time.Unix(0, ts)
	return &e, nil
}

// ReadHistory returns up to limit entries, most recent last.
func (s *SQLiteStore) ReadHistory(limit int) ([]models.HistoryEntry, error) {
	query := `SELECT ` + historyCols + ` FROM history ORDER BY id`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		// take the newest N, then flip back to most-recent-last order
		query = `SELECT ` + historyCols + ` FROM (
			SELECT ` + historyCols + ` FROM history ORDER BY id DESC LIMIT ?
		) ORDER BY id`
		rows, err = s.db.Query(query, limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", models.ErrPersistence, err)
	}
	defer rows.Close()
	var entries []models.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan history: %v", models.ErrPersistence, err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetHistoryEntry returns one entry by id or ErrNotFound.
func (s *SQLiteStore) GetHistoryEntry(id int64) (*models.HistoryEntry, error) {
	row := s.db.QueryRow(`SELECT `+historyCols+` FROM history WHERE id = ?`, id)
	e, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: history entry %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get history entry: %v", models.ErrPersistence, err)
	}
	return e, nil
}

// UpdateHistoryEntry mutates quantity and/or event of one entry.
func (s *SQLiteStore) UpdateHistoryEntry(id int64, quantity *int, event *string) (*models.HistoryEntry, error) {
	e, err := s.GetHistoryEntry(id)
	if err != nil {
		return nil, err
	}
	if quantity != nil {
		q := *quantity
		if q < 0 {
			q = 0
		}
		e.Quantity = q
	}
	if event != nil && *event != "" {
		e.Event = *event
	}
	if _, err := s.db.Exec(`UPDATE history SET quantity=?, event=? WHERE id=?`, e.Quantity, e.Event, id); err != nil {
		return nil, fmt.Errorf("%w: update history entry: %v", models.ErrPersistence, err)
	}
	return e, nil
}

// DeleteHistoryEntry removes one entry by id.
func (s *SQLiteStore) DeleteHistoryEntry(id int64) error {
	res, err := s.db.Exec(`DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete history entry: %v", models.ErrPersistence, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: history entry %d", models.ErrNotFound, id)
	}
	return nil
}

// ClearHistory removes every entry.
func (s *SQLiteStore) ClearHistory() error {
	if _, err := s.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("%w: clear history: %v", models.ErrPersistence, err)
	}
	return nil
}
