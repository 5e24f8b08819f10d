// Package session tracks the bar's shift ledger: at most one open
// session at a time, each sale appended and snapshotted immediately so
// a crash loses nothing, and a CSV export written when the shift ends.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
)

// Ledger manages the lifecycle of the active session.
type Ledger struct {
	mu        sync.Mutex
	state     *storage.StateFile
	exportDir string
	now       func() time.Time

	active *models.Session
	// exportPath is set when the active session was resumed from an
	// export file; End rewrites that same file.
	exportPath string
}

// New creates a ledger persisting its open session to state and writing
// exports under exportDir. A nil now defaults to time.Now.
func New(state *storage.StateFile, exportDir string, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{state: state, exportDir: exportDir, now: now}
}

// Start opens a new session. Fails with ErrConflict while another
// session is open.
func (l *Ledger) Start(name string) (*models.Session, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: session name required", models.ErrValidation)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		return nil, fmt.Errorf("%w: session %q is already open", models.ErrConflict, l.active.Name)
	}

	l.active = &models.Session{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: l.now(),
		Active:    true,
		Sales:     []models.SessionSale{},
	}
	l.exportPath = ""
	if err := l.persistLocked(); err != nil {
		l.active = nil
		return nil, err
	}
	return l.copyActiveLocked(), nil
}

// Active returns a copy of the open session, or nil.
func (l *Ledger) Active() *models.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyActiveLocked()
}

// RecordSale appends a sale to the open session and snapshots the
// ledger before returning. Fails with ErrValidation when no session is
// open.
func (l *Ledger) RecordSale(sale models.SessionSale) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == nil {
		return fmt.Errorf("%w: no open session", models.ErrValidation)
	}
	if err := sale.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = l.now()
	}
	l.active.Sales = append(l.active.Sales, sale)
	if err := l.persistLocked(); err != nil {
		l.active.Sales = l.active.Sales[:len(l.active.Sales)-1]
		return err
	}
	return nil
}

// End closes the open session: computes its totals, writes the CSV
// export and clears the crash snapshot. Fails with ErrConflict when no
// session is open.
func (l *Ledger) End() (*models.SessionSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == nil {
		return nil, fmt.Errorf("%w: no open session", models.ErrConflict)
	}

	endedAt := l.now()
	quantity, revenue, profit := l.active.Totals()
	summary := &models.SessionSummary{
		ID:            l.active.ID,
		Name:          l.active.Name,
		StartedAt:     l.active.StartedAt,
		EndedAt:       endedAt,
		TotalQuantity: quantity,
		TotalRevenue:  models.RoundStored(revenue),
		TotalProfit:   models.RoundStored(profit),
		SaleCount:     len(l.active.Sales),
	}

	path := l.exportPath
	if path == "" {
		path = l.defaultExportPath(l.active)
	}
	if err := writeExport(path, l.active, summary); err != nil {
		return nil, err
	}
	summary.ExportPath = path

	l.active = nil
	l.exportPath = ""
	if err := l.state.Remove(); err != nil {
		return nil, err
	}
	return summary, nil
}

// Resume rehydrates the open session from the crash snapshot, if one
// exists. Returns whether a session was restored.
func (l *Ledger) Resume() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		return false, nil
	}
	var snap ledgerSnapshot
	ok, err := l.state.Load(&snap)
	if err != nil {
		return false, err
	}
	if !ok || snap.Session == nil || !snap.Session.Active {
		return false, nil
	}
	l.active = snap.Session
	l.exportPath = snap.ExportPath
	return true, nil
}

// ResumeExport reopens a previously exported session so more sales can
// be appended; ending it rewrites the same export file. Fails with
// ErrConflict while a session is open.
func (l *Ledger) ResumeExport(path string) (*models.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		return nil, fmt.Errorf("%w: session %q is already open", models.ErrConflict, l.active.Name)
	}

	sess, err := readExport(path)
	if err != nil {
		return nil, err
	}
	sess.Active = true
	l.active = sess
	l.exportPath = path
	if err := l.persistLocked(); err != nil {
		l.active = nil
		l.exportPath = ""
		return nil, err
	}
	return l.copyActiveLocked(), nil
}

type ledgerSnapshot struct {
	Session    *models.Session `json:"session"`
	ExportPath string          `json:"export_path,omitempty"`
}

func (l *Ledger) persistLocked() error {
	return l.state.Save(ledgerSnapshot{Session: l.active, ExportPath: l.exportPath})
}

func (l *Ledger) copyActiveLocked() *models.Session {
	if l.active == nil {
		return nil
	}
	out := *l.active
	out.Sales = append([]models.SessionSale(nil), l.active.Sales...)
	return &out
}
