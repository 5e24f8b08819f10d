package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
)

var t0 = time.Date(2025, time.March, 5, 18, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, *storage.StateFile, string) {
	t.Helper()
	dir := t.TempDir()
	state := storage.NewStateFile(filepath.Join(dir, "session_active.json"))
	exportDir := filepath.Join(dir, "sessions")
	return New(state, exportDir, func() time.Time { return t0 }), state, exportDir
}

func testSale(drinkID int64, quantity int, unit, base float64) models.SessionSale {
	return models.SessionSale{
		DrinkID:    drinkID,
		Name:       "Pilsner",
		Quantity:   quantity,
		UnitPrice:  unit,
		BasePrice:  base,
		Total:      unit * float64(quantity),
		ProfitLoss: (unit - base) * float64(quantity),
	}
}

func TestLedger_StartAndConflict(t *testing.T) {
	l, _, _ := newTestLedger(t)

	sess, err := l.Start("vendredi soir")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.ID == "" || !sess.Active {
		t.Errorf("unexpected session: %+v", sess)
	}

	if _, err := l.Start("autre"); !errors.Is(err, models.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if _, err := l.Start(""); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected ErrValidation for empty name, got %v", err)
	}
}

func TestLedger_RecordSaleRequiresSession(t *testing.T) {
	l, _, _ := newTestLedger(t)
	err := l.RecordSale(testSale(1, 2, 5.0, 5.0))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestLedger_EndComputesTotals(t *testing.T) {
	l, _, _ := newTestLedger(t)
	if _, err := l.Start("vendredi soir"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.RecordSale(testSale(1, 2, 5.5, 5.0)); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	if err := l.RecordSale(testSale(3, 1, 8.0, 9.0)); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	summary, err := l.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if summary.TotalQuantity != 3 || summary.SaleCount != 2 {
		t.Errorf("got quantity %d, count %d", summary.TotalQuantity, summary.SaleCount)
	}
	if summary.TotalRevenue != 19.0 {
		t.Errorf("got revenue %v, want 19.0", summary.TotalRevenue)
	}
	if summary.TotalProfit != 0.0 {
		t.Errorf("got profit %v, want 0.0", summary.TotalProfit)
	}
	if _, err := os.Stat(summary.ExportPath); err != nil {
		t.Errorf("export file missing: %v", err)
	}

	if l.Active() != nil {
		t.Error("session still active after End")
	}
	if _, err := l.End(); !errors.Is(err, models.ErrConflict) {
		t.Errorf("expected ErrConflict on second End, got %v", err)
	}
}

func TestLedger_ResumeFromSnapshot(t *testing.T) {
	l, state, exportDir := newTestLedger(t)
	if _, err := l.Start("vendredi soir"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.RecordSale(testSale(1, 2, 5.5, 5.0)); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	// Simulate a restart: a fresh ledger over the same state file.
	reloaded := New(state, exportDir, func() time.Time { return t0 })
	restored, err := reloaded.Resume()
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !restored {
		t.Fatal("expected a session to be restored")
	}
	active := reloaded.Active()
	if active == nil || active.Name != "vendredi soir" || len(active.Sales) != 1 {
		t.Errorf("restored session mismatch: %+v", active)
	}
}

func TestLedger_ResumeWithoutSnapshot(t *testing.T) {
	l, _, _ := newTestLedger(t)
	restored, err := l.Resume()
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if restored {
		t.Error("nothing should be restored from an empty state file")
	}
}

func TestLedger_ResumeExport(t *testing.T) {
	l, _, _ := newTestLedger(t)
	if _, err := l.Start("vendredi soir"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.RecordSale(testSale(1, 2, 5.5, 5.0)); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	summary, err := l.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}

	sess, err := l.ResumeExport(summary.ExportPath)
	if err != nil {
		t.Fatalf("ResumeExport: %v", err)
	}
	if sess.Name != "vendredi soir" || len(sess.Sales) != 1 {
		t.Errorf("resumed session mismatch: %+v", sess)
	}
	if sess.Sales[0].Total != 11.0 {
		t.Errorf("sale total lost in round trip: %v", sess.Sales[0].Total)
	}

	// Append another sale and end again: the same export is rewritten.
	if err := l.RecordSale(testSale(3, 1, 8.0, 9.0)); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	second, err := l.End()
	if err != nil {
		t.Fatalf("second End: %v", err)
	}
	if second.ExportPath != summary.ExportPath {
		t.Errorf("export path changed: %q vs %q", second.ExportPath, summary.ExportPath)
	}
	if second.SaleCount != 2 {
		t.Errorf("got %d sales, want 2", second.SaleCount)
	}

	if _, err := l.ResumeExport(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing export, got %v", err)
	}
}
