package session

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// Export layout: one "session" summary row followed by one "sale" row
// per line item. The summary row carries the totals valid at export
// time; resuming the file and ending again rewrites everything.
const (
	rowSession = "session"
	rowSale    = "sale"
)

func (l *Ledger) defaultExportPath(s *models.Session) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s.Name)
	file := fmt.Sprintf("%s_%d.csv", name, s.StartedAt.Unix())
	return filepath.Join(l.exportDir, file)
}

func writeExport(path string, s *models.Session, summary *models.SessionSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create export directory: %v", models.ErrPersistence, err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create export: %v", models.ErrPersistence, err)
	}

	w := csv.NewWriter(f)
	records := [][]string{{
		rowSession,
		s.ID,
		s.Name,
		s.StartedAt.Format(time.RFC3339),
		summary.EndedAt.Format(time.RFC3339),
		strconv.Itoa(summary.TotalQuantity),
		formatFloat(summary.TotalRevenue),
		formatFloat(summary.TotalProfit),
	}}
	for _, sale := range s.Sales {
		records = append(records, []string{
			rowSale,
			sale.ID,
			strconv.FormatInt(sale.DrinkID, 10),
			sale.Name,
			strconv.Itoa(sale.Quantity),
			formatFloat(sale.UnitPrice),
			formatFloat(sale.BasePrice),
			formatFloat(sale.Total),
			formatFloat(sale.ProfitLoss),
			sale.Timestamp.Format(time.RFC3339),
		})
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: write export: %v", models.ErrPersistence, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close export: %v", models.ErrPersistence, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: replace export: %v", models.ErrPersistence, err)
	}
	return nil
}

func readExport(path string) (*models.Session, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: export file %s", models.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open export: %v", models.ErrPersistence, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse export: %v", models.ErrPersistence, err)
	}
	if len(records) == 0 || records[0][0] != rowSession || len(records[0]) < 8 {
		return nil, fmt.Errorf("%w: export file has no session row", models.ErrValidation)
	}

	startedAt, err := time.Parse(time.RFC3339, records[0][3])
	if err != nil {
		return nil, fmt.Errorf("%w: bad session start time: %v", models.ErrValidation, err)
	}
	sess := &models.Session{
		ID:        records[0][1],
		Name:      records[0][2],
		StartedAt: startedAt,
		Sales:     []models.SessionSale{},
	}
	for _, rec := range records[1:] {
		if len(rec) < 10 || rec[0] != rowSale {
			continue
		}
		sale, err := parseSaleRow(rec)
		if err != nil {
			return nil, err
		}
		sess.Sales = append(sess.Sales, sale)
	}
	return sess, nil
}

func parseSaleRow(rec []string) (models.SessionSale, error) {
	var sale models.SessionSale
	drinkID, err := strconv.ParseInt(rec[2], 10, 64)
	if err != nil {
		return sale, fmt.Errorf("%w: bad sale drink id %q", models.ErrValidation, rec[2])
	}
	quantity, err := strconv.Atoi(rec[4])
	if err != nil {
		return sale, fmt.Errorf("%w: bad sale quantity %q", models.ErrValidation, rec[4])
	}
	ts, err := time.Parse(time.RFC3339, rec[9])
	if err != nil {
		return sale, fmt.Errorf("%w: bad sale timestamp %q", models.ErrValidation, rec[9])
	}
	floats := make([]float64, 4)
	for i, idx := range []int{5, 6, 7, 8} {
		v, err := strconv.ParseFloat(rec[idx], 64)
		if err != nil {
			return sale, fmt.Errorf("%w: bad sale amount %q", models.ErrValidation, rec[idx])
		}
		floats[i] = v
	}
	return models.SessionSale{
		ID:         rec[1],
		DrinkID:    drinkID,
		Name:       rec[3],
		Quantity:   quantity,
		UnitPrice:  floats[0],
		BasePrice:  floats[1],
		Total:      floats[2],
		ProfitLoss: floats[3],
		Timestamp:  ts,
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
