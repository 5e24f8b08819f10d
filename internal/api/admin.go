package api

import (
	"net/http"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/engine"
	"github.com/Skyxo/cours-de-la-biere/internal/logger"
	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
)

func (s *Server) listDrinks(w http.ResponseWriter, r *http.Request) {
	drinks, err := s.market.Drinks()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drinks": drinks, "count": len(drinks)})
}

type createDrinkRequest struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	BasePrice     float64 `json:"base_price"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	AlcoholDegree float64 `json:"alcohol_degree"`
}

func (s *Server) createDrink(w http.ResponseWriter, r *http.Request) {
	var req createDrinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := s.market.CreateDrink(&models.Drink{
		Name:          req.Name,
		Category:      req.Category,
		Price:         req.BasePrice,
		BasePrice:     req.BasePrice,
		MinPrice:      req.MinPrice,
		MaxPrice:      req.MaxPrice,
		AlcoholDegree: req.AlcoholDegree,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type updateDrinkRequest struct {
	Name          *string  `json:"name"`
	Category      *string  `json:"category"`
	Price         *float64 `json:"price"`
	BasePrice     *float64 `json:"base_price"`
	MinPrice      *float64 `json:"min_price"`
	MaxPrice      *float64 `json:"max_price"`
	AlcoholDegree *float64 `json:"alcohol_degree"`
}

func (s *Server) updateDrink(w http.ResponseWriter, r *http.Request) {
	var req updateDrinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := s.market.UpdateDrink(pathID(r), storage.DrinkUpdate{
		Name:          req.Name,
		Category:      req.Category,
		Price:         req.Price,
		BasePrice:     req.BasePrice,
		MinPrice:      req.MinPrice,
		MaxPrice:      req.MaxPrice,
		AlcoholDegree: req.AlcoholDegree,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDrink(w http.ResponseWriter, r *http.Request) {
	if err := s.market.DeleteDrink(pathID(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type setPriceRequest struct {
	Price float64 `json:"price"`
}

func (s *Server) setDrinkPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := s.market.SetManualPrice(pathID(r), req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.market.ClearHistory(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type updateHistoryRequest struct {
	Quantity *int    `json:"quantity"`
	Event    *string `json:"event"`
}

func (s *Server) updateHistoryEntry(w http.ResponseWriter, r *http.Request) {
	var req updateHistoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := s.market.UpdateHistoryEntry(pathID(r), req.Quantity, req.Event)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// revertHistoryEntry undoes the entry's price change and deletes it.
func (s *Server) revertHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.market.RevertHistoryEntry(pathID(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reverted"})
}

type forcedEventRequest struct {
	Level string `json:"level"`
}

func (s *Server) triggerCrash(w http.ResponseWriter, r *http.Request) {
	level, ok := s.parseLevel(w, r)
	if !ok {
		return
	}
	moved, err := s.market.TriggerCrash(level)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.notifier != nil {
		if err := s.notifier.SendCrash(string(level), moved); err != nil {
			logger.Warn("Failed to announce crash: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": level, "drinks_moved": moved})
}

func (s *Server) triggerBoom(w http.ResponseWriter, r *http.Request) {
	level, ok := s.parseLevel(w, r)
	if !ok {
		return
	}
	moved, err := s.market.TriggerBoom(level)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.notifier != nil {
		if err := s.notifier.SendBoom(string(level), moved); err != nil {
			logger.Warn("Failed to announce boom: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": level, "drinks_moved": moved})
}

func (s *Server) parseLevel(w http.ResponseWriter, r *http.Request) (engine.Level, bool) {
	req := forcedEventRequest{Level: string(engine.LevelMedium)}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return "", false
	}
	level, err := engine.ParseLevel(req.Level)
	if err != nil {
		writeDomainError(w, err)
		return "", false
	}
	return level, true
}

func (s *Server) resetMarket(w http.ResponseWriter, r *http.Request) {
	if err := s.market.ResetPrices(); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.notifier != nil {
		if err := s.notifier.SendReset(); err != nil {
			logger.Warn("Failed to announce reset: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) listHappyHours(w http.ResponseWriter, r *http.Request) {
	windows := s.happy.ListActive()
	writeJSON(w, http.StatusOK, map[string]any{"happy_hours": windows, "count": len(windows)})
}

type happyHourRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

func (s *Server) startHappyHour(w http.ResponseWriter, r *http.Request) {
	var req happyHourRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := s.market.Drink(pathID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	duration := time.Duration(req.DurationSeconds) * time.Second
	if err := s.happy.Start(*d, duration); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.notifier != nil {
		if err := s.notifier.SendHappyHour(d.Name, duration); err != nil {
			logger.Warn("Failed to announce happy hour: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"drink_id":      d.ID,
		"display_price": d.MinPrice,
		"ends_in_s":     req.DurationSeconds,
	})
}

func (s *Server) stopHappyHour(w http.ResponseWriter, r *http.Request) {
	if err := s.happy.Stop(pathID(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) stopAllHappyHours(w http.ResponseWriter, r *http.Request) {
	if err := s.happy.StopAll(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	active := s.ledger.Active()
	if active == nil {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	quantity, revenue, profit := active.Totals()
	writeJSON(w, http.StatusOK, map[string]any{
		"active":         true,
		"session":        active,
		"total_quantity": quantity,
		"total_revenue":  models.RoundStored(revenue),
		"total_profit":   models.RoundStored(profit),
	})
}

type startSessionRequest struct {
	Name string `json:"name"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.ledger.Start(req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.End()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.notifier != nil {
		if err := s.notifier.SendSessionClosed(summary); err != nil {
			logger.Warn("Failed to announce session close: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, summary)
}

type resumeSessionRequest struct {
	ExportPath string `json:"export_path"`
}

// resumeSession reopens a session: from the crash snapshot when no
// export path is given, from a past export file otherwise.
func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	req := resumeSessionRequest{}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.ExportPath != "" {
		sess, err := s.ledger.ResumeExport(req.ExportPath)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
		return
	}
	restored, err := s.ledger.Resume()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": restored, "session": s.ledger.Active()})
}

type setTimerRequest struct {
	IntervalMs int64 `json:"interval_ms"`
}

func (s *Server) setTimer(w http.ResponseWriter, r *http.Request) {
	var req setTimerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.timer.SetInterval(time.Duration(req.IntervalMs) * time.Millisecond); err != nil {
		writeDomainError(w, err)
		return
	}
	s.getTimer(w, r)
}

func (s *Server) refreshTimer(w http.ResponseWriter, r *http.Request) {
	if err := s.timer.ForceRefresh(); err != nil {
		writeDomainError(w, err)
		return
	}
	s.getTimer(w, r)
}

// getStats aggregates a dashboard view: catalog spread, history volume
// and the open session totals.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	drinks, err := s.market.Drinks()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	history, err := s.market.History(0)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	categories := map[string]int{}
	var deviation, lowest, highest float64
	var purchases, unitsSold int
	for i, d := range drinks {
		categories[d.Category]++
		deviation += (d.Price - d.BasePrice) / d.BasePrice
		if i == 0 || d.Price < lowest {
			lowest = d.Price
		}
		if d.Price > highest {
			highest = d.Price
		}
	}
	if len(drinks) > 0 {
		deviation /= float64(len(drinks))
	}
	for _, e := range history {
		if e.Quantity > 0 {
			purchases++
			unitsSold += e.Quantity
		}
	}

	stats := map[string]any{
		"drink_count":       len(drinks),
		"categories":        categories,
		"avg_deviation_pct": models.RoundStored(deviation * 100),
		"lowest_price":      lowest,
		"highest_price":     highest,
		"history_entries":   len(history),
		"purchases":         purchases,
		"units_sold":        unitsSold,
		"market":            s.market.Status(),
		"happy_hours":       len(s.happy.ListActive()),
	}
	if active := s.ledger.Active(); active != nil {
		quantity, revenue, profit := active.Totals()
		stats["session"] = map[string]any{
			"name":           active.Name,
			"started_at":     active.StartedAt,
			"sale_count":     len(active.Sales),
			"total_quantity": quantity,
			"total_revenue":  models.RoundStored(revenue),
			"total_profit":   models.RoundStored(profit),
		}
	}
	writeJSON(w, http.StatusOK, stats)
}
