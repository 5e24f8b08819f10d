package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// getPrices returns the customer-facing price board plus the shared
// countdown, so every screen refreshes on the same beat.
func (s *Server) getPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.market.Prices()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"drinks":        prices,
		"refresh_in_ms": s.timer.Remaining(),
	})
}

type buyRequest struct {
	DrinkID  int64 `json:"drink_id"`
	Quantity int   `json:"quantity"`
}

// buyDrink runs the purchase pipeline and returns the repriced drink.
func (s *Server) buyDrink(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := s.market.ApplyPurchase(req.DrinkID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"drink":         d,
		"display_price": s.market.DisplayPrice(*d),
	})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.market.History(limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries, "count": len(entries)})
}

func (s *Server) getMarketStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.market.Status())
}

func (s *Server) getTimer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"interval_ms":  s.timer.Interval().Milliseconds(),
		"remaining_ms": s.timer.Remaining(),
		"anchor":       s.timer.Anchor(),
	})
}
