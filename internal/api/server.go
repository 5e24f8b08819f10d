// Package api exposes the market over HTTP: a public surface for the
// bar's price board and purchases, and a basic-auth admin surface for
// catalog, history, forced events, happy hours, sessions and the timer.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Skyxo/cours-de-la-biere/internal/config"
	"github.com/Skyxo/cours-de-la-biere/internal/happyhour"
	"github.com/Skyxo/cours-de-la-biere/internal/logger"
	"github.com/Skyxo/cours-de-la-biere/internal/market"
	"github.com/Skyxo/cours-de-la-biere/internal/models"
	"github.com/Skyxo/cours-de-la-biere/internal/notify"
	"github.com/Skyxo/cours-de-la-biere/internal/session"
	"github.com/Skyxo/cours-de-la-biere/internal/timer"
)

// Server represents the API server.
type Server struct {
	router   *mux.Router
	cfg      config.ServerConfig
	market   *market.Market
	happy    *happyhour.Scheduler
	ledger   *session.Ledger
	timer    *timer.Timer
	notifier *notify.Client

	httpServer *http.Server
}

// NewServer creates the API server. notifier may be nil.
func NewServer(cfg config.ServerConfig, m *market.Market, happy *happyhour.Scheduler, ledger *session.Ledger, tmr *timer.Timer, notifier *notify.Client) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		cfg:      cfg,
		market:   m,
		happy:    happy,
		ledger:   ledger,
		timer:    tmr,
		notifier: notifier,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.healthCheck).Methods("GET")
	api.HandleFunc("/prices", s.getPrices).Methods("GET")
	api.HandleFunc("/buy", s.buyDrink).Methods("POST")
	api.HandleFunc("/history", s.getHistory).Methods("GET")
	api.HandleFunc("/market/status", s.getMarketStatus).Methods("GET")
	api.HandleFunc("/timer", s.getTimer).Methods("GET")

	// The bar screen exposes its own crash and reset buttons.
	api.HandleFunc("/crash", s.triggerCrash).Methods("POST")
	api.HandleFunc("/reset", s.resetMarket).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.basicAuth)

	admin.HandleFunc("/drinks", s.listDrinks).Methods("GET")
	admin.HandleFunc("/drinks", s.createDrink).Methods("POST")
	admin.HandleFunc("/drinks/{id:[0-9]+}", s.updateDrink).Methods("PATCH")
	admin.HandleFunc("/drinks/{id:[0-9]+}", s.deleteDrink).Methods("DELETE")
	admin.HandleFunc("/drinks/{id:[0-9]+}/price", s.setDrinkPrice).Methods("POST")

	admin.HandleFunc("/history", s.getHistory).Methods("GET")
	admin.HandleFunc("/history/clear", s.clearHistory).Methods("POST")
	admin.HandleFunc("/history/{id:[0-9]+}", s.updateHistoryEntry).Methods("PATCH")
	admin.HandleFunc("/history/{id:[0-9]+}", s.revertHistoryEntry).Methods("DELETE")

	admin.HandleFunc("/market/crash", s.triggerCrash).Methods("POST")
	admin.HandleFunc("/market/boom", s.triggerBoom).Methods("POST")
	admin.HandleFunc("/market/reset", s.resetMarket).Methods("POST")
	admin.HandleFunc("/market/status", s.getMarketStatus).Methods("GET")

	admin.HandleFunc("/happyhour", s.listHappyHours).Methods("GET")
	admin.HandleFunc("/happyhour", s.stopAllHappyHours).Methods("DELETE")
	admin.HandleFunc("/happyhour/{id:[0-9]+}", s.startHappyHour).Methods("POST")
	admin.HandleFunc("/happyhour/{id:[0-9]+}", s.stopHappyHour).Methods("DELETE")

	admin.HandleFunc("/session", s.getSession).Methods("GET")
	admin.HandleFunc("/session", s.startSession).Methods("POST")
	admin.HandleFunc("/session", s.endSession).Methods("DELETE")
	admin.HandleFunc("/session/resume", s.resumeSession).Methods("POST")

	admin.HandleFunc("/timer", s.setTimer).Methods("POST")
	admin.HandleFunc("/timer/refresh", s.refreshTimer).Methods("POST")

	admin.HandleFunc("/stats", s.getStats).Methods("GET")
}

// Start starts the API server and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// basicAuth guards the admin surface with constant-time credential
// comparison.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.AdminUser)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.AdminPassword)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the domain error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
