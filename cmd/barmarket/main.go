package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/api"
	"github.com/Skyxo/cours-de-la-biere/internal/config"
	"github.com/Skyxo/cours-de-la-biere/internal/engine"
	"github.com/Skyxo/cours-de-la-biere/internal/happyhour"
	"github.com/Skyxo/cours-de-la-biere/internal/logger"
	"github.com/Skyxo/cours-de-la-biere/internal/market"
	"github.com/Skyxo/cours-de-la-biere/internal/notify"
	"github.com/Skyxo/cours-de-la-biere/internal/session"
	"github.com/Skyxo/cours-de-la-biere/internal/storage"
	"github.com/Skyxo/cours-de-la-biere/internal/timer"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// processState is the crash-recovery snapshot of the volatile market
// state: the pricing context and the active happy-hour windows. The
// session ledger and timer persist through their own files.
type processState struct {
	Market    engine.ContextSnapshot `json:"market"`
	HappyHour []happyhour.Window     `json:"happy_hour"`
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	logger.Info("Configuration loaded from %s", *configPath)

	var store storage.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err = storage.NewSQLite(cfg.Storage.DBPath)
	default:
		store, err = storage.NewCSV(cfg.Storage.DataDir)
	}
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()
	logger.Info("Storage initialized (backend: %s)", cfg.Storage.Backend)

	stateFile := storage.NewStateFile(filepath.Join(cfg.Storage.DataDir, "market_state.json"))
	timerFile := storage.NewStateFile(filepath.Join(cfg.Storage.DataDir, "timer.json"))
	sessionFile := storage.NewStateFile(filepath.Join(cfg.Storage.DataDir, "session_active.json"))

	ctx := engine.NewContext(time.Now())
	var state processState
	restored, err := stateFile.Load(&state)
	if err != nil {
		logger.Warn("Failed to load market state, starting fresh: %v", err)
	} else if restored {
		ctx.Restore(state.Market)
		logger.Info("Market state restored (trend: %s, event: %s)", ctx.Trend, ctx.ActiveEvent)
	}

	engCfg := engine.DefaultConfig()
	engCfg.MaxChangePct = cfg.Market.MaxChangePct
	eng := engine.New(engCfg, ctx, nil, nil)

	happy := happyhour.New(store, nil)
	if restored {
		happy.Restore(state.HappyHour)
	}

	ledger := session.New(sessionFile, cfg.Session.ExportDir, nil)
	if resumed, err := ledger.Resume(); err != nil {
		logger.Warn("Failed to resume session: %v", err)
	} else if resumed {
		logger.Info("Resumed open session %q", ledger.Active().Name)
	}

	tmr, err := timer.New(timerFile, cfg.Timer.Interval, nil)
	if err != nil {
		logger.Fatal("Failed to initialize timer: %v", err)
	}

	cascade, err := market.NewCascade(cfg.Market.Cascade)
	if err != nil {
		logger.Fatal("Invalid cascade strategy: %v", err)
	}
	mkt := market.New(store, eng, happy, ledger, cascade, cfg.Market.CorrelationEnabled, nil)

	var notifier *notify.Client
	if cfg.Telegram.Enabled {
		notifier, err = notify.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, 3, time.Second)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram announcements enabled")
	} else {
		logger.Debug("Telegram announcements disabled")
	}

	saveState := func() {
		if err := stateFile.Save(processState{
			Market:    eng.Context().Snapshot(),
			HappyHour: happy.Snapshot(),
		}); err != nil {
			logger.Warn("Failed to snapshot market state: %v", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(cfg.Storage.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				saveState()
			}
		}
	}()

	server := api.NewServer(cfg.Server, mkt, happy, ledger, tmr, notifier)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server on %s", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Fatal("HTTP server failed: %v", err)
	case sig := <-sigChan:
		logger.Info("Received %v, shutting down", sig)
	}

	cancel()
	saveState()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
	logger.Info("Service stopped")
}
