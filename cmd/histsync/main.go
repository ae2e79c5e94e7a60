package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/citysun/sunshine-tracker/internal/catalog"
	"github.com/citysun/sunshine-tracker/internal/config"
	"github.com/citysun/sunshine-tracker/internal/histsync"
	"github.com/citysun/sunshine-tracker/internal/logger"
	"github.com/citysun/sunshine-tracker/internal/provider"
	"github.com/citysun/sunshine-tracker/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("failed to build logger: %v", err)
	}
	defer log.Sync()

	cities, err := catalog.Load(cfg.CitiesFile)
	if err != nil {
		log.Fatalw("failed to load city catalog", "error", err)
	}

	st, err := store.Open(store.Config{DSN: cfg.DSN()}, log)
	if err != nil {
		log.Fatalw("failed to open store", "error", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	archive := provider.NewArchiveProvider(httpClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sync := histsync.New(cities, archive, st, cfg.HistoryEpoch, cfg.CityDelay, log)
	if err := sync.Start(ctx, cfg.SyncInterval); err != nil {
		log.Fatalw("failed to start synchronizer", "error", err)
	}
	defer sync.Stop()
	log.Infow("synchronizer started", "cities", len(cities), "interval", cfg.SyncInterval)

	<-ctx.Done()
	log.Info("synchronizer stopped")
}
