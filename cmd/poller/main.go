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
	"github.com/citysun/sunshine-tracker/internal/logger"
	"github.com/citysun/sunshine-tracker/internal/poller"
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

	// Bounded timeout on all outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	current := provider.NewCurrentProvider(httpClient, cfg.APIKey)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := poller.New(cities, current, st, cfg.PollInterval, cfg.PassDelay, cfg.ErrorDelay, log)
	log.Infow("poller starting", "cities", len(cities))
	p.Run(ctx)
	log.Info("poller stopped")
}
