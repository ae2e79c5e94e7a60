package main

import (
	"context"
	stdlog "log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpapi "github.com/citysun/sunshine-tracker/internal/api/http"
	"github.com/citysun/sunshine-tracker/internal/config"
	"github.com/citysun/sunshine-tracker/internal/logger"
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

	st, err := store.Open(store.Config{DSN: cfg.DSN()}, log)
	if err != nil {
		log.Fatalw("failed to open store", "error", err)
	}

	app := httpapi.NewServer(st)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorw("server stopped", "error", err)
		}
	}()
	log.Infow("read api listening", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
}
