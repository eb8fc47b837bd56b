// cmd/historian/main.go drains room events from the Redis queue and persists
// them to PostgreSQL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/vgmguess/internal/cache"
	"github.com/jason-s-yu/vgmguess/internal/config"
	"github.com/jason-s-yu/vgmguess/internal/database"
	"github.com/jason-s-yu/vgmguess/internal/historian"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL (or PG_HOST) is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("schema")
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("redis")
	}
	defer rdb.Close()

	svc := historian.New(rdb, db, historian.Options{
		Queue:      cfg.HistorianQueue,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
		Inactivity: cfg.GameInactivity,
	}, logger)
	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Fatal("historian exited")
	}
	logger.Info("Historian shutdown complete.")
}
