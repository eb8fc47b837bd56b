// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/vgmguess/internal/cache"
	"github.com/jason-s-yu/vgmguess/internal/config"
	"github.com/jason-s-yu/vgmguess/internal/game"
	"github.com/jason-s-yu/vgmguess/internal/gateway"
	"github.com/jason-s-yu/vgmguess/internal/handlers"
	"github.com/jason-s-yu/vgmguess/internal/middleware"
	"github.com/jason-s-yu/vgmguess/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.StoreBackend == config.StoreRedis || cfg.HistoryEnabled {
		if rdb, err = cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
			return err
		}
		defer rdb.Close()
	}

	var roomStore store.RoomStore
	switch cfg.StoreBackend {
	case config.StoreRedis:
		roomStore = store.NewRedisStore(rdb, store.WithTTL(cfg.RoomTTL))
		logger.WithField("addr", cfg.RedisAddr).Info("using redis room store")
	default:
		mem := store.NewMemoryStore()
		go mem.RunJanitor(ctx, time.Minute, cfg.RoomTTL, logger)
		roomStore = mem
		logger.Info("using in-memory room store")
	}

	engine := game.NewEngine(cat, logger)
	engine.DefaultRounds = cfg.DefaultRounds

	var gwOpts []gateway.Option
	if cfg.HistoryEnabled {
		gwOpts = append(gwOpts, gateway.WithEvents(cache.NewPublisher(rdb, cfg.HistorianQueue)))
		logger.WithField("queue", cfg.HistorianQueue).Info("publishing room history")
	}
	gw := gateway.New(roomStore, engine, logger, gwOpts...)
	defer gw.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.RunPruner(ctx, time.Minute)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handlers.NewRouter(gw, logger, handlers.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			Limiter:        limiter,
			TrustProxy:     cfg.TrustProxy,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
