package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kb-solutions/crazy-server/internal/cache"
	"github.com/kb-solutions/crazy-server/internal/config"
	"github.com/kb-solutions/crazy-server/internal/escrow"
	"github.com/kb-solutions/crazy-server/internal/game"
	"github.com/kb-solutions/crazy-server/internal/server"
	"github.com/kb-solutions/crazy-server/internal/store"
	"github.com/kb-solutions/crazy-server/internal/wallet"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.WithError(err).Fatal("database unreachable")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, action history disabled")
			rdb = nil
		}
	}

	st := store.NewPostgresStore(pool)
	wc := wallet.NewHTTPClient(cfg.WalletBaseURL, cfg.WalletPassKey, cfg.WalletTimeout, log)
	es := escrow.New(wc, st, log)
	hist := cache.NewPublisher(rdb)

	svc := game.NewService(st, es, hist, log)
	svc.TurnTimeout = cfg.TurnTimeout
	go svc.RunTimeoutScheduler(ctx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(svc, st, log).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
	}()

	log.WithField("addr", cfg.ListenAddr).Info("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server failed")
	}
	log.Info("server stopped")
}
