package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"campus/internal/api"
	"campus/internal/audit"
	"campus/internal/config"
	"campus/internal/httpmiddleware"
	"campus/internal/logger"
	"campus/internal/queue"
	"campus/internal/records"
	"campus/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	var redisClient *store.Redis
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		msgs, err := mem.Consume(ctx)
		if err != nil {
			return err
		}
		go audit.Run(ctx, msgs, log.With().Str("component", "audit").Logger())
		q = mem
	} else {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	r := api.NewRouter(api.Deps{
		Records:      records.NewService(repo, cfg.BcryptCost),
		Queue:        q,
		Limiter:      httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		SigningKey:   cfg.JWTSigningKey,
		AccessTTL:    cfg.AccessTTL,
		RedisHealthy: redisClient.Healthy,
		Log:          log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Str("queue", cfg.QueueBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced shutdown")
	}

	log.Info().Msg("server exited")
	return nil
}

func openRepository(ctx context.Context, cfg config.App, log zerolog.Logger) (records.Repository, func(), error) {
	if cfg.StoreBackend == "memory" {
		log.Warn().Msg("using in-memory store; records are lost on exit")
		return store.NewMemory(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := store.NewDB(connectCtx, cfg.DatabaseURL)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, err
	}
	if err := db.Migrate(connectCtx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.NewPostgres(db.Client), func() { _ = db.Close() }, nil
}
