package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"campus/internal/audit"
	"campus/internal/config"
	"campus/internal/logger"
	"campus/internal/queue"
	"campus/internal/store"
)

// Worker consumes record events from redis and writes the audit log.
func main() {
	cfg := config.Load()
	log := logger.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat).With().Str("component", "audit").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal().Msg("QUEUE_BACKEND=memory runs the audit consumer inside the api process; nothing to do")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet; consumer will keep retrying")
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	log.Info().Msg("worker started, waiting for record events")
	audit.Run(ctx, messages, log)
	log.Info().Msg("worker stopped")
}
