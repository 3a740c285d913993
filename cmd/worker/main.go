package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/Oswi777/Portal-Fisioterapia/internal/cache"
	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/log"
	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
	"github.com/Oswi777/Portal-Fisioterapia/internal/queue"
	"github.com/Oswi777/Portal-Fisioterapia/internal/tasks"
	"github.com/Oswi777/Portal-Fisioterapia/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Worker.LogLevel)

	if !cfg.Redis.Enabled() {
		logger.Fatal().Msg("worker requires redis.addr")
	}
	if !cfg.Mail.Enabled() {
		logger.Fatal().Msg("worker requires mail configuration")
	}

	cfg.Telemetry.ServiceName = "fisiolife-worker"
	shutdownTelemetry, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init telemetry")
	}

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := tasks.NewProcessor(notify.NewSMTPMailer(cfg.Mail), cfg.Mail.Recipient(), logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Worker.ClaimInterval,
		cfg.Worker.MaxDeliveries,
		logger,
		processor,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown error")
	}
}
