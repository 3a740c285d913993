package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/cache"
	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/handlers"
	"github.com/Oswi777/Portal-Fisioterapia/internal/jobs"
	"github.com/Oswi777/Portal-Fisioterapia/internal/log"
	"github.com/Oswi777/Portal-Fisioterapia/internal/middleware"
	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
	"github.com/Oswi777/Portal-Fisioterapia/internal/seed"
	"github.com/Oswi777/Portal-Fisioterapia/internal/server"
	"github.com/Oswi777/Portal-Fisioterapia/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "")

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init telemetry")
	}

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	if result, err := seed.Run(ctx, db, cfg.Admin, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed database")
	} else if result.ServicesInserted > 0 || result.AdminCreated {
		logger.Info().Int("services", result.ServicesInserted).Bool("admin", result.AdminCreated).Msg("seed applied")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	notifier, dispatcher := newNotifier(cfg, redisClient, logger)
	limiter := newLoginLimiter(cfg, redisClient)

	handlerSet := handlers.NewHandlerSet(logger, db, redisClient, notifier, limiter, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Jobs, handlerSet.AuthService(), handlerSet.BookingService(), notifier, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dispatcher, db, redisClient, shutdownTelemetry)
}

// newNotifier returns the stream publisher in stream mode, the in-process dispatcher when mail
// is configured, and a no-op otherwise. The dispatcher is returned separately so it can be drained.
func newNotifier(cfg *config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) (notify.Notifier, *notify.Dispatcher) {
	if cfg.Notify.Mode == "stream" {
		logger.Info().Str("stream", cfg.Redis.Stream).Msg("notifications published to redis stream")
		return notify.NewStreamNotifier(redisClient, cfg.Redis.Stream, logger), nil
	}
	if !cfg.Mail.Enabled() {
		logger.Warn().Msg("mail not configured; booking notifications disabled")
		return notify.Nop{}, nil
	}
	dispatcher := notify.NewDispatcher(
		notify.NewSMTPMailer(cfg.Mail),
		cfg.Mail.Recipient(),
		cfg.Notify.QueueSize,
		cfg.Notify.Workers,
		cfg.Mail.Timeout,
		logger,
	)
	return dispatcher, dispatcher
}

func newLoginLimiter(cfg *config.AppConfig, redisClient *redis.Client) middleware.Limiter {
	if redisClient != nil {
		return middleware.NewRedisLimiter(redisClient, cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow, "ratelimit:login")
	}
	return middleware.NewMemoryLimiter(cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	dispatcher *notify.Dispatcher,
	db database.DB,
	redisClient *redis.Client,
	shutdownTelemetry telemetry.ShutdownFunc,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop(shutdownCtx)

	if dispatcher != nil {
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("notification queue not fully drained")
		}
	}

	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown error")
	}

	logger.Info().Msg("server exited cleanly")
}
