package database

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
)

// Open connects to postgres when a URL is configured and falls back to the sqlite file otherwise.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (DB, error) {
	if cfg.UsePostgres() {
		pool, err := NewPostgresPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to postgres")
		return NewPostgresDB(pool), nil
	}

	busyTimeout := cfg.SQLiteBusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = DefaultSQLiteBusyTimeout
	}
	db, err := OpenSQLiteWithBusyTimeout(ctx, cfg.SQLitePath, busyTimeout)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("path", cfg.SQLitePath).Msg("using sqlite database")
	return db, nil
}
