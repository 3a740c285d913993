package main

import (
	"context"

	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/log"
	"github.com/Oswi777/Portal-Fisioterapia/internal/seed"
)

// seed creates the schema, the service catalog and the admin account, then exits.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "")
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	result, err := seed.Run(ctx, db, cfg.Admin, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}
	logger.Info().
		Int("services_inserted", result.ServicesInserted).
		Bool("admin_created", result.AdminCreated).
		Msg("seed completed")
}
