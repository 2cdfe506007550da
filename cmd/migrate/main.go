package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"sketch-party/internal/config"
	"sketch-party/internal/db"
	"sketch-party/internal/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	create := flag.String("create", "", "scaffold a new migration with this name and exit")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory for -create")
	flag.Parse()

	if *create != "" {
		logger.Setup("info")
		files, err := db.CreateMigration(*dir, *create, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("create migration failed")
		}
		log.Info().Str("up", files.Up).Str("down", files.Down).Msg("created migration files")
		return
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	dsn := mustDatabaseURL(cfg)
	if *down > 0 {
		if err := db.MigrateDown(dsn, *down); err != nil {
			log.Fatal().Err(err).Msg("database rollback failed")
		}
	} else if err := db.MigrateUp(dsn); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	version, dirty, err := db.MigrationVersion(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("read migration version failed")
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database migrations applied")
}

func mustDatabaseURL(cfg config.Config) string {
	if cfg.DatabaseURL == "" {
		log.Error().Msg("DATABASE_URL is not set")
		os.Exit(1)
	}
	return cfg.DatabaseURL
}
