package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sketch-party/internal/config"
	"sketch-party/internal/db"
	"sketch-party/internal/game"
	"sketch-party/internal/logger"
	"sketch-party/internal/server"
	"sketch-party/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	sessions := store.NewSessionStore(openDatabase(cfg))
	cache := openCache(cfg)
	defer cache.Close()

	registry := game.NewRegistry(game.Settings{
		DrawingTime: cfg.DrawingSeconds,
		MaxPlayers:  cfg.MaxPlayers,
	})
	srv := server.New(registry, sessions, cache, cfg)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("sketch-party server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Close()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// openDatabase returns nil when no database is configured or reachable;
// the server then runs without persistence.
func openDatabase(cfg config.Config) *gorm.DB {
	if cfg.DatabaseURL == "" {
		log.Info().Msg("DATABASE_URL not set, persistence disabled")
		return nil
	}
	conn, err := db.Open(cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second,
	})
	if err != nil {
		log.Error().Err(err).Msg("database connection failed, persistence disabled")
		return nil
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(conn); err != nil {
			log.Error().Err(err).Msg("database migration failed, persistence disabled")
			return nil
		}
	}
	return conn
}

func openCache(cfg config.Config) store.SnapshotCache {
	if cfg.RedisURL == "" {
		return store.NewNoopCache()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cache, err := store.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, snapshot cache disabled")
		return store.NewNoopCache()
	}
	log.Info().Msg("redis snapshot cache enabled")
	return cache
}
