package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vampire-Chan/VideoVerse/internal/bootstrap"
	"github.com/Vampire-Chan/VideoVerse/internal/config"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/server"
	"github.com/Vampire-Chan/VideoVerse/pkg/database"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DSN(), !cfg.IsProduction())
	if err != nil {
		logging.Fatal().Err(err).Msg("database connection failed")
	}
	if err := bootstrap.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("migration failed")
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdmin(ctx, db, bootstrap.AdminSeed{
			Username: cfg.SeedAdminUsername,
			Email:    cfg.SeedAdminEmail,
			Password: cfg.SeedAdminPassword,
		}); err != nil {
			logging.Fatal().Err(err).Msg("failed to seed admin user")
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Fatal().Err(err).Msg("redis unreachable")
		}
		defer redisClient.Close()
	}

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build server")
	}

	if err := srv.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("server stopped")
}
