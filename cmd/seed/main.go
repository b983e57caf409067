package main

import (
	"context"
	"flag"
	"os"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/config"
	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/seed"
)

func main() {
	users := flag.Int("users", 20, "number of demo users to create")
	flag.Parse()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()

	appCtx := app.New(cfg, database, redisCache, log, nil)
	if _, err := seed.Demo(context.Background(), appCtx, *users); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("Seeding completed.")
}
