package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/config"
	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/realtime"
	"github.com/oggyb/matchchat/internal/seed"
	"github.com/oggyb/matchchat/internal/server"
	"github.com/oggyb/matchchat/internal/service/auth"
	"github.com/oggyb/matchchat/internal/service/match"
	"github.com/oggyb/matchchat/internal/service/message"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	appCtx := app.New(cfg, database, redisCache, log, nil)

	if cfg.App.ENV == "development" {
		if _, err := seed.Demo(context.Background(), appCtx, 20); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// services
	authSvc := auth.NewService(appCtx)
	matchSvc := match.NewService(appCtx)
	msgSvc := message.NewService(appCtx, matchSvc)

	// realtime
	gateway := realtime.NewGateway(appCtx, authSvc, msgSvc)
	socketServer := realtime.NewSocketServer(gateway)
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Error("socket.io server stopped", "err", err)
		}
	}()
	defer socketServer.Close()

	health := server.NewHealth(appCtx)
	requireAuth := auth.RequireAuth(authSvc)

	router := server.NewRouter(appCtx,
		server.RouterOptions{Health: health, Socket: socketServer},
		auth.NewRegistrar(authSvc),
		match.NewRegistrar(matchSvc, requireAuth),
		message.NewRegistrar(msgSvc, gateway, requireAuth),
	)
	httpServer := server.NewHTTPServer(cfg.HTTPAddr(), router)
	grpcServer := server.NewGRPCServer(health)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go health.Run(ctx, 15*time.Second)

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting HTTP server", "addr", cfg.HTTPAddr())
		errCh <- httpServer.Start()
	}()
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPCAddr())
		errCh <- server.StartGRPCServer(cfg, grpcServer)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "err", err)
		}
	}

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	grpcServer.GracefulStop()
	log.Info("server stopped")
}
