package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/conquest/internal/auth"
	"github.com/freeeve/conquest/internal/config"
	"github.com/freeeve/conquest/internal/handler"
	"github.com/freeeve/conquest/internal/logger"
	"github.com/freeeve/conquest/internal/middleware"
	"github.com/freeeve/conquest/internal/repository"
	"github.com/freeeve/conquest/internal/repository/postgres"
	redisrepo "github.com/freeeve/conquest/internal/repository/redis"
	"github.com/freeeve/conquest/internal/service"
	"github.com/freeeve/conquest/pkg/conquest"
)

const (
	shutdownTimeout = 10 * time.Second
	publishQueue    = 4096
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	closeLog := logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})
	defer closeLog()

	checks := make(map[string]handler.Checker)

	// Redis mirror and spectator feed are optional.
	var (
		cache     repository.SnapshotCache
		spectator handler.Spectator
	)
	if cfg.RedisURL != "" {
		rc, err := redisrepo.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rc.Close()
		cache, spectator = rc, rc
		checks["redis"] = handler.CheckFunc(rc.Ping)
		log.Info().Msg("Connected to Redis")
	} else {
		log.Warn().Msg("REDIS_URL not set, state mirroring disabled")
	}

	var archive repository.MatchArchive
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrating postgres: %w", err)
		}
		archive = postgres.NewArchiveRepo(db)
		checks["postgres"] = handler.CheckFunc(archive.Ping)
		log.Info().Msg("Connected to Postgres")
	} else {
		log.Warn().Msg("DATABASE_URL not set, match archive disabled")
	}

	var jwtMgr *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtMgr = auth.NewJWTManager(cfg.JWTSecret)
	}

	hub := handler.NewHub()
	reg := conquest.NewRegistry(nil, cfg.Rules())
	pub := service.NewPublisher(cache, archive, cfg.SnapshotTTL, publishQueue)
	engine := service.NewEngine(service.Config{
		TickPeriod:        cfg.TickPeriod,
		MinPlayers:        cfg.MinPlayers,
		ChatHistory:       cfg.ChatHistory,
		ResourceSyncTicks: cfg.ResourceSyncTicks,
		GameRetention:     cfg.GameRetention,
	}, reg, hub, pub)

	router := handler.NewRouter(handler.RouterConfig{
		WS:          handler.NewWSHandler(hub, engine, middleware.OriginAllowed(cfg.CORSOrigins)),
		Games:       handler.NewGameHandler(engine, archive, spectator),
		Health:      handler.NewHealthHandler(engine, hub, checks),
		JWT:         jwtMgr,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return pub.Run(gctx) })
	g.Go(func() error { return engine.Run(gctx) })

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Bool("auth", jwtMgr != nil).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().
		Int64("publishDropped", pub.Dropped()).
		Int64("publishFailed", pub.Failed()).
		Msg("Server stopped")
	return nil
}
