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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"audient.app/internal/auth"
	"audient.app/internal/cache"
	"audient.app/internal/config"
	"audient.app/internal/fieldops"
	"audient.app/internal/httpapi"
	"audient.app/internal/migrate"
	"audient.app/internal/obs"
	"audient.app/internal/store/pg"
	"audient.app/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "audient-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := obs.Init(cfg.Env, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer obs.Sync()
	obs.InitMetrics()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store fieldops.Store
		probe httpapi.ReadyProbe
	)
	if cfg.PostgresDSN != "" {
		pgStore, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer pgStore.Close()
		applied, err := migrate.NewManager(pgStore.DB(), pg.Migrations()).Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			log.Info("migrations applied", zap.Strings("files", applied))
		}
		store = pgStore
		probe.DB = pgStore.DB()
	} else {
		log.Warn("AUDIENT_PG_DSN not set, using in-memory store")
		store = fieldops.NewInMemory()
	}

	issuer, err := auth.NewIssuer(cfg.AuthSecret, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	hub := stream.New(32)
	svcOpts := []fieldops.Option{
		fieldops.WithTokenIssuer(issuer),
		fieldops.WithLoginEvents(hub),
		fieldops.WithAdminSecret(cfg.AdminSecret),
		fieldops.WithLogger(log.Named("fieldops")),
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		svcOpts = append(svcOpts, fieldops.WithConfigCache(cache.NewOrgConfigCache(rdb, cfg.ConfigCacheTTL)))
		probe.Redis = rdb
	}
	svc := fieldops.NewService(store, svcOpts...)

	api := httpapi.New(svc, issuer,
		httpapi.WithReadyProbe(probe),
		httpapi.WithLoginStream(hub),
		httpapi.WithVersion(version),
		httpapi.WithLogger(log.Named("http")),
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
		httpapi.WithCORSOrigins(cfg.CORSOrigins),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting audient-api", zap.String("version", version), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
