package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/idgen"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/server"
	"github.com/oggyb/muzz-match/internal/service/chat"
	"github.com/oggyb/muzz-match/internal/service/explore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()
	log.Info("starting application", "env", cfg.App.ENV)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids, err := idgen.NewAllocator(cfg.ID.WorkerID, idgen.WithEpoch(time.UnixMilli(cfg.ID.EpochMS).UTC()))
	if err != nil {
		return err
	}

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		return err
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = redisCache.Ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}

	appCtx := app.New(cfg, database, redisCache, ids, log, metrics.New(prometheus.DefaultRegisterer))

	if cfg.App.ENV == "development" {
		if _, err := db.SeedTestData(database, ids, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	grpcSrv := server.NewGRPCServer(cfg, log, appCtx.Tokens,
		explore.NewRegistrar(appCtx),
		chat.NewRegistrar(appCtx.Chat),
	)

	// /healthz turns green only once gRPC holds its listener
	httpSrv := server.NewHTTPServer(cfg.HTTP.Addr(), grpcSrv.Ready, prometheus.DefaultGatherer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http listen start", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(grpcSrv.ListenAndServe)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.Shutdown(shutdownCtx)
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("service stopped")
	return err
}
