package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/courier/internal/cache"
	"github.com/sadopc/courier/internal/config"
	"github.com/sadopc/courier/internal/history"
	"github.com/sadopc/courier/internal/logging"
	"github.com/sadopc/courier/internal/metrics"
	"github.com/sadopc/courier/internal/proxy"
	"github.com/sadopc/courier/internal/repository"
	"github.com/sadopc/courier/internal/repository/memory"
	"github.com/sadopc/courier/internal/repository/postgres"
	"github.com/sadopc/courier/internal/repository/sqlite"
	"github.com/sadopc/courier/internal/runner"
	"github.com/sadopc/courier/internal/scripting"
	"github.com/sadopc/courier/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the courier-server HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logging.SetLevelFromString(cfg.LogLevel)
	log := logging.Op()

	var (
		collections  repository.Collections
		folders      repository.Folders
		requests     repository.Requests
		environments repository.Environments
		globals      repository.GlobalVariables
	)

	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pg.Close()
		collections, folders, requests = pg.Collections, pg.Folders, pg.Requests
		environments, globals = pg.Environments, pg.GlobalVariables
		log.Info("using postgres repository", "dsn_configured", true)
	} else {
		mem := memory.New()
		collections, folders, requests = mem.Collections, mem.Folders, mem.Requests
		environments, globals = mem.Environments, mem.GlobalVariables
		log.Info("postgres_dsn not set, using in-memory repository for collections/folders/requests/environments/globals")
	}

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening sqlite: %w", err)
	}
	defer db.Close()
	historyStore := db.History()
	runStore := db.Runs()

	if cfg.RedisAddr != "" {
		l1 := cache.NewInMemoryCache()
		l2 := cache.NewRedisCache(cache.RedisCacheConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		tiered := cache.NewTieredCache(l1, l2, cfg.CacheTTL)
		environments = cache.NewCachedEnvironments(environments, tiered)
		globals = cache.NewCachedGlobalVariables(globals, tiered)
		log.Info("caching globals/environments", "l1", "in-memory", "l2", "redis", "redis_addr", cfg.RedisAddr)
	} else {
		l1 := cache.NewInMemoryCache()
		environments = cache.NewCachedEnvironments(environments, l1)
		globals = cache.NewCachedGlobalVariables(globals, l1)
		log.Info("caching globals/environments", "l1", "in-memory", "l2", "none")
	}

	m := metrics.New(cfg.MetricsNamespace)

	rec := history.NewRecorder(historyStore)

	executor := proxy.New()
	executor.Metrics = m

	engine := scripting.NewEngine(cfg.PreScriptTimeout, cfg.PostScriptTimeout)
	engine.Metrics = m

	rn := runner.New(collections, folders, requests, environments, globals, runStore, rec, executor, engine)
	rn.Metrics = m

	if n, err := runner.ReapOrphans(ctx, runStore, cfg.OrphanRunThreshold); err != nil {
		log.Error("orphaned run reap failed", "error", err)
	} else if n > 0 {
		log.Info("reaped orphaned runs", "count", n)
	}

	srv := &server.Server{
		Collections:       collections,
		Folders:           folders,
		Requests:          requests,
		Environments:      environments,
		Globals:           globals,
		HistoryStore:      historyStore,
		Runs:              runStore,
		Executor:          executor,
		History:           rec,
		Runner:            rn,
		Metrics:           m,
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}

	addr, shutdown, err := srv.Start(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	log.Info("courier-server listening", "addr", addr)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	log.Info("shutting down")
	shutdown()
	time.Sleep(100 * time.Millisecond) // let in-flight connections drain their final write
	return nil
}
