package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-engage/internal/api"
	"go-engage/internal/api/handler"
	"go-engage/internal/config"
	"go-engage/internal/coordinator"
	"go-engage/internal/core/ports"
	"go-engage/internal/core/postgres/repository"
	"go-engage/internal/engagement"
	redisinfra "go-engage/internal/infrastructure/redis"
	"go-engage/internal/logging/logkeys"
	"go-engage/internal/metrics"
	"go-engage/internal/service"
	"go-engage/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/micromdm/nanolib/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func serve(parent context.Context, cfg *config.Config, logger log.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(logkeys.Message, "starting engagement service")

	// 1. Database
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	store := repository.NewStore(db)
	logger.Info(logkeys.Message, "database connected", "host", cfg.DB.Host, "db", cfg.DB.Name)

	// 2. Redis: event bus, job queue, state cache
	rdb, err := redisinfra.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.PoolSize)
	if err != nil {
		return err
	}
	defer rdb.Close()
	bus := redisinfra.NewRedisEventBus(rdb, logger.With("component", "event_bus"))
	queue := redisinfra.NewRedisQueue(rdb, cfg.Worker.PollTimeout)
	var cache ports.StateCache
	if cfg.StateCache.Enable {
		cache = redisinfra.NewRedisStateCache(rdb, cfg.StateCache.TTL)
	}
	logger.Info(logkeys.Message, "redis connected", "addr", cfg.Redis.Addr, "state_cache", cfg.StateCache.Enable)

	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 4. Services
	validator := engagement.NewValidator(engagement.NewSchemaCache())
	engagementSvc := service.NewEngagementService(store, bus, cache, validator, m, logger.With("component", "engagements"))
	handlers := api.Handlers{
		Collections:   handler.NewCollectionHandler(service.NewCollectionService(store, logger)),
		Workflows:     handler.NewWorkflowHandler(service.NewWorkflowService(store, logger)),
		Engagements:   handler.NewEngagementHandler(engagementSvc),
		Assignments:   handler.NewAssignmentHandler(service.NewAssignmentService(store, logger)),
		Subscriptions: handler.NewSubscriptionHandler(service.NewSubscriptionService(store, logger)),
	}

	// 5. Background: coordinator and worker pool
	coord := coordinator.NewCoordinator(queue, bus, logger.With("component", "coordinator"),
		coordinator.WithSweep(store.Assignments(), cfg.Worker.SweepInterval))
	coordErrors := make(chan error, 1)
	go func() {
		coordErrors <- coord.Start(ctx)
	}()

	pool := worker.NewWorker(queue, worker.InitRegistry(store, logger), cfg.Worker.MaxAttempts, logger.With("component", "worker"))
	pool.StartPool(ctx, cfg.Worker.Concurrency)

	// 6. HTTP
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewRouter(handlers, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(logkeys.Message, "server starting", "address", cfg.HTTP.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case err := <-coordErrors:
		if err != nil {
			runErr = fmt.Errorf("coordinator: %w", err)
		}
	case <-ctx.Done():
		logger.Info(logkeys.Message, "shutdown signal received")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Info(logkeys.Message, "server shutdown error", logkeys.Error, err)
		if err := server.Close(); err != nil {
			logger.Info(logkeys.Message, "server close error", logkeys.Error, err)
		}
	}
	pool.Wait()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info(logkeys.Message, "server stopped gracefully")
	return runErr
}
