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

	"fitcheck-workers/internal/api"
	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/common/cache"
	"fitcheck-workers/internal/common/camunda"
	"fitcheck-workers/internal/common/config"
	"fitcheck-workers/internal/common/database"
	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/observability"
	"fitcheck-workers/internal/engines/recommend"
	"fitcheck-workers/internal/engines/search"
	"fitcheck-workers/internal/engines/video"
	"fitcheck-workers/internal/engines/visual"
	"fitcheck-workers/internal/orchestrator"
	"fitcheck-workers/internal/providers/exa"
	"fitcheck-workers/internal/providers/fal"
	"fitcheck-workers/internal/providers/gemini"
	"fitcheck-workers/pkg/registry"

	gov "fitcheck-workers/internal/workers/fitcheck/generate-outfits"
	gvd "fitcheck-workers/internal/workers/fitcheck/generate-videos"
	rsh "fitcheck-workers/internal/workers/fitcheck/recommend-shoes"
	spr "fitcheck-workers/internal/workers/fitcheck/search-products"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting fitcheck backend",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Artifact store ---
	store, err := artifacts.NewStore(ctx, cfg.Artifacts)
	if err != nil {
		zapLog.Fatal("artifact store init failed", zap.Error(err))
	}
	readiness := map[string]api.ReadinessCheck{
		"artifacts": func(ctx context.Context) error {
			_, err := store.Exists(ctx, artifacts.KindUpload, ".ready")
			return err
		},
	}

	// --- Search cache (optional) ---
	var searchCache *cache.SearchCache
	if cfg.Cache.Enabled {
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, search cache disabled", zap.Error(err))
			_ = redis.Close()
		} else {
			defer redis.Close()
			searchCache = cache.NewSearchCache(redis, config.GetDuration(cfg.Cache.SearchTTL), cfg.Cache.KeyPrefix, log)
			readiness["redis"] = redis.Ping
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Providers ---
	geminiClient := gemini.NewClient(gemini.NewConfig(cfg.APIs.Gemini), cfg.Breaker, log)
	falClient := fal.NewClient(fal.NewConfig(cfg.APIs.Fal), cfg.Breaker, log)
	exaClient := exa.NewClient(exa.NewConfig(cfg.APIs.Exa), cfg.Breaker, log)

	for name, ok := range map[string]bool{
		"gemini": geminiClient.Configured(),
		"fal":    falClient.Configured(),
		"exa":    exaClient.Configured(),
	} {
		if !ok {
			zapLog.Warn("provider not configured, results will degrade", zap.String("provider", name))
		}
	}

	// --- Engines and orchestrator ---
	pipeline := orchestrator.New(orchestrator.Deps{
		Store:       store,
		Recommender: recommend.NewEngine(geminiClient, cfg.Pipeline.MaxImageSize, log),
		Visualizer: visual.NewEngine(store, geminiClient, geminiClient, visual.Config{
			MaxImageSize: cfg.Pipeline.VizMaxImageSize,
			Width:        cfg.Pipeline.VizWidth,
			Height:       cfg.Pipeline.VizHeight,
		}, log),
		Videos:   video.NewEngine(store, falClient, log),
		Searcher: search.NewEngine(exaClient, searchCache, cfg.Pipeline.SearchLimit, log),
		Obs:      obs,
	}, orchestrator.ConfigFromApp(cfg.Pipeline), log)

	// --- Zeebe workers (optional) ---
	var workers *camunda.WorkerSet
	if cfg.Camunda.Enabled {
		zb, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFromApp(cfg.Camunda), zapLog)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zb.Close()
		zapLog.Info("Zeebe client connected successfully")
		readiness["zeebe"] = zb.HealthCheck

		reg, err := registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Fatal("activity registry load failed", zap.String("path", cfg.Registry.Path), zap.Error(err))
		}

		workers = camunda.NewWorkerSet(zb.GetClient(), zapLog)
		if err := startWorkers(cfg, workers, reg, pipeline, log); err != nil {
			zapLog.Fatal("worker registration failed", zap.Error(err))
		}
		if missing := reg.Missing(workers.Started()); len(missing) > 0 {
			zapLog.Warn("workers without registry entry", zap.Strings("taskTypes", missing))
		}
	}

	// --- HTTP API ---
	server := api.NewServer(api.Options{
		Pipeline:          pipeline,
		Store:             store,
		TextModel:         geminiClient,
		ModelName:         cfg.APIs.Gemini.TextModel,
		Search:            exaClient,
		Readiness:         readiness,
		Server:            cfg.Server,
		RecommendCount:    cfg.Pipeline.RecommendCount,
		AllowedExtensions: cfg.Artifacts.AllowedExtensions,
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if workers != nil {
		workers.Stop()
	}

	zapLog.Info("fitcheck backend stopped gracefully")
}

// startWorkers registers the four job workers, each guarded by its registry input schema.
func startWorkers(cfg *config.Config, ws *camunda.WorkerSet, reg *registry.ActivityRegistry, pipeline *orchestrator.Orchestrator, log logger.Logger) error {
	errorHandler := apperrors.NewErrorHandler(log)

	handlers := map[string]worker.JobHandler{
		rsh.TaskType: rsh.NewHandler(rsh.LoadConfig(config.GetWorkerConfig(cfg, rsh.TaskType), cfg.Pipeline), pipeline, log).Handle,
		gov.TaskType: gov.NewHandler(gov.LoadConfig(config.GetWorkerConfig(cfg, gov.TaskType)), pipeline, log).Handle,
		gvd.TaskType: gvd.NewHandler(gvd.LoadConfig(config.GetWorkerConfig(cfg, gvd.TaskType)), pipeline, log).Handle,
		spr.TaskType: spr.NewHandler(spr.LoadConfig(config.GetWorkerConfig(cfg, spr.TaskType)), pipeline, log).Handle,
	}

	for taskType, handler := range handlers {
		guarded, err := reg.Guard(taskType, handler, errorHandler)
		if err != nil {
			return fmt.Errorf("guard %s: %w", taskType, err)
		}
		ws.Start(taskType, config.GetWorkerConfig(cfg, taskType), guarded)
	}
	return nil
}
