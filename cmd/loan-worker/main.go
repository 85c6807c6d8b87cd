package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loan-approval/internal/api"
	"loan-approval/internal/classifier"
	"loan-approval/internal/common/camunda"
	"loan-approval/internal/common/config"
	"loan-approval/internal/common/logger"
	"loan-approval/internal/common/observability"
	"loan-approval/internal/decisions"
	"loan-approval/internal/evaluation"
	"loan-approval/internal/features"
	"loan-approval/internal/intake"
	"loan-approval/pkg/registry"

	ela "loan-approval/internal/workers/lending/evaluate-loan-application"
	rld "loan-approval/internal/workers/lending/record-loan-decision"
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
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loan worker...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Schema and model: no serving without both ---
	schemaVersion := cfg.Model.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = registry.DefaultVersion
	}
	schema, err := features.LoadSchema(schemaVersion)
	if err != nil {
		zapLog.Fatal("feature schema failed startup assertion", zap.Error(err))
	}

	model, err := classifier.Load(cfg.Model, schema)
	if err != nil {
		zapLog.Fatal("model load failed", zap.Error(err), zap.String("path", cfg.Model.Path))
	}
	defer model.Close()
	zapLog.Info("Model loaded",
		zap.String("modelVersion", model.Version()),
		zap.String("schemaVersion", schema.Version),
		zap.Int("features", schema.Len()),
	)

	parser, err := intake.NewPayloadParser(schema)
	if err != nil {
		zapLog.Fatal("payload schema failed to compile", zap.Error(err))
	}

	svcOpts := []evaluation.Option{evaluation.WithObservability(obs)}
	checks := map[string]api.Pinger{}
	var apiOpts []api.HandlerOption

	// --- Redis verdict cache ---
	if cfg.Cache.Enabled {
		rdb := decisions.NewRedisClient(cfg.Database.Redis)
		cache := decisions.NewRedisVerdictCache(rdb, time.Duration(cfg.Cache.TTL)*time.Second, cfg.Cache.KeyPrefix)
		err = retryWithBackoff(func() error {
			return cache.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		svcOpts = append(svcOpts, evaluation.WithCache(cache))
		checks["redis"] = cache
		zapLog.Info("Redis connected successfully")
	}

	// --- PostgreSQL decision store ---
	var store *decisions.PostgresStore
	if cfg.Database.Postgres.Enabled {
		var db *sql.DB
		err = retryWithBackoff(func() error {
			var err error
			if db == nil {
				if db, err = decisions.OpenPostgres(cfg.Database.Postgres); err != nil {
					return err
				}
			}
			return db.PingContext(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}

		store = decisions.NewPostgresStore(db, log)
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("decision schema setup failed", zap.Error(err))
		}
		svcOpts = append(svcOpts, evaluation.WithRecorder(store))
		apiOpts = append(apiOpts, api.WithDecisions(store))
		checks["postgres"] = store
		zapLog.Info("PostgreSQL connected successfully")
	}

	svc := evaluation.NewService(features.NewEncoder(schema), model, log, svcOpts...)

	// --- Zeebe workers ---
	var (
		zeebe   *camunda.Client
		workers []*camunda.CamundaWorker
	)
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks["zeebe"] = zeebe
		zapLog.Info("Zeebe client connected successfully")

		workers = startWorkers(cfg, zeebe, svc, parser, store, log, zapLog)
		zapLog.Info("Workers registered", zap.Int("count", len(workers)))
	}

	for name, p := range checks {
		apiOpts = append(apiOpts, api.WithHealthCheck(name, p))
	}

	// --- HTTP API ---
	app := api.NewApp(cfg.Server, api.NewHandler(svc, parser, log, apiOpts...), log)
	go func() {
		zapLog.Info("API listening", zap.String("address", cfg.Server.APIAddress))
		if err := app.Listen(cfg.Server.APIAddress); err != nil {
			zapLog.Error("API server failed", zap.Error(err))
		}
	}()

	// --- Health & Metrics Server ---
	healthSrv := &http.Server{
		Addr:              cfg.Server.HealthAddress,
		Handler:           newHealthMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.HealthAddress))
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zapLog.Error("API shutdown failed", zap.Error(err))
	}
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Health server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Loan worker stopped")
}

func startWorkers(
	cfg *config.Config,
	zeebe *camunda.Client,
	svc *evaluation.Service,
	parser *intake.PayloadParser,
	store *decisions.PostgresStore,
	log logger.Logger,
	zapLog *zap.Logger,
) []*camunda.CamundaWorker {
	var workers []*camunda.CamundaWorker

	if config.IsWorkerEnabled(cfg, ela.TaskType) {
		wcfg := ela.LoadConfig(cfg)
		if err := wcfg.Validate(); err != nil {
			zapLog.Fatal("invalid worker config", zap.String("taskType", ela.TaskType), zap.Error(err))
		}
		handler := ela.NewHandler(wcfg, svc, parser, log)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      ela.TaskType,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       wcfg.Timeout,
		}, handler, log))
	}

	if config.IsWorkerEnabled(cfg, rld.TaskType) {
		if store == nil {
			zapLog.Warn("record worker needs postgres, skipping", zap.String("taskType", rld.TaskType))
			return workers
		}
		wcfg := rld.LoadConfig(cfg)
		if err := wcfg.Validate(); err != nil {
			zapLog.Fatal("invalid worker config", zap.String("taskType", rld.TaskType), zap.Error(err))
		}
		handler := rld.NewHandler(wcfg, store, parser, log)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      rld.TaskType,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       wcfg.Timeout,
		}, handler, log))
	}

	return workers
}
