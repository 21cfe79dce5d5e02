// cmd/routing-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/aws"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/camunda"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/config"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/database"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/observability"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/notify"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/routing"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/scoring"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/store"
	"github.com/newbihanigroup-creator/khaacho-sub002/pkg/registry"

	// Routing Workers (3)
	co "github.com/newbihanigroup-creator/khaacho-sub002/internal/workers/routing/commit-order"
	rv "github.com/newbihanigroup-creator/khaacho-sub002/internal/workers/routing/rank-vendors"
	ro "github.com/newbihanigroup-creator/khaacho-sub002/internal/workers/routing/route-order"

	// Scoring Workers (2)
	rve "github.com/newbihanigroup-creator/khaacho-sub002/internal/workers/scoring/record-vendor-event"
	usw "github.com/newbihanigroup-creator/khaacho-sub002/internal/workers/scoring/update-scoring-weights"

	// Data Access Workers (1)
	qvs "github.com/newbihanigroup-creator/khaacho-sub002/internal/workers/data-access/query-vendor-score"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting routing manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("routing-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS notification clients ---
	var snsPublisher notify.SNSPublisher
	if cfg.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		snsPublisher = snsClient
	}
	var sesSender notify.SESSender
	if cfg.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		sesSender = sesClient
	}

	// --- Load activity registry for payload validation ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err), zap.String("path", cfg.Registry.Path))
	}
	zapLog.Info("Activity registry loaded", zap.Int("activities", len(reg.Activities)))

	// --- Stores ---
	cacheTTL := time.Duration(cfg.Scoring.CacheTTL) * time.Millisecond
	offerStore := store.NewOfferStore(pg.DB)
	scoreStore := store.NewScoreStore(pg.DB, redis.Client, cacheTTL, log)
	eventStore := store.NewEventStore(pg.DB)
	decisionStore := store.NewDecisionStore(pg.DB, esClient.Client, cfg.Routing.DecisionIndex, log)

	// --- Scoring engine ---
	weightsProvider, err := scoring.NewWeightsProvider(cfg.Scoring.Weights)
	if err != nil {
		zapLog.Fatal("scoring weights rejected", zap.Error(err))
	}
	updater := scoring.NewUpdater(eventStore, scoreStore, scoring.NewRuleBased(), weightsProvider,
		scoring.UpdaterConfig{
			WindowDays:          cfg.Scoring.WindowDays,
			LateResponseMinutes: cfg.Scoring.LateResponseMinutes,
		}, log)

	sweeper := scoring.NewSweeper(updater, scoreStore, eventStore, eventStore,
		scoring.SweeperConfig{
			Interval:    time.Duration(cfg.Scoring.SweepInterval) * time.Millisecond,
			Concurrency: cfg.Scoring.SweepConcurrency,
		}, obs, log)

	// --- Routing engine ---
	ranker := routing.NewRanker(offerStore, routing.RankerConfig{
		MinOverallScore: cfg.Routing.MinOverallScore,
		TopN:            cfg.Routing.TopN,
	}, log)
	committer := routing.NewCommitter(pg.DB,
		time.Duration(cfg.Routing.LockTimeout)*time.Millisecond, log)
	notifier := notify.New(snsPublisher, sesSender, notify.Config{
		TopicARN:  cfg.AWS.SNS.TopicARN,
		FromEmail: cfg.AWS.SES.FromEmail,
		OpsEmails: cfg.AWS.SES.OpsEmails,
	}, log)
	pipeline := routing.NewPipeline(ranker, committer, decisionStore, updater, notifier, weightsProvider,
		routing.PipelineConfig{
			MaxAttempts:  cfg.Routing.MaxAttempts,
			RetryBackoff: time.Duration(cfg.Routing.RetryBackoff) * time.Millisecond,
		}, obs, log)

	errorHandler := errors.NewErrorHandler(log)

	// --- Register workers ---
	var workers []*camunda.Worker

	// Routing Workers (3)
	if cfg.Workers[ro.TaskType].Enabled {
		handler := ro.NewHandler(
			&ro.Config{Timeout: time.Duration(cfg.Workers[ro.TaskType].Timeout) * time.Millisecond},
			pipeline, errorHandler, inputSchema(reg, ro.TaskType), log,
		)
		workers = append(workers, startWorker(zeebeClient, ro.TaskType, cfg.Workers[ro.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[rv.TaskType].Enabled {
		handler := rv.NewHandler(
			&rv.Config{Timeout: time.Duration(cfg.Workers[rv.TaskType].Timeout) * time.Millisecond},
			ranker, errorHandler, inputSchema(reg, rv.TaskType), log,
		)
		workers = append(workers, startWorker(zeebeClient, rv.TaskType, cfg.Workers[rv.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[co.TaskType].Enabled {
		handler := co.NewHandler(
			&co.Config{Timeout: time.Duration(cfg.Workers[co.TaskType].Timeout) * time.Millisecond},
			committer, errorHandler, inputSchema(reg, co.TaskType), log,
		)
		workers = append(workers, startWorker(zeebeClient, co.TaskType, cfg.Workers[co.TaskType], handler.Handle, zapLog))
	}

	// Scoring Workers (2)
	if cfg.Workers[rve.TaskType].Enabled {
		handler := rve.NewHandler(
			&rve.Config{Timeout: time.Duration(cfg.Workers[rve.TaskType].Timeout) * time.Millisecond},
			updater, errorHandler, inputSchema(reg, rve.TaskType), log,
		)
		workers = append(workers, startWorker(zeebeClient, rve.TaskType, cfg.Workers[rve.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[usw.TaskType].Enabled {
		handler := usw.NewHandler(
			&usw.Config{Timeout: time.Duration(cfg.Workers[usw.TaskType].Timeout) * time.Millisecond},
			weightsProvider, errorHandler, inputSchema(reg, usw.TaskType), log,
		)
		workers = append(workers, startWorker(zeebeClient, usw.TaskType, cfg.Workers[usw.TaskType], handler.Handle, zapLog))
	}

	// Data Access Workers (1)
	if cfg.Workers[qvs.TaskType].Enabled {
		handler := qvs.NewHandler(
			&qvs.Config{Timeout: time.Duration(cfg.Workers[qvs.TaskType].Timeout) * time.Millisecond},
			scoreStore, errorHandler, inputSchema(reg, qvs.TaskType), log,
		)
		workers = append(workers, startWorker(zeebeClient, qvs.TaskType, cfg.Workers[qvs.TaskType], handler.Handle, zapLog))
	}

	zapLog.Info("All 6 workers registered successfully")

	// --- Periodic score sweep ---
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go sweeper.Run(sweepCtx)
	zapLog.Info("Score sweep loop started",
		zap.Int("interval_ms", cfg.Scoring.SweepInterval),
		zap.Int("concurrency", cfg.Scoring.SweepConcurrency),
	)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stopSweep()

	for _, w := range workers {
		w.Close()
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Routing manager stopped gracefully")
}

// inputSchema returns the registry input schema for a task type, or nil
// when the activity is not registered (validation then accepts anything).
func inputSchema(reg *registry.ActivityRegistry, taskType string) map[string]interface{} {
	for _, a := range reg.Activities {
		if a.TaskType == taskType {
			return a.InputSchema
		}
	}
	return nil
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) *camunda.Worker {
	return camunda.OpenWorker(client, taskType, wcfg.MaxJobsActive,
		time.Duration(wcfg.Timeout)*time.Millisecond, handlerFunc, log)
}
