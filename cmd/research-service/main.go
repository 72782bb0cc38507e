// cmd/research-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"opportunity-research/internal/common/config"
	"opportunity-research/internal/common/database"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/common/observability"
	"opportunity-research/internal/completion"
	"opportunity-research/internal/pipeline"
	"opportunity-research/internal/providers"
	"opportunity-research/internal/server"
	extractmetadata "opportunity-research/internal/stages/extract-metadata"
	scoreopportunity "opportunity-research/internal/stages/score-opportunity"
	synthesizeprices "opportunity-research/internal/stages/synthesize-prices"
	"opportunity-research/internal/store"
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting research service...",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

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

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

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

	// --- Session store stack ---
	pgStore := store.NewPostgresStore(pg, log)
	if err := pgStore.InitSchema(ctx); err != nil {
		zapLog.Fatal("schema init failed", zap.Error(err))
	}
	cacheTTL := time.Duration(cfg.Database.Redis.CacheTTL) * time.Second
	sessionStore := store.NewCachedStore(pgStore, redisClient, cacheTTL, log)
	history := store.NewHistoryIndex(esClient, cfg.Database.Elasticsearch.Index, log)

	// --- Clients and stages ---
	completionClient := completion.NewClient(completion.ConfigFrom(cfg.Completion), log)
	providerClient := providers.NewClient(providers.ConfigFrom(cfg.Providers), log)

	extractor := extractmetadata.NewHandler(extractmetadata.ConfigFrom(cfg.Stages.ExtractMetadata), completionClient, log)
	synthesizer := synthesizeprices.NewHandler(synthesizeprices.ConfigFrom(cfg.Stages.SynthesizePrices), completionClient, log)
	scorer := scoreopportunity.NewHandler(scoreopportunity.ConfigFrom(cfg.Stages.ScoreOpportunity), completionClient, log)

	researchPipeline := pipeline.New(extractor, providerClient, synthesizer, scorer, sessionStore, history, obs, log)

	// --- HTTP server ---
	srv := server.NewHTTPServer(cfg.Server, server.New(researchPipeline, sessionStore, history, log).Handler())

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Research service stopped")
}
