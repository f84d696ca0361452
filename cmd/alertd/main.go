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

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/rain-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rain-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/rain-alert-service/internal/adapter/openai"
	"github.com/couchcryptid/rain-alert-service/internal/adapter/postgres"
	"github.com/couchcryptid/rain-alert-service/internal/adapter/redisstore"
	"github.com/couchcryptid/rain-alert-service/internal/adapter/xpost"
	"github.com/couchcryptid/rain-alert-service/internal/config"
	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/engine"
	"github.com/couchcryptid/rain-alert-service/internal/governor"
	"github.com/couchcryptid/rain-alert-service/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	if cfg.PostEnabled {
		metrics.PostingEnabled.Set(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid display timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startupCancel()

	kv, err := redisstore.Connect(startupCtx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	store, err := postgres.Connect(startupCtx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureSchema(startupCtx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	var poster governor.Poster
	if cfg.PostEnabled {
		poster = xpost.NewClient(xpost.Credentials{
			APIKey:       cfg.XAPIKey,
			APISecret:    cfg.XAPISecret,
			AccessToken:  cfg.XAccessToken,
			AccessSecret: cfg.XAccessSecret,
		}, cfg.PostTimeout, logger)
		logger.Info("live posting enabled")
	} else {
		logger.Info("posting disabled, approved candidates will be dry-logged")
	}

	var formatter governor.Formatter
	if cfg.OpenAIKey != "" {
		formatter = openai.NewClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.FormatterTimeout, logger)
		logger.Info("primary formatter enabled", "model", cfg.OpenAIModel)
	} else {
		logger.Info("primary formatter disabled, using deterministic rendering")
	}

	gov := governor.New(kv, store, poster, formatter, governor.Policy{
		MinGap:           cfg.MinGap,
		DailyBudget:      cfg.DailyBudget,
		CycleCap:         cfg.CycleCap,
		Cooldown:         cfg.Cooldown,
		EtaShift:         cfg.EtaShift,
		HourlyCap:        cfg.HourlyCap,
		PostEnabled:      cfg.PostEnabled,
		PostTimeout:      cfg.PostTimeout,
		FormatterTimeout: cfg.FormatterTimeout,
	}, logger, metrics)

	rules := domain.StandardRules()
	if cfg.RuleProfile == "relaxed" {
		rules = domain.RelaxedRules()
	}
	triggers := domain.StandardTriggers()
	if cfg.TriggerProfile == "widened" {
		triggers = domain.WidenedTriggers()
	}

	eng := engine.New(reader, store, writer, gov, kv, engine.Options{
		Rules:     rules,
		Triggers:  triggers,
		Weights:   domain.DefaultScoreWeights(),
		Location:  loc,
		LeaseTTL:  cfg.LeaseTTL,
		BatchSize: cfg.FetchMaxBatch,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := eng.Run(ctx); err != nil {
			logger.Error("engine error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("postgres close error", "error", err)
	}
	if err := kv.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}
