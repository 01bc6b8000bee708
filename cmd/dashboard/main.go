package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/alarm-dashboard-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/alarm-dashboard-service/internal/adapter/kafka"
	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/loader"
	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/source"
	"github.com/couchcryptid/alarm-dashboard-service/internal/config"
	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/observability"
	"github.com/couchcryptid/alarm-dashboard-service/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	cal, err := domain.NewCalendar(domain.DefaultLayout, cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	opener := source.NewOpener(cfg.SourceTimeout, logger)
	sources := loader.New(opener, loader.Locations{
		Topology:       cfg.TopologySource,
		TopologyObject: cfg.TopologyObject,
		Alarms:         cfg.AlarmsSource,
		Brigades:       cfg.BrigadesSource,
	}, cal, logger, metrics)

	// Summary publishing is feature-flagged via KAFKA_ENABLED.
	var renderers []pipeline.Renderer
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger, metrics)
		renderers = append(renderers, publisher)
		logger.Info("kafka summary publishing enabled", "topic", cfg.KafkaSummaryTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka summary publishing disabled")
	}

	p := pipeline.New(sources, logger, metrics, pipeline.Settings{
		InitialMonth: cfg.InitialMonth,
		Limits:       pipeline.Limits(cfg.Limits),
		CacheSize:    cfg.SummaryCacheSize,
	}, renderers...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load sources. A failure leaves the service up and reporting it.
	go func() {
		if err := p.Load(ctx); err != nil {
			logger.Error("dashboard unavailable", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
