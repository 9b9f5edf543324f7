package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/orderflow-insights/internal/config"
	"github.com/joao-fontenele/orderflow-insights/internal/digest"
	"github.com/joao-fontenele/orderflow-insights/internal/logging"
	"github.com/joao-fontenele/orderflow-insights/internal/messaging"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
	"github.com/joao-fontenele/orderflow-insights/internal/telemetry"
)

const serviceName = "digest"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.LoggingConfig{}, serviceName).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging, serviceName)

	if err := cfg.RequireDatabase(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireKafka(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	db, err := telemetry.OpenDB(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	producer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Digest.Topic)
	defer func() { _ = producer.Close() }()

	publisher := digest.NewPublisher(store.New(db, cfg.Database.QueryTimeout), producer, logger)

	logger.Info("starting digest publisher", "topic", cfg.Digest.Topic, "interval", cfg.Digest.Interval)
	publisher.Run(ctx, cfg.Digest.Interval)
	logger.Info("shutting down")
}
