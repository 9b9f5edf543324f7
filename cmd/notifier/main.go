package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/orderflow-insights/internal/config"
	"github.com/joao-fontenele/orderflow-insights/internal/digest"
	"github.com/joao-fontenele/orderflow-insights/internal/logging"
	"github.com/joao-fontenele/orderflow-insights/internal/messaging"
	"github.com/joao-fontenele/orderflow-insights/internal/telemetry"
)

const serviceName = "notifier"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.LoggingConfig{}, serviceName).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging, serviceName)

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

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	notifier := digest.NewNotifier(cfg.Digest.WebhookURL, httpClient, logger)

	consumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Digest.Topic, cfg.Digest.GroupID, logger)
	defer func() { _ = consumer.Close() }()

	logger.Info("starting digest notifier", "topic", cfg.Digest.Topic, "group_id", cfg.Digest.GroupID)
	if err := consumer.Consume(ctx, notifier.Handle); err != nil {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
