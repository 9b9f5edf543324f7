// Package digest publishes periodic business summaries and reacts to them.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/orderflow-insights/internal/analytics"
	"github.com/joao-fontenele/orderflow-insights/internal/domain"
)

// MessageKey is the Kafka key of every digest, so all digests share a
// partition and arrive in order.
const MessageKey = "digest"

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Publisher struct {
	kpis     *analytics.KPIAggregator
	insights *analytics.InsightEngine
	events   EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewPublisher(q analytics.Querier, events EventPublisher, logger *slog.Logger) *Publisher {
	return &Publisher{
		kpis:     analytics.NewKPIAggregator(q),
		insights: analytics.NewInsightEngine(q),
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Publish computes the current KPIs and insights across all areas and
// publishes them as one digest.
func (p *Publisher) Publish(ctx context.Context) (domain.DigestEvent, error) {
	kpis, err := p.kpis.Compute(ctx)
	if err != nil {
		return domain.DigestEvent{}, fmt.Errorf("digest kpis: %w", err)
	}

	insights, err := p.insights.Find(ctx, analytics.FocusAll)
	if err != nil {
		return domain.DigestEvent{}, fmt.Errorf("digest insights: %w", err)
	}

	event := domain.DigestEvent{
		ID:          uuid.NewString(),
		GeneratedAt: p.now().UTC(),
		KPIs:        kpis,
		Insights:    insights,
	}

	if err := p.events.Publish(ctx, MessageKey, event); err != nil {
		return domain.DigestEvent{}, fmt.Errorf("publish digest %s: %w", event.ID, err)
	}

	p.logger.Info("digest published", "digest_id", event.ID, "insights", len(insights))
	return event, nil
}

// Run publishes once immediately and then every interval until ctx is done.
// A failed round is logged and retried on the next tick.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.Publish(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("failed to publish digest", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
