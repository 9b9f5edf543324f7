package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/messaging"
)

// Notifier reacts to published digests. It logs every insight and, when a
// webhook URL is set, forwards the digest there as JSON.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewNotifier(webhookURL string, client *http.Client, logger *slog.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: client,
		logger:     logger,
	}
}

// Handle processes one digest payload. Undecodable payloads are reported as
// messaging.ErrMalformed so the consumer skips them.
func (n *Notifier) Handle(ctx context.Context, payload []byte) error {
	var event domain.DigestEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: decode digest: %w", messaging.ErrMalformed, err)
	}
	if event.ID == "" {
		return fmt.Errorf("%w: digest without id", messaging.ErrMalformed)
	}

	level := slog.LevelInfo
	if event.KPIs.LowStockProducts > 0 {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "digest received",
		"digest_id", event.ID,
		"generated_at", event.GeneratedAt,
		"active_customers", event.KPIs.ActiveCustomers,
		"completed_orders", event.KPIs.CompletedOrders,
		"low_stock_products", event.KPIs.LowStockProducts,
	)
	for _, insight := range event.Insights {
		n.logger.Log(ctx, level, "insight", "digest_id", event.ID, "text", insight)
	}

	if n.webhookURL == "" {
		return nil
	}
	if err := n.forward(ctx, payload); err != nil {
		n.logger.Error("failed to forward digest", "error", err, "digest_id", event.ID)
		return fmt.Errorf("forward digest %s: %w", event.ID, err)
	}

	n.logger.Info("digest forwarded", "digest_id", event.ID)
	return nil
}

func (n *Notifier) forward(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
