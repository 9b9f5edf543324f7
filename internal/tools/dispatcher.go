// Package tools is the tool-invocation boundary: a tool name and an argument
// map come in, a text payload and an error flag go out.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/orderflow-insights/internal/analytics"
	"github.com/joao-fontenele/orderflow-insights/internal/catalog"
	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

const instrumentationName = "github.com/joao-fontenele/orderflow-insights/internal/tools"

var tracer = otel.Tracer(instrumentationName)

// Backend is the store the tools read from.
type Backend interface {
	Query(ctx context.Context, query string, args ...any) ([]store.Row, error)
	QueryReadOnly(ctx context.Context, query string) ([]store.Row, error)
}

type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

type toolFunc func(ctx context.Context, args Args) (string, error)

type Dispatcher struct {
	backend    Backend
	questions  *analytics.QuestionDispatcher
	kpis       *analytics.KPIAggregator
	reports    *analytics.ReportGenerator
	insights   *analytics.InsightEngine
	dashboards *analytics.Dashboards
	catalog    *catalog.Catalog
	tools      map[string]toolFunc
	logger     *slog.Logger

	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

func NewDispatcher(backend Backend, logger *slog.Logger) (*Dispatcher, error) {
	meter := otel.Meter(instrumentationName)

	calls, err := meter.Int64Counter("tool.calls",
		metric.WithDescription("Tool invocations by tool and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool.calls counter: %w", err)
	}

	duration, err := meter.Float64Histogram("tool.call.duration",
		metric.WithDescription("Tool invocation latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool.call.duration histogram: %w", err)
	}

	d := &Dispatcher{
		backend:    backend,
		questions:  analytics.NewQuestionDispatcher(backend, analytics.DefaultPatterns()),
		kpis:       analytics.NewKPIAggregator(backend),
		reports:    analytics.NewReportGenerator(backend),
		insights:   analytics.NewInsightEngine(backend),
		dashboards: analytics.NewDashboards(backend),
		catalog:    catalog.New(backend),
		logger:     logger,
		calls:      calls,
		duration:   duration,
	}

	d.tools = map[string]toolFunc{
		ToolAskBusinessQuestion:    d.askBusinessQuestion,
		ToolGetKPIs:                d.getKPIs,
		ToolGenerateBusinessReport: d.generateBusinessReport,
		ToolFindInsights:           d.findInsights,
		ToolGetSalesAnalytics:      d.getSalesAnalytics,
		ToolGetCustomerInsights:    d.getCustomerInsights,
		ToolGetInventoryAlerts:     d.getInventoryAlerts,
		ToolExecuteQuery:           d.executeQuery,
		ToolGetTableSchema:         d.getTableSchema,
		ToolGetDatabaseStats:       d.getDatabaseStats,
	}

	return d, nil
}

// Call runs one tool. Every failure, whatever its kind, comes back as a
// Result with IsError set and a message prefixed with "Error:".
func (d *Dispatcher) Call(ctx context.Context, name string, args Args) Result {
	callID := uuid.NewString()
	start := time.Now()

	tool, known := d.tools[name]
	toolLabel := name
	if !known {
		toolLabel = "unknown"
	}

	ctx, span := tracer.Start(ctx, "tool "+toolLabel,
		trace.WithAttributes(
			attribute.String("tool.name", name),
			attribute.String("tool.call_id", callID),
		),
	)
	defer span.End()

	var (
		text string
		err  error
	)
	if known {
		text, err = tool(ctx, args)
	} else {
		err = fmt.Errorf("%w: unknown tool %q", domain.ErrInvalidArgument, name)
	}

	elapsed := time.Since(start)
	kind := domain.ErrorKind(err)
	attrs := metric.WithAttributes(
		attribute.String("tool", toolLabel),
		attribute.String("outcome", kind),
	)
	d.calls.Add(ctx, 1, attrs)
	d.duration.Record(ctx, elapsed.Seconds(), attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		level := slog.LevelWarn
		if errors.Is(err, domain.ErrStore) || errors.Is(err, domain.ErrStoreUnavailable) || kind == "internal" {
			level = slog.LevelError
		}
		d.logger.Log(ctx, level, "tool call failed", "tool", name, "call_id", callID, "kind", kind, "duration", elapsed, "error", err)

		return Result{Text: "Error: " + err.Error(), IsError: true}
	}

	d.logger.Info("tool call completed", "tool", name, "call_id", callID, "duration", elapsed)
	return Result{Text: text}
}

func (d *Dispatcher) askBusinessQuestion(ctx context.Context, args Args) (string, error) {
	question, err := args.String("question", "")
	if err != nil {
		return "", err
	}

	answer, err := d.questions.Answer(ctx, question)
	if err != nil {
		return "", err
	}

	return render(fmt.Sprintf("Answer to: '%s'", question), answer.Rows)
}

func (d *Dispatcher) getKPIs(ctx context.Context, _ Args) (string, error) {
	kpis, err := d.kpis.Compute(ctx)
	if err != nil {
		return "", err
	}
	return render("Business KPIs:", kpis)
}

func (d *Dispatcher) generateBusinessReport(ctx context.Context, args Args) (string, error) {
	reportType, err := args.String("report_type", string(analytics.ReportSales))
	if err != nil {
		return "", err
	}
	period, err := args.String("period", "month")
	if err != nil {
		return "", err
	}

	report, err := d.reports.Generate(ctx, analytics.ReportType(reportType), period)
	if err != nil {
		return "", err
	}
	return render(fmt.Sprintf("%s - %s", report.Title, period), report)
}

func (d *Dispatcher) findInsights(ctx context.Context, args Args) (string, error) {
	area, err := args.String("focus_area", string(analytics.FocusAll))
	if err != nil {
		return "", err
	}

	insights, err := d.insights.Find(ctx, analytics.FocusArea(area))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Automatic insights (%s):\n", area)
	for _, insight := range insights {
		b.WriteString("\n• ")
		b.WriteString(insight)
	}
	return b.String(), nil
}

func (d *Dispatcher) getSalesAnalytics(ctx context.Context, args Args) (string, error) {
	period, err := args.String("period", "month")
	if err != nil {
		return "", err
	}

	sales, err := d.dashboards.SalesAnalytics(ctx, period)
	if err != nil {
		return "", err
	}
	return render(fmt.Sprintf("Sales analytics (%s):", period), sales)
}

func (d *Dispatcher) getCustomerInsights(ctx context.Context, _ Args) (string, error) {
	insights, err := d.dashboards.CustomerInsights(ctx)
	if err != nil {
		return "", err
	}
	return render("Customer insights:", insights)
}

func (d *Dispatcher) getInventoryAlerts(ctx context.Context, _ Args) (string, error) {
	alerts, err := d.dashboards.InventoryAlerts(ctx)
	if err != nil {
		return "", err
	}
	return render("Inventory alerts:", alerts)
}

func (d *Dispatcher) executeQuery(ctx context.Context, args Args) (string, error) {
	query, err := args.String("query", "")
	if err != nil {
		return "", err
	}

	query = strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		return "", domain.ErrRejectedQuery
	}

	rows, err := d.backend.QueryReadOnly(ctx, query)
	if err != nil {
		return "", err
	}
	return render("Query executed successfully.\nResults:", rows)
}

func (d *Dispatcher) getTableSchema(ctx context.Context, args Args) (string, error) {
	table, err := args.String("table_name", "")
	if err != nil {
		return "", err
	}

	columns, err := d.catalog.TableSchema(ctx, table)
	if err != nil {
		return "", err
	}
	return render(fmt.Sprintf("Schema for table '%s':", table), columns)
}

func (d *Dispatcher) getDatabaseStats(ctx context.Context, _ Args) (string, error) {
	stats, err := d.catalog.DatabaseStats(ctx)
	if err != nil {
		return "", err
	}
	return render("Database statistics:", stats)
}

func render(header string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return header + "\n\n" + string(data), nil
}
