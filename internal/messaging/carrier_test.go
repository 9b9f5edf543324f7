package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}}}
	carrier := NewHeaderCarrier(&msg)

	carrier.Set("traceparent", "a")
	carrier.Set("traceparent", "b")

	if got := carrier.Get("traceparent"); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
	if got := carrier.Get("missing"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
	if len(msg.Headers) != 2 {
		t.Fatalf("expected 2 headers on the message, got %d", len(msg.Headers))
	}
	keys := carrier.Keys()
	if keys[0] != "content-type" || keys[1] != "traceparent" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestHeaderCarrier_PropagatesTraceContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	propagator := propagation.TraceContext{}
	var msg kafka.Message
	propagator.Inject(ctx, NewHeaderCarrier(&msg))

	extracted := trace.SpanContextFromContext(propagator.Extract(context.Background(), NewHeaderCarrier(&msg)))
	if extracted.TraceID() != traceID {
		t.Errorf("expected trace id %s, got %s", traceID, extracted.TraceID())
	}
	if extracted.SpanID() != spanID {
		t.Errorf("expected span id %s, got %s", spanID, extracted.SpanID())
	}
}
