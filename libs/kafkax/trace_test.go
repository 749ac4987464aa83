package kafkax

import (
	"context"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func sampledContext(t *testing.T) context.Context {
	t.Helper()
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	if !sc.IsValid() {
		t.Fatal("span context is not valid")
	}
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestInjectTraceHeadersAppendsTraceparent(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	headers := InjectTraceHeaders(sampledContext(t), []kafka.Header{
		{Key: "event_id", Value: []byte("e-1")},
	})

	var traceparent string
	for _, h := range headers {
		if h.Key == "traceparent" {
			traceparent = string(h.Value)
		}
	}
	if traceparent == "" {
		t.Fatalf("traceparent header was not appended; headers = %v", headers)
	}
	if !strings.Contains(traceparent, "4bf92f3577b34da6a3ce929d0e0e4736") {
		t.Fatalf("traceparent does not carry the trace id: %q", traceparent)
	}
	if HeaderValue(headers, "event_id") != "e-1" {
		t.Fatal("existing headers must survive injection")
	}
}

func TestInjectTraceHeadersOverwritesExisting(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	headers := InjectTraceHeaders(sampledContext(t), []kafka.Header{
		{Key: "traceparent", Value: []byte("00-11111111111111111111111111111111-2222222222222222-01")},
	})

	seen := 0
	for _, h := range headers {
		if h.Key == "traceparent" {
			seen++
			if !strings.Contains(string(h.Value), "4bf92f3577b34da6a3ce929d0e0e4736") {
				t.Fatalf("stale traceparent was not overwritten: %q", h.Value)
			}
		}
	}
	if seen != 1 {
		t.Fatalf("expected exactly one traceparent header, got %d", seen)
	}
}

func TestExtractTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx := sampledContext(t)
	headers := InjectTraceHeaders(ctx, nil)

	got := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	want := trace.SpanContextFromContext(ctx)
	if trace.SpanContextFromContext(got).TraceID() != want.TraceID() {
		t.Fatal("extracted trace id does not match the injected one")
	}
}
