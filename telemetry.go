package ygggo_mockdb

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/yggai/ygggo_mockdb"
	instrumentationVersion = "v0.1.0"
)

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
}

// EnableTelemetry enables or disables OpenTelemetry tracing for this factory
func (f *MockClientFactory) EnableTelemetry(enabled bool) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.telemetryEnabled = enabled
}

// SetTracerProvider sets the provider used for spans; the global provider is used otherwise.
func (f *MockClientFactory) SetTracerProvider(tp trace.TracerProvider) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracerProvider = tp
}

func (f *MockClientFactory) tracer() (trace.Tracer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.telemetryEnabled {
		return nil, false
	}
	tp := f.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion)), true
}

// startSpan creates a new span with common database attributes
func (f *MockClientFactory) startSpan(ctx context.Context, operation, statement string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr, ok := f.tracer()
	if !ok {
		// non-recording span; finishSpan must never end a caller's span
		return ctx, trace.SpanFromContext(context.Background())
	}

	ctx, span := tr.Start(ctx, fmt.Sprintf("ygggo_mockdb.%s", operation))
	span.SetAttributes(
		attribute.String("db.system", "mock"),
		attribute.String("db.operation", operation),
	)
	if statement != "" {
		span.SetAttributes(attribute.String("db.statement", statement))
	}
	return ctx, span
}

// finishSpan completes a span with error handling
func (f *MockClientFactory) finishSpan(span trace.Span, err error) {
	if !span.IsRecording() {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
