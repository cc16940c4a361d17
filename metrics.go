package ygggo_mockdb

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricsInstrumentationName = "github.com/yggai/ygggo_mockdb"
)

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool
}

// Metrics holds all the metric instruments
type Metrics struct {
	commandsTotal     metric.Int64Counter
	resultsDequeued   metric.Int64Counter
	connectionsOpened metric.Int64Counter
	transactionsTotal metric.Int64Counter
}

// EnableMetrics enables or disables metrics collection for this factory
func (f *MockClientFactory) EnableMetrics(enabled bool) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metricsEnabled = enabled
	if enabled && f.metrics == nil {
		f.initMetricsLocked()
	}
}

// SetMeterProvider sets a custom meter provider for metrics
func (f *MockClientFactory) SetMeterProvider(provider metric.MeterProvider) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meterProvider = provider
	if f.metricsEnabled {
		f.initMetricsLocked()
	}
}

// initMetricsLocked initializes all metric instruments; f.mu must be held.
func (f *MockClientFactory) initMetricsLocked() {
	var meter metric.Meter
	if f.meterProvider != nil {
		meter = f.meterProvider.Meter(metricsInstrumentationName)
	} else {
		meter = otel.Meter(metricsInstrumentationName)
	}

	m := &Metrics{}
	m.commandsTotal, _ = meter.Int64Counter(
		"ygggo_mockdb_commands_total",
		metric.WithDescription("Total number of mock command executions"),
	)
	m.resultsDequeued, _ = meter.Int64Counter(
		"ygggo_mockdb_results_dequeued_total",
		metric.WithDescription("Total number of results consumed from command queues"),
	)
	m.connectionsOpened, _ = meter.Int64Counter(
		"ygggo_mockdb_connections_opened_total",
		metric.WithDescription("Total number of mock connection open attempts"),
	)
	m.transactionsTotal, _ = meter.Int64Counter(
		"ygggo_mockdb_transactions_total",
		metric.WithDescription("Total number of mock transaction outcomes"),
	)
	f.metrics = m
}

func (f *MockClientFactory) activeMetrics() *Metrics {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.metricsEnabled {
		return nil
	}
	return f.metrics
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// recordCommand records one Execute* call and whether its result was scripted.
func (f *MockClientFactory) recordCommand(ctx context.Context, operation string, scripted bool, err error) {
	m := f.activeMetrics()
	if m == nil {
		return
	}
	m.commandsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", statusOf(err)),
	))
	m.resultsDequeued.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("scripted", scripted),
	))
}

// recordOpen records a connection open attempt.
func (f *MockClientFactory) recordOpen(ctx context.Context, err error) {
	m := f.activeMetrics()
	if m == nil {
		return
	}
	m.connectionsOpened.Add(ctx, 1, metric.WithAttributes(attribute.String("status", statusOf(err))))
}

// recordTransaction records a commit or rollback outcome.
func (f *MockClientFactory) recordTransaction(ctx context.Context, outcome string, err error) {
	m := f.activeMetrics()
	if m == nil {
		return
	}
	m.transactionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("status", statusOf(err)),
	))
}
