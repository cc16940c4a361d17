package ygggo_mockdb

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MockClientFactory is the scripting registry and provider factory of the mock
// provider. Tests create one per test (or fixture), script results on it, and
// hand it to the code under test as a DatabaseFactory.
//
// Results are routed by connection string and command text, both compared
// case-insensitively. The factory also records every connection, command and
// parameter it creates so tests can assert on what the caller built.
type MockClientFactory struct {
	mu          sync.Mutex
	connections map[string]*ConnectionResults

	connectionsCreated []*MockConnection
	commandsCreated    []*MockCommand
	parametersCreated  []*MockParameter

	config Config

	loggingEnabled bool
	logger         *slog.Logger

	telemetryEnabled bool
	tracerProvider   trace.TracerProvider

	metricsEnabled bool
	meterProvider  metric.MeterProvider
	metrics        *Metrics
}

// NewMockClientFactory creates an empty factory. An optional Config switches on
// logging, tracing and metrics.
func NewMockClientFactory(configs ...Config) *MockClientFactory {
	cfg := DefaultConfig()
	if len(configs) > 0 {
		cfg = configs[0]
	}
	f := &MockClientFactory{
		connections: make(map[string]*ConnectionResults),
		config:      cfg,
	}
	if cfg.Logging.Enabled {
		f.EnableLogging(true)
	}
	if cfg.Telemetry.Enabled {
		f.EnableTelemetry(true)
	}
	if cfg.Metrics.Enabled {
		f.EnableMetrics(true)
	}
	return f
}

// Config returns the configuration the factory was created with.
func (f *MockClientFactory) Config() Config { return f.config }

func connectionKey(connectionString string) string {
	if connectionString == "" {
		connectionString = DefaultConnectionString
	}
	return strings.ToLower(connectionString)
}

// GetOrCreate returns the script bucket for connectionString, creating it when absent.
// An empty connection string addresses the default bucket.
func (f *MockClientFactory) GetOrCreate(connectionString string) *ConnectionResults {
	key := connectionKey(connectionString)
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.connections[key]
	if !ok {
		r = NewConnectionResults()
		f.connections[key] = r
	}
	return r
}

// GetOrCreateCommand returns the result queue for (connectionString, commandText).
func (f *MockClientFactory) GetOrCreateCommand(connectionString, commandText string) *CommandQueue {
	return f.GetOrCreate(connectionString).Command(commandText)
}

// SetConnectionResults replaces the bucket of connectionString.
func (f *MockClientFactory) SetConnectionResults(connectionString string, results *ConnectionResults) {
	if results == nil {
		results = NewConnectionResults()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connections[connectionKey(connectionString)] = results
}

// DefaultResults returns the default bucket, used by connections that were never scripted.
func (f *MockClientFactory) DefaultResults() *ConnectionResults {
	return f.GetOrCreate(DefaultConnectionString)
}

// ConnectionResultsCount returns the number of buckets.
func (f *MockClientFactory) ConnectionResultsCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connections)
}

// ConnectionStrings returns the normalized keys of all buckets, sorted.
func (f *MockClientFactory) ConnectionStrings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.connections))
	for k := range f.connections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lookup resolves the bucket used at execution time. It does not create the
// bucket of an unscripted connection; those fall back to the default bucket.
func (f *MockClientFactory) lookup(connectionString string) *ConnectionResults {
	f.mu.Lock()
	r, ok := f.connections[connectionKey(connectionString)]
	f.mu.Unlock()
	if ok {
		return r
	}
	return f.DefaultResults()
}

// nextResults dequeues the next scripted result for the key. The boolean reports
// whether a scripted result was found; otherwise an empty result is returned.
func (f *MockClientFactory) nextResults(connectionString, commandText string) (*CommandResults, bool) {
	if r := f.lookup(connectionString).next(commandText); r != nil {
		return r, true
	}
	return &CommandResults{}, false
}

// CreateConnection returns a new closed connection and records it.
func (f *MockClientFactory) CreateConnection() DatabaseConn {
	return f.NewConnection("")
}

// NewConnection returns a new closed connection for connectionString and records it.
func (f *MockClientFactory) NewConnection(connectionString string) *MockConnection {
	c := NewMockConnection(f, connectionString)
	f.mu.Lock()
	f.connectionsCreated = append(f.connectionsCreated, c)
	f.mu.Unlock()
	return c
}

// CreateCommand returns a new command without a connection and records it.
func (f *MockClientFactory) CreateCommand() DatabaseCommand {
	return f.NewCommand(nil)
}

// NewCommand returns a new command bound to conn and records it.
func (f *MockClientFactory) NewCommand(conn *MockConnection) *MockCommand {
	c := NewMockCommand(conn)
	f.mu.Lock()
	f.commandsCreated = append(f.commandsCreated, c)
	f.mu.Unlock()
	return c
}

// CreateParameter returns a new parameter and records it.
func (f *MockClientFactory) CreateParameter() DatabaseParameter {
	p := &MockParameter{}
	f.mu.Lock()
	f.parametersCreated = append(f.parametersCreated, p)
	f.mu.Unlock()
	return p
}

// CreateConnectionStringBuilder returns an empty builder.
func (f *MockClientFactory) CreateConnectionStringBuilder() *ConnectionStringBuilder {
	return NewConnectionStringBuilder()
}

// ConnectionsCreated returns the connections created through the factory, oldest first.
func (f *MockClientFactory) ConnectionsCreated() []*MockConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockConnection(nil), f.connectionsCreated...)
}

// CommandsCreated returns the commands created through the factory, oldest first.
func (f *MockClientFactory) CommandsCreated() []*MockCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockCommand(nil), f.commandsCreated...)
}

// ParametersCreated returns the parameters created through the factory, oldest first.
func (f *MockClientFactory) ParametersCreated() []*MockParameter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockParameter(nil), f.parametersCreated...)
}

// ResetMockResults drops every script and the creation histories.
func (f *MockClientFactory) ResetMockResults() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connections = make(map[string]*ConnectionResults)
	f.resetHistoryLocked()
}

// ResetHistory clears the creation histories but keeps the scripts.
func (f *MockClientFactory) ResetHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetHistoryLocked()
}

func (f *MockClientFactory) resetHistoryLocked() {
	f.connectionsCreated = nil
	f.commandsCreated = nil
	f.parametersCreated = nil
}

// CloseConnections closes every connection created through the factory and
// returns the combined failures, e.g. scripted rollback errors of open transactions.
func (f *MockClientFactory) CloseConnections() error {
	var result *multierror.Error
	for _, c := range f.ConnectionsCreated() {
		if c.State() != StateOpen {
			continue
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// observe wraps one simulated operation with tracing and logging.
func (f *MockClientFactory) observe(ctx context.Context, operation, connection, statement string, fn func(context.Context) error) error {
	ctx, span := f.startSpan(ctx, operation, statement)
	err := fn(ctx)
	f.finishSpan(span, err)
	f.logEvent(ctx, operation, connection, statement, err)
	return err
}
