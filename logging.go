package ygggo_mockdb

import (
	"context"
	"log/slog"
	"os"
)

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Enabled bool
	Level   slog.Level
}

func newDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// EnableLogging enables or disables structured logging for this factory
func (f *MockClientFactory) EnableLogging(enabled bool) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggingEnabled = enabled
	if enabled && f.logger == nil {
		f.logger = newDefaultLogger(f.config.Logging.Level)
	}
}

// SetLogger sets a custom logger for this factory
func (f *MockClientFactory) SetLogger(logger *slog.Logger) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
}

func (f *MockClientFactory) activeLogger() *slog.Logger {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loggingEnabled {
		return nil
	}
	return f.logger
}

// logEvent records one connection, command or transaction event. Simulated
// failures are logged at warn level, everything else at debug.
func (f *MockClientFactory) logEvent(ctx context.Context, event, connection, command string, err error) {
	logger := f.activeLogger()
	if logger == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []slog.Attr{
		slog.String("event", event),
		slog.String("connection", connection),
	}
	if command != "" {
		attrs = append(attrs, slog.String("command", command))
	}

	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
		logger.LogAttrs(ctx, slog.LevelWarn, "mock database event", attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "success"))
	logger.LogAttrs(ctx, slog.LevelDebug, "mock database event", attrs...)
}
