package ygggo_mockdb

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestEnv_OverridesDefaults(t *testing.T) {
	t.Setenv(EnvLogEnabled, "true")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvTelemetryEnabled, "1")
	t.Setenv(EnvMetricsEnabled, "false")

	cfg := ConfigFromEnv()
	if !cfg.Logging.Enabled {
		t.Fatalf("logging should be enabled")
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Fatalf("level=%v", cfg.Logging.Level)
	}
	if !cfg.Telemetry.Enabled {
		t.Fatalf("telemetry should be enabled")
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("metrics should be disabled")
	}
}

func TestEnv_InvalidValuesIgnored(t *testing.T) {
	t.Setenv(EnvLogEnabled, "sometimes")
	t.Setenv(EnvLogLevel, "loud")

	cfg := ConfigFromEnv()
	if cfg.Logging.Enabled {
		t.Fatalf("invalid bool should be ignored")
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Fatalf("invalid level should be ignored, got %v", cfg.Logging.Level)
	}
}

func TestEnv_LoadDotEnvFile(t *testing.T) {
	// t.Setenv registers cleanup; the empty value leaves the variable unset for godotenv
	t.Setenv(EnvMetricsEnabled, "")
	os.Unsetenv(EnvMetricsEnabled)
	t.Setenv(EnvLogLevel, "error")

	path := filepath.Join(t.TempDir(), "test.env")
	content := EnvMetricsEnabled + "=true\n" + EnvLogLevel + "=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	cfg := ConfigFromEnv()
	if !cfg.Metrics.Enabled {
		t.Fatalf("metrics should be enabled from the env file")
	}
	// variables already set win over the file
	if cfg.Logging.Level != slog.LevelError {
		t.Fatalf("level=%v", cfg.Logging.Level)
	}
}
