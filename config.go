package ygggo_mockdb

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLogEnabled       = "YGGGO_MOCKDB_LOG_ENABLED"
	EnvLogLevel         = "YGGGO_MOCKDB_LOG_LEVEL"
	EnvTelemetryEnabled = "YGGGO_MOCKDB_TELEMETRY_ENABLED"
	EnvMetricsEnabled   = "YGGGO_MOCKDB_METRICS_ENABLED"
)

// Config holds the observability settings of a MockClientFactory.
type Config struct {
	Logging   LoggingConfig
	Telemetry TelemetryConfig
	Metrics   MetricsConfig
}

// DefaultConfig returns a configuration with every observability feature off.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: slog.LevelInfo},
	}
}

// LoadEnv loads variables from the given dotenv files into the process
// environment. Without arguments it loads ./.env when that file exists.
// Variables already set are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// ConfigFromEnv returns DefaultConfig with environment overrides applied.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	applyEnv(&cfg)
	return cfg
}

// applyEnv overrides cfg with any YGGGO_MOCKDB_* variables that are set and valid.
func applyEnv(cfg *Config) {
	if v, ok := envBool(EnvLogEnabled); ok {
		cfg.Logging.Enabled = v
	}
	if s := strings.TrimSpace(os.Getenv(EnvLogLevel)); s != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(s)); err == nil {
			cfg.Logging.Level = lvl
		}
	}
	if v, ok := envBool(EnvTelemetryEnabled); ok {
		cfg.Telemetry.Enabled = v
	}
	if v, ok := envBool(EnvMetricsEnabled); ok {
		cfg.Metrics.Enabled = v
	}
}

func envBool(key string) (bool, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return v, true
}
