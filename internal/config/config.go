// Package config loads environment configuration for the explorer client.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all environment-level configuration for the explorer client
type Config struct {
	API       APIConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// APIConfig holds explorer API connection settings
type APIConfig struct {
	Server  string // empty unless CONTRACTSCAN_SERVER is set
	APIKey  string
	Timeout time.Duration
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// RateLimitConfig holds client-side rate limiting settings
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	CleanupMinutes    int
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	Enabled  bool
	Textfile string // written after each command when set
}

// DefaultServer is the API root used when no flag, env var or config file names one
const DefaultServer = "http://localhost:8080/api"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			Server:  getEnv("CONTRACTSCAN_SERVER", ""),
			APIKey:  getEnv("CONTRACTSCAN_API_KEY", ""),
			Timeout: getEnvDuration("CONTRACTSCAN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("CONTRACTSCAN_LOG_LEVEL", "warn"),
			Format: getEnv("CONTRACTSCAN_LOG_FORMAT", "text"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("CONTRACTSCAN_RATE_LIMIT_RPS", 0),
			BurstSize:         getEnvInt("CONTRACTSCAN_RATE_LIMIT_BURST", 5),
			CleanupMinutes:    getEnvInt("CONTRACTSCAN_RATE_LIMIT_CLEANUP_MINUTES", 10),
		},
		Metrics: MetricsConfig{
			Enabled:  getEnvBool("CONTRACTSCAN_METRICS_ENABLED", false),
			Textfile: getEnv("CONTRACTSCAN_METRICS_FILE", ""),
		},
	}

	// A positive rate turns limiting on
	cfg.RateLimit.Enabled = cfg.RateLimit.RequestsPerSecond > 0

	// Asking for a metrics file implies collecting metrics
	if cfg.Metrics.Textfile != "" {
		cfg.Metrics.Enabled = true
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
