package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application-wide configuration for the backtesting engine.
// Everything here is read from environment variables with sensible defaults,
// so the binaries run without any configuration at all.
type Config struct {
	// Price source endpoints. Overridable for tests and self-hosted mirrors.
	ExchangeBaseURL      string
	AggregatorBaseURL    string
	AltAggregatorBaseURL string

	HTTPTimeout time.Duration

	// Aggregator batching limits (requests per second / burst).
	AggregatorRate  float64
	AggregatorBurst int

	// Optional on-disk price cache. Empty CacheDir disables caching.
	CacheDir string
	CacheTTL time.Duration

	// Flat gas estimate charged per on-chain transaction (position open and
	// each rebalance), denominated in the same unit as the capital.
	GasPerTx float64

	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		ExchangeBaseURL:      "https://api.binance.com",
		AggregatorBaseURL:    "https://api.coingecko.com",
		AltAggregatorBaseURL: "https://min-api.cryptocompare.com",
		HTTPTimeout:          30 * time.Second,
		AggregatorRate:       0.5, // public tier allows ~30 calls/min
		AggregatorBurst:      2,
		CacheTTL:             6 * time.Hour,
		GasPerTx:             0.35,
		LogLevel:             "info",
		LogFormat:            "json",
	}

	if url := os.Getenv("EXCHANGE_API_URL"); url != "" {
		cfg.ExchangeBaseURL = url
	}
	if url := os.Getenv("AGGREGATOR_API_URL"); url != "" {
		cfg.AggregatorBaseURL = url
	}
	if url := os.Getenv("ALT_AGGREGATOR_API_URL"); url != "" {
		cfg.AltAggregatorBaseURL = url
	}
	cfg.HTTPTimeout = parseDurationEnv("HTTP_TIMEOUT", cfg.HTTPTimeout)
	if val := parseFloatEnv("AGGREGATOR_RATE", cfg.AggregatorRate); val > 0 {
		cfg.AggregatorRate = val
	}
	if val := parseIntEnv("AGGREGATOR_BURST", cfg.AggregatorBurst); val > 0 {
		cfg.AggregatorBurst = val
	}
	if dir := os.Getenv("PRICE_CACHE_DIR"); dir != "" {
		cfg.CacheDir = dir
	}
	cfg.CacheTTL = parseDurationEnv("PRICE_CACHE_TTL", cfg.CacheTTL)
	if val := parseFloatEnv("GAS_PER_TX", cfg.GasPerTx); val > 0 {
		cfg.GasPerTx = val
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	return cfg
}

// parseIntEnv parses an integer environment variable
func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseFloatEnv parses a float environment variable
func parseFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseDurationEnv parses a duration environment variable
func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
