package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "https://api.binance.com", cfg.ExchangeBaseURL)
	assert.Equal(t, "https://api.coingecko.com", cfg.AggregatorBaseURL)
	assert.Equal(t, "https://min-api.cryptocompare.com", cfg.AltAggregatorBaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.CacheDir)
	assert.Greater(t, cfg.GasPerTx, 0.0)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EXCHANGE_API_URL", "http://localhost:9001")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("AGGREGATOR_RATE", "10")
	t.Setenv("PRICE_CACHE_DIR", "/tmp/rangesim-cache")
	t.Setenv("GAS_PER_TX", "1.25")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, "http://localhost:9001", cfg.ExchangeBaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 10.0, cfg.AggregatorRate)
	assert.Equal(t, "/tmp/rangesim-cache", cfg.CacheDir)
	assert.Equal(t, 1.25, cfg.GasPerTx)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")
	t.Setenv("AGGREGATOR_RATE", "nope")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0.5, cfg.AggregatorRate)
}
