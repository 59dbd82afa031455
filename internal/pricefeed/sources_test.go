package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func klineRow(openTime int64, closePrice string) []any {
	return []any{openTime, "0", "0", "0", closePrice, "1000"}
}

func TestExchangeSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		require.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		require.Equal(t, "1h", r.URL.Query().Get("interval"))

		rows := [][]any{
			klineRow(0, "100.5"),
			klineRow(3600000, "101.25"),
			klineRow(7200000, "99.75"),
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer server.Close()

	src := NewExchangeSource(server.URL, 5*time.Second)

	points, err := src.Fetch(context.Background(), Request{
		TokenA:    "SOL",
		TokenB:    "USDT",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(3 * 3600000),
	})
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, int64(0), points[0].Timestamp)
	assert.InDelta(t, 100.5, points[0].Price, 1e-9)
	assert.InDelta(t, 101.25, points[1].Price, 1e-9)
}

func TestExchangeSourceInvertedPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		json.NewEncoder(w).Encode([][]any{klineRow(0, "200"), klineRow(3600000, "400")})
	}))
	defer server.Close()

	src := NewExchangeSource(server.URL, 5*time.Second)

	// USDT/SOL is not listed, so the source fetches SOLUSDT and inverts.
	points, err := src.Fetch(context.Background(), Request{
		TokenA:    "USDT",
		TokenB:    "SOL",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(2 * 3600000),
	})
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.InDelta(t, 1.0/200, points[0].Price, 1e-12)
	assert.InDelta(t, 1.0/400, points[1].Price, 1e-12)
}

func TestExchangeSourceUnknownPair(t *testing.T) {
	src := NewExchangeSource("http://unused", time.Second)

	_, err := src.Fetch(context.Background(), Request{
		TokenA:    "FOO",
		TokenB:    "BAR",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(3600000),
	})
	assert.Error(t, err)
}

func TestExchangeSourceStablecoinAlias(t *testing.T) {
	var gotSymbol string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		json.NewEncoder(w).Encode([][]any{klineRow(0, "150")})
	}))
	defer server.Close()

	src := NewExchangeSource(server.URL, 5*time.Second)

	_, err := src.Fetch(context.Background(), Request{
		TokenA:    "SOL",
		TokenB:    "USDC",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(3600000),
	})
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", gotSymbol)
}

func TestAggregatorSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var prices [][2]float64
		switch r.URL.Path {
		case "/api/v3/coins/solana/market_chart/range":
			prices = [][2]float64{{0, 100}, {3600000, 110}, {7200000, 120}}
		case "/api/v3/coins/usd-coin/market_chart/range":
			prices = [][2]float64{{0, 1}, {3600000, 1}, {7200000, 0.5}}
		default:
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"prices": prices})
	}))
	defer server.Close()

	src := NewAggregatorSource(server.URL, 5*time.Second, rate.NewLimiter(rate.Inf, 1))

	points, err := src.Fetch(context.Background(), Request{
		TokenA:    "SOL",
		TokenB:    "USDC",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(3 * 3600000),
	})
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.InDelta(t, 100, points[0].Price, 1e-9)
	assert.InDelta(t, 110, points[1].Price, 1e-9)
	assert.InDelta(t, 240, points[2].Price, 1e-9) // 120 / 0.5
}

func TestAggregatorSourceUnknownToken(t *testing.T) {
	src := NewAggregatorSource("http://unused", time.Second, rate.NewLimiter(rate.Inf, 1))

	_, err := src.Fetch(context.Background(), Request{
		TokenA:    "UNLISTED",
		TokenB:    "USDC",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(3600000),
	})
	assert.Error(t, err)
}

func TestAltAggregatorV2Shape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/v2/histohour", r.URL.Path)
		require.Equal(t, "SOL", r.URL.Query().Get("fsym"))
		require.Equal(t, "USDC", r.URL.Query().Get("tsym"))

		fmt.Fprint(w, `{"Response":"Success","Data":{"Data":[{"time":0,"close":95.5},{"time":3600,"close":96.25}]}}`)
	}))
	defer server.Close()

	src := NewAltAggregatorSource(server.URL, 5*time.Second)

	points, err := src.Fetch(context.Background(), Request{
		TokenA:    "SOL",
		TokenB:    "USDC",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(2 * 3600000),
	})
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, int64(0), points[0].Timestamp)
	assert.Equal(t, int64(3600000), points[1].Timestamp)
	assert.InDelta(t, 95.5, points[0].Price, 1e-9)
}

func TestAltAggregatorLegacyShapeFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data/v2/histohour" {
			http.NotFound(w, r)
			return
		}
		require.Equal(t, "/data/histohour", r.URL.Path)
		fmt.Fprint(w, `{"Data":[{"time":0,"close":10},{"time":3600,"close":11}]}`)
	}))
	defer server.Close()

	src := NewAltAggregatorSource(server.URL, 5*time.Second)

	points, err := src.Fetch(context.Background(), Request{
		TokenA:    "SOL",
		TokenB:    "USDC",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(2 * 3600000),
	})
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.InDelta(t, 10, points[0].Price, 1e-9)
}

func TestAltAggregatorAllShapesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	src := NewAltAggregatorSource(server.URL, 5*time.Second)

	_, err := src.Fetch(context.Background(), Request{
		TokenA:    "SOL",
		TokenB:    "USDC",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(3600000),
	})
	assert.Error(t, err)
}

func TestSyntheticSourceDeterministic(t *testing.T) {
	src := NewSyntheticSource()
	req := Request{
		TokenA:    "FOO",
		TokenB:    "BAR",
		StartTime: time.UnixMilli(0),
		EndTime:   time.UnixMilli(48 * 3600000),
	}

	a, err := src.Fetch(context.Background(), req)
	require.NoError(t, err)
	b, err := src.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 49)
	for _, p := range a {
		assert.Greater(t, p.Price, 0.0)
	}

	// A different pair draws a different path.
	req.TokenA = "BAZ"
	c, err := src.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := OpenCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	req := testRequest()

	_, ok := cache.Get(req)
	assert.False(t, ok)

	res := &Resolution{Prices: hourlyPoints(5, 100), Source: SourceExchange}
	cache.Put(req, res)

	got, ok := cache.Get(req)
	require.True(t, ok)
	assert.Equal(t, res.Prices, got.Prices)
	assert.Equal(t, SourceExchange, got.Source)

	// A different window is a different key.
	other := req
	other.EndTime = other.EndTime.Add(time.Hour)
	_, ok = cache.Get(other)
	assert.False(t, ok)
}
