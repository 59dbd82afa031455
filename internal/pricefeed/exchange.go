package pricefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rangelab/rangesim/internal/logger"
)

const (
	klineInterval   = "1h"
	klinePageLimit  = 1000
	klineIntervalMs = int64(time.Hour / time.Millisecond)
)

// symbolAliases maps wrapped or bridged token symbols onto the ticker the
// exchange actually lists.
var symbolAliases = map[string]string{
	"WBTC": "BTC",
	"WETH": "ETH",
	"WSOL": "SOL",
	"USDC": "USDT",
}

// knownSymbols is the set of spot pairs the exchange serves with hourly
// candles. Pairs not listed here fall through to the aggregators.
var knownSymbols = map[string]struct{}{
	"BTCUSDT":  {},
	"ETHUSDT":  {},
	"SOLUSDT":  {},
	"BNBUSDT":  {},
	"AVAXUSDT": {},
	"LINKUSDT": {},
	"ADAUSDT":  {},
	"DOGEUSDT": {},
	"ETHBTC":   {},
	"SOLBTC":   {},
	"SOLETH":   {},
	"BNBETH":   {},
}

// ExchangeSource fetches hourly candle data for a direct pair from a
// high-liquidity exchange. Highest-priority source: densest data, but only
// for pairs in the symbol table.
type ExchangeSource struct {
	client *httpClient
	log    *logger.Logger
}

// NewExchangeSource creates an exchange candle source.
func NewExchangeSource(baseURL string, timeout time.Duration) *ExchangeSource {
	return &ExchangeSource{
		client: newHTTPClient(baseURL, timeout, nil),
		log:    logger.Source(string(SourceExchange)),
	}
}

// Name implements Source.
func (s *ExchangeSource) Name() string {
	return string(SourceExchange)
}

// Fetch implements Source. Pairs listed in inverted order are fetched as
// the direct symbol and the ratio inverted point by point.
func (s *ExchangeSource) Fetch(ctx context.Context, req Request) ([]PricePoint, error) {
	symbol, inverted, ok := pairSymbol(req.TokenA, req.TokenB)
	if !ok {
		return nil, fmt.Errorf("pair %s has no listed symbol", req.Pair())
	}

	points := make([]PricePoint, 0, 256)
	cursor := req.StartTime.UnixMilli()
	endMs := req.EndTime.UnixMilli()

	for cursor < endMs {
		path := fmt.Sprintf("/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
			symbol, klineInterval, cursor, endMs, klinePageLimit)

		var rows [][]any
		if err := s.client.getJSON(ctx, path, &rows); err != nil {
			return nil, fmt.Errorf("klines %s: %w", symbol, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			pt, err := parseKline(row)
			if err != nil {
				s.log.Warn("skipping malformed kline", "symbol", symbol, "error", err.Error())
				continue
			}
			if inverted && pt.Price > 0 {
				pt.Price = 1 / pt.Price
			}
			points = append(points, pt)
		}

		lastRow := rows[len(rows)-1]
		if len(lastRow) == 0 {
			break
		}
		lastOpen, ok := lastRow[0].(float64)
		if !ok {
			break
		}
		next := int64(lastOpen) + klineIntervalMs
		if next <= cursor {
			break
		}
		cursor = next

		if len(rows) < klinePageLimit {
			break
		}
	}

	return points, nil
}

// parseKline extracts the open time and close price from an exchange kline
// row: [openTime, open, high, low, close, volume, ...] with prices encoded
// as strings.
func parseKline(row []any) (PricePoint, error) {
	if len(row) < 5 {
		return PricePoint{}, fmt.Errorf("kline row has %d fields", len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return PricePoint{}, fmt.Errorf("unexpected open time type %T", row[0])
	}

	closeStr, ok := row[4].(string)
	if !ok {
		return PricePoint{}, fmt.Errorf("unexpected close price type %T", row[4])
	}

	closePrice, err := decimal.NewFromString(closeStr)
	if err != nil {
		return PricePoint{}, fmt.Errorf("invalid close price: %w", err)
	}

	return PricePoint{
		Timestamp: int64(openTime),
		Price:     closePrice.InexactFloat64(),
	}, nil
}

// pairSymbol resolves a token pair to a listed exchange symbol, trying the
// direct concatenation first and the inverted pair second.
func pairSymbol(tokenA, tokenB string) (symbol string, inverted bool, ok bool) {
	a := aliased(tokenA)
	b := aliased(tokenB)

	if _, listed := knownSymbols[a+b]; listed {
		return a + b, false, true
	}
	if _, listed := knownSymbols[b+a]; listed {
		return b + a, true, true
	}
	return "", false, false
}

func aliased(token string) string {
	if alias, ok := symbolAliases[token]; ok {
		return alias
	}
	return token
}
