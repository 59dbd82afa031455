package pricefeed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/rangelab/rangesim/internal/logger"
)

const hourMs = int64(time.Hour / time.Millisecond)

// coinIDs maps token symbols to the aggregator's coin identifiers.
var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"WBTC": "wrapped-bitcoin",
	"ETH":  "ethereum",
	"WETH": "weth",
	"SOL":  "solana",
	"BNB":  "binancecoin",
	"AVAX": "avalanche-2",
	"LINK": "chainlink",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"USDC": "usd-coin",
	"USDT": "tether",
}

// AggregatorSource queries a historical-price aggregator per token and
// combines the two USD series into a pair ratio. All requests go through a
// shared rate limiter since the aggregator's public tier is tightly capped.
type AggregatorSource struct {
	client *httpClient
	log    *logger.Logger
}

// NewAggregatorSource creates an aggregator source. The limiter is shared
// across all calls made by this source.
func NewAggregatorSource(baseURL string, timeout time.Duration, limiter *rate.Limiter) *AggregatorSource {
	return &AggregatorSource{
		client: newHTTPClient(baseURL, timeout, limiter),
		log:    logger.Source(string(SourceAggregator)),
	}
}

// Name implements Source.
func (s *AggregatorSource) Name() string {
	return string(SourceAggregator)
}

// Fetch implements Source.
func (s *AggregatorSource) Fetch(ctx context.Context, req Request) ([]PricePoint, error) {
	seriesA, err := s.fetchTokenUSD(ctx, req.TokenA, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", req.TokenA, err)
	}
	seriesB, err := s.fetchTokenUSD(ctx, req.TokenB, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", req.TokenB, err)
	}

	combined := combineRatio(seriesA, seriesB)
	if len(combined) < MinSeriesPoints {
		return nil, fmt.Errorf("%w: %d overlapping points for %s", ErrInsufficientData, len(combined), req.Pair())
	}
	return combined, nil
}

type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

func (s *AggregatorSource) fetchTokenUSD(ctx context.Context, token string, start, end time.Time) ([]PricePoint, error) {
	id, ok := coinIDs[token]
	if !ok {
		return nil, fmt.Errorf("token %s has no aggregator id", token)
	}

	path := fmt.Sprintf("/api/v3/coins/%s/market_chart/range?vs_currency=usd&from=%d&to=%d",
		id, start.Unix(), end.Unix())

	var resp marketChartResponse
	if err := s.client.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	points := make([]PricePoint, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		points = append(points, PricePoint{Timestamp: int64(p[0]), Price: p[1]})
	}
	return points, nil
}

// combineRatio aligns two USD series by hourly bucket and divides numerator
// by denominator where both have an observation.
func combineRatio(numerator, denominator []PricePoint) []PricePoint {
	denomByHour := make(map[int64]float64, len(denominator))
	for _, p := range denominator {
		denomByHour[p.Timestamp/hourMs] = p.Price
	}

	out := make([]PricePoint, 0, len(numerator))
	seen := make(map[int64]bool, len(numerator))
	for _, p := range numerator {
		hour := p.Timestamp / hourMs
		denom, ok := denomByHour[hour]
		if !ok || denom == 0 || seen[hour] {
			continue
		}
		seen[hour] = true
		out = append(out, PricePoint{
			Timestamp: hour * hourMs,
			Price:     p.Price / denom,
		})
	}
	return out
}
