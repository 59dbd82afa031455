package pricefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/rangelab/rangesim/internal/logger"
)

const altMaxPoints = 2000

// AltAggregatorSource is the second-tier aggregator. Its API has shipped
// several response shapes over time, so each known endpoint is tried in
// turn before giving up.
type AltAggregatorSource struct {
	client *httpClient
	log    *logger.Logger
}

// NewAltAggregatorSource creates the fallback aggregator source.
func NewAltAggregatorSource(baseURL string, timeout time.Duration) *AltAggregatorSource {
	return &AltAggregatorSource{
		client: newHTTPClient(baseURL, timeout, nil),
		log:    logger.Source(string(SourceAltAggregator)),
	}
}

// Name implements Source.
func (s *AltAggregatorSource) Name() string {
	return string(SourceAltAggregator)
}

type altCandle struct {
	Time  int64   `json:"time"` // unix seconds
	Close float64 `json:"close"`
}

type altV2Response struct {
	Response string `json:"Response"`
	Data     struct {
		Data []altCandle `json:"Data"`
	} `json:"Data"`
}

type altLegacyResponse struct {
	Data []altCandle `json:"Data"`
}

// Fetch implements Source. The aggregator serves the pair ratio directly
// via fsym/tsym, hourly.
func (s *AltAggregatorSource) Fetch(ctx context.Context, req Request) ([]PricePoint, error) {
	hours := int(req.EndTime.Sub(req.StartTime) / time.Hour)
	if hours < 1 {
		hours = 1
	}
	if hours > altMaxPoints {
		hours = altMaxPoints
	}

	query := fmt.Sprintf("fsym=%s&tsym=%s&limit=%d&toTs=%d",
		req.TokenA, req.TokenB, hours, req.EndTime.Unix())

	var lastErr error

	// Current shape first.
	var v2 altV2Response
	if err := s.client.getJSON(ctx, "/data/v2/histohour?"+query, &v2); err == nil && len(v2.Data.Data) > 0 {
		return altPoints(v2.Data.Data), nil
	} else if err != nil {
		lastErr = err
		s.log.Warn("v2 endpoint failed, trying legacy shape", "error", err.Error())
	}

	var legacy altLegacyResponse
	if err := s.client.getJSON(ctx, "/data/histohour?"+query, &legacy); err == nil && len(legacy.Data) > 0 {
		return altPoints(legacy.Data), nil
	} else if err != nil {
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all endpoint shapes failed for %s: %w", req.Pair(), lastErr)
	}
	return nil, fmt.Errorf("%w: empty response for %s", ErrInsufficientData, req.Pair())
}

func altPoints(candles []altCandle) []PricePoint {
	points := make([]PricePoint, 0, len(candles))
	for _, c := range candles {
		points = append(points, PricePoint{
			Timestamp: c.Time * 1000,
			Price:     c.Close,
		})
	}
	return points
}
