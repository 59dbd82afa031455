// Package testutils provides shared utilities for testing
package testutils

import (
	"context"
	"time"

	"github.com/rangelab/rangesim/internal/pricefeed"
)

// SeriesStart is the base timestamp fixtures count from.
var SeriesStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// FlatSeries returns n hourly points all at the same price.
func FlatSeries(n int, price float64) []pricefeed.PricePoint {
	points := make([]pricefeed.PricePoint, n)
	base := SeriesStart.UnixMilli()
	for i := range points {
		points[i] = pricefeed.PricePoint{
			Timestamp: base + int64(i)*time.Hour.Milliseconds(),
			Price:     price,
		}
	}
	return points
}

// LinearSeries returns n hourly points moving evenly from start to end.
func LinearSeries(n int, start, end float64) []pricefeed.PricePoint {
	points := make([]pricefeed.PricePoint, n)
	base := SeriesStart.UnixMilli()
	for i := range points {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		points[i] = pricefeed.PricePoint{
			Timestamp: base + int64(i)*time.Hour.Milliseconds(),
			Price:     start + (end-start)*frac,
		}
	}
	return points
}

// StaticResolver serves a fixed resolution, or a fixed error.
type StaticResolver struct {
	Resolution *pricefeed.Resolution
	Err        error
}

// Resolve implements the resolver contract over the fixed data.
func (s *StaticResolver) Resolve(_ context.Context, _ pricefeed.Request) (*pricefeed.Resolution, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Resolution, nil
}

// SeriesWindow returns the start and end times covering an hourly series
// of n points, for use in backtest configs.
func SeriesWindow(n int) (time.Time, time.Time) {
	return SeriesStart, SeriesStart.Add(time.Duration(n-1) * time.Hour)
}
