// Package pricefeed resolves historical price series for a token pair from
// a chain of external sources, falling back in priority order when a source
// fails or returns too little data.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MinSeriesPoints is the minimum number of points a source must yield for
// its series to be usable.
const MinSeriesPoints = 2

// PricePoint is one observation of the tokenA/tokenB price ratio.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"` // unix milliseconds
	Price     float64 `json:"price"`
}

// SourceID identifies which source produced a series.
type SourceID string

const (
	SourceExchange      SourceID = "exchange"
	SourceAggregator    SourceID = "aggregator"
	SourceAltAggregator SourceID = "alt-aggregator"
	SourceSynthetic     SourceID = "synthetic"
	SourceNone          SourceID = "none"
)

// Request describes the series to resolve.
type Request struct {
	TokenA         string
	TokenB         string
	StartTime      time.Time
	EndTime        time.Time
	AllowSynthetic bool
}

// Pair returns the request's pair label, e.g. "SOL/USDC".
func (r Request) Pair() string {
	return r.TokenA + "/" + r.TokenB
}

// Resolution is a successfully resolved series with its provenance.
type Resolution struct {
	Prices   []PricePoint
	Source   SourceID
	Warnings []string
}

// Source is a uniform adapter over one external price provider. Fetch
// returns the raw series; the resolver filters, orders and validates it.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]PricePoint, error)
}

// ErrInsufficientData marks a source that responded but yielded fewer than
// MinSeriesPoints usable points.
var ErrInsufficientData = errors.New("insufficient price data")

// NoDataError is returned when every source in the chain failed. Callers
// must treat it as fatal for the requested run; the resolver does not retry
// beyond its fixed fallback order.
type NoDataError struct {
	TokenA   string
	TokenB   string
	Attempts []string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no price data available for %s/%s: all sources failed (tried: %s)",
		e.TokenA, e.TokenB, strings.Join(e.Attempts, ", "))
}

// Source reports the provenance of a failed resolution.
func (e *NoDataError) Source() SourceID {
	return SourceNone
}

// NormalizeSeries sorts points ascending by timestamp, drops duplicates and
// anything outside [start, end] or with a non-positive price.
func NormalizeSeries(points []PricePoint, start, end time.Time) []PricePoint {
	startMs := start.UnixMilli()
	endMs := end.UnixMilli()

	filtered := make([]PricePoint, 0, len(points))
	for _, p := range points {
		if p.Price <= 0 || p.Timestamp < startMs || p.Timestamp > endMs {
			continue
		}
		filtered = append(filtered, p)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp < filtered[j].Timestamp
	})

	out := filtered[:0]
	var lastTs int64 = -1
	for _, p := range filtered {
		if p.Timestamp == lastTs {
			continue
		}
		out = append(out, p)
		lastTs = p.Timestamp
	}
	return out
}

// MedianStep returns the median spacing between consecutive points.
func MedianStep(points []PricePoint) time.Duration {
	if len(points) < 2 {
		return 0
	}
	steps := make([]int64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		steps = append(steps, points[i].Timestamp-points[i-1].Timestamp)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	return time.Duration(steps[len(steps)/2]) * time.Millisecond
}
