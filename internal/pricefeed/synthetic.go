package pricefeed

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/rangelab/rangesim/pkg/utils"
)

// SyntheticSource generates an hourly geometric-Brownian-motion series when
// no real source can serve the pair. It is deterministic per request, so
// re-running an identical backtest yields identical synthetic data.
type SyntheticSource struct {
	BasePrice        float64
	HourlyVolatility float64
	Drift            float64
}

// NewSyntheticSource returns a synthetic generator with neutral defaults.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{
		BasePrice:        1.0,
		HourlyVolatility: 0.01,
		Drift:            0,
	}
}

// Name implements Source.
func (s *SyntheticSource) Name() string {
	return string(SourceSynthetic)
}

// Fetch implements Source.
func (s *SyntheticSource) Fetch(_ context.Context, req Request) ([]PricePoint, error) {
	normals := utils.NewBoxMuller(requestSeed(req))

	points := make([]PricePoint, 0, 64)
	price := s.BasePrice
	for ts := req.StartTime.UnixMilli(); ts <= req.EndTime.UnixMilli(); ts += hourMs {
		points = append(points, PricePoint{Timestamp: ts, Price: price})
		logReturn := s.Drift + s.HourlyVolatility*normals.Norm()
		price *= math.Exp(logReturn)
	}
	return points, nil
}

func requestSeed(req Request) int64 {
	h := fnv.New64a()
	h.Write([]byte(req.TokenA))
	h.Write([]byte{'|'})
	h.Write([]byte(req.TokenB))
	var buf [16]byte
	start := req.StartTime.UnixMilli()
	end := req.EndTime.UnixMilli()
	for i := 0; i < 8; i++ {
		buf[i] = byte(start >> (8 * i))
		buf[8+i] = byte(end >> (8 * i))
	}
	h.Write(buf[:])
	return int64(h.Sum64())
}
