// Package montecarlo projects a position's return distribution by replaying
// the backtest engine over simulated price paths calibrated to real history.
package montecarlo

import (
	"errors"
	"fmt"
	"math"

	"github.com/rangelab/rangesim/internal/pricefeed"
	"github.com/rangelab/rangesim/pkg/utils"
)

// minCalibrationPoints is the floor below which log-return statistics are
// too noisy to project from.
const minCalibrationPoints = 10

// ErrInsufficientHistory marks a series too short to calibrate.
var ErrInsufficientHistory = errors.New("insufficient price history for calibration")

// Calibration holds the drift and volatility estimated from a real series,
// plus the shape parameters simulated paths reuse.
type Calibration struct {
	MeanLogReturn float64
	StdLogReturn  float64
	StepMs        int64
	Steps         int
	InitialPrice  float64
	StartMs       int64
}

// Calibrate estimates per-step log-return statistics from a price series.
func Calibrate(prices []pricefeed.PricePoint) (*Calibration, error) {
	if len(prices) < minCalibrationPoints {
		return nil, fmt.Errorf("%w: need at least %d points, got %d",
			ErrInsufficientHistory, minCalibrationPoints, len(prices))
	}

	logReturns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1].Price <= 0 || prices[i].Price <= 0 {
			continue
		}
		logReturns = append(logReturns, math.Log(prices[i].Price/prices[i-1].Price))
	}
	if len(logReturns) < minCalibrationPoints-1 {
		return nil, fmt.Errorf("%w: only %d usable returns", ErrInsufficientHistory, len(logReturns))
	}

	step := pricefeed.MedianStep(prices)
	return &Calibration{
		MeanLogReturn: utils.Mean(logReturns),
		StdLogReturn:  utils.StdDev(logReturns),
		StepMs:        step.Milliseconds(),
		Steps:         len(prices) - 1,
		InitialPrice:  prices[0].Price,
		StartMs:       prices[0].Timestamp,
	}, nil
}

// GeneratePath draws one simulated price path with the calibrated drift and
// volatility, starting where the real series started.
func GeneratePath(cal *Calibration, normals utils.NormalSource) []pricefeed.PricePoint {
	points := make([]pricefeed.PricePoint, 0, cal.Steps+1)
	points = append(points, pricefeed.PricePoint{Timestamp: cal.StartMs, Price: cal.InitialPrice})

	price := cal.InitialPrice
	ts := cal.StartMs
	for i := 0; i < cal.Steps; i++ {
		ts += cal.StepMs
		price *= math.Exp(cal.MeanLogReturn + cal.StdLogReturn*normals.Norm())
		points = append(points, pricefeed.PricePoint{Timestamp: ts, Price: price})
	}
	return points
}
