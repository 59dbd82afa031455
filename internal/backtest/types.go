// Package backtest drives a strategy and the position economics model
// across a historical price series, producing an equity curve, a rebalance
// log and summary risk metrics.
package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/rangelab/rangesim/internal/economics"
	"github.com/rangelab/rangesim/internal/pricefeed"
	"github.com/rangelab/rangesim/internal/strategy"
)

// ErrInvalidConfig marks a config rejected before any network call.
var ErrInvalidConfig = errors.New("invalid backtest config")

// Config holds one backtest run's parameters. The engine never mutates it.
type Config struct {
	PoolID string
	TokenA string
	TokenB string

	Strategy strategy.Descriptor

	InitialCapital float64
	StartTime      time.Time
	EndTime        time.Time

	// PoolAPR is the pool's quoted fee APR in percent.
	PoolAPR float64

	AutoRebalance bool

	// GasPerTx overrides the default flat gas estimate when positive.
	GasPerTx float64

	AllowSynthetic bool
}

// Validate rejects impossible configurations.
func (c *Config) Validate() error {
	if c.TokenA == "" || c.TokenB == "" {
		return fmt.Errorf("%w: both tokens are required", ErrInvalidConfig)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive", ErrInvalidConfig)
	}
	if !c.StartTime.Before(c.EndTime) {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidConfig)
	}
	if c.Strategy.RangeBps <= 0 {
		return fmt.Errorf("%w: strategy range width must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) gasPerTx() float64 {
	if c.GasPerTx > 0 {
		return c.GasPerTx
	}
	return economics.DefaultGasPerTx
}

// EventType tags entries in the run's event log.
type EventType string

const (
	EventPositionOpened EventType = "position-opened"
	EventRebalance      EventType = "rebalance"
	EventPriceExitRange EventType = "price-exit-range"
	EventReturnToRange  EventType = "return-to-range"
)

// Event is one immutable entry in the chronological event log. The log is
// append-only and never reordered.
type Event struct {
	Timestamp int64 // unix ms
	Type      EventType
	Reason    strategy.Reason // set on rebalance events
	Price     float64
	OldRange  strategy.Range
	NewRange  strategy.Range

	CumulativeFees float64
	GasCost        float64
	PositionValue  float64

	// InRangeDuration is the length of the in-range streak a
	// price-exit-range event ended.
	InRangeDuration time.Duration
	// OutOfRangeDuration is how long the price stayed outside before a
	// return-to-range event.
	OutOfRangeDuration time.Duration
}

// OutOfRangePeriod records one contiguous stretch spent outside the active
// range, closed either by a return to range or by a rebalance/series end.
type OutOfRangePeriod struct {
	StartTimestamp int64
	EndTimestamp   int64
	Duration       time.Duration
	ExitPrice      float64
	ReturnPrice    float64 // zero unless DidReturn
	DidReturn      bool
}

// EquityPoint is one sample of the equity curve: position value net of
// impermanent loss.
type EquityPoint struct {
	Timestamp int64
	Value     float64
}

// DataQuality grades the resolved series.
type DataQuality string

const (
	QualityHigh      DataQuality = "high"
	QualityMedium    DataQuality = "medium"
	QualityLow       DataQuality = "low"
	QualitySynthetic DataQuality = "synthetic"
)

// Standing disclaimers attached to results.
const (
	WarningEstimatedFees = "fee, impermanent-loss and gas figures are estimates, not ledger-accurate accounting"
	WarningLimitedSample = "price history sample is small; metrics may not be representative"
)

// Result is the immutable outcome of one backtest run.
type Result struct {
	RunID  string
	Config Config

	DataSource  pricefeed.SourceID
	DataQuality DataQuality
	Warnings    []string

	InitialCapital     float64
	FinalValue         float64
	TotalReturn        float64
	TotalReturnPercent float64

	TotalFees       float64
	ImpermanentLoss float64 // capital-terms IL at the final price
	TotalGas        float64

	MaxDrawdownPercent float64
	SharpeRatio        float64
	TimeInRangePercent float64

	Events            []Event
	OutOfRangePeriods []OutOfRangePeriod
	EquityCurve       []EquityPoint
	Prices            []pricefeed.PricePoint
}

// RebalanceCount returns the number of actual rebalances in the log,
// excluding the initial open and informational range-crossing events.
func (r *Result) RebalanceCount() int {
	n := 0
	for _, e := range r.Events {
		if e.Type == EventRebalance {
			n++
		}
	}
	return n
}
