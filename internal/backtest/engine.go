package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rangelab/rangesim/internal/economics"
	"github.com/rangelab/rangesim/internal/logger"
	"github.com/rangelab/rangesim/internal/pricefeed"
	"github.com/rangelab/rangesim/internal/strategy"
	"github.com/rangelab/rangesim/pkg/utils"
)

const (
	// Series-length thresholds for the quality grade. 168 hourly points
	// is one week.
	highQualityPoints   = 168
	mediumQualityPoints = 48

	hoursPerYear = 365 * 24
)

// Engine replays one resolved price series against a single strategy.
// It is single-use: construct, Run once, read the Result.
type Engine struct {
	config *Config
	prices []pricefeed.PricePoint
	source pricefeed.SourceID
	notes  []string
	log    *logger.Logger
}

// NewEngine builds an engine over an already-resolved price series.
func NewEngine(config *Config, res *pricefeed.Resolution) *Engine {
	return &Engine{
		config: config,
		prices: res.Prices,
		source: res.Source,
		notes:  append([]string(nil), res.Warnings...),
		log:    logger.Component("backtest"),
	}
}

// Run executes the simulation loop and computes summary metrics. With the
// same config and series it produces identical results apart from RunID.
func (e *Engine) Run() (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if len(e.prices) < pricefeed.MinSeriesPoints {
		return nil, fmt.Errorf("%w: need at least %d points, got %d",
			pricefeed.ErrInsufficientData, pricefeed.MinSeriesPoints, len(e.prices))
	}

	capital := e.config.InitialCapital
	gas := e.config.gasPerTx()
	first := e.prices[0]
	last := e.prices[len(e.prices)-1]

	entryPrice := first.Price
	rng := strategy.RangeAround(first.Price, e.config.Strategy.RangeBps)

	var (
		cumFees float64
		cumGas  = gas // opening the position costs one transaction
		maxIL   float64

		events  []Event
		periods []OutOfRangePeriod
		curve   []EquityPoint
		returns []float64
	)

	positionValue := func() float64 { return capital + cumFees - cumGas }

	events = append(events, Event{
		Timestamp:     first.Timestamp,
		Type:          EventPositionOpened,
		Price:         first.Price,
		OldRange:      rng,
		NewRange:      rng,
		GasCost:       gas,
		PositionValue: positionValue(),
	})

	equity := positionValue()
	curve = append(curve, EquityPoint{Timestamp: first.Timestamp, Value: equity})
	peak := equity
	prevEquity := equity
	maxDrawdown := 0.0

	lastRebalanceTs := first.Timestamp
	inRange := true
	inRangeSince := first.Timestamp
	var open *OutOfRangePeriod
	var inRangeMs int64

	prev := first
	for i := 1; i < len(e.prices); i++ {
		pt := e.prices[i]
		stepMs := pt.Timestamp - prev.Timestamp
		if stepMs <= 0 {
			prev = pt
			continue
		}
		price := pt.Price
		nowIn := rng.Contains(price)

		// Fees accrue only while the price sits inside the range.
		if nowIn {
			hours := float64(stepMs) / float64(time.Hour.Milliseconds())
			cumFees += economics.EstimateFees(capital, e.config.PoolAPR, hours, e.config.Strategy.RangeBps)
			inRangeMs += stepMs
		}

		if !nowIn && inRange {
			open = &OutOfRangePeriod{StartTimestamp: pt.Timestamp, ExitPrice: price}
			if !e.config.AutoRebalance {
				events = append(events, Event{
					Timestamp:       pt.Timestamp,
					Type:            EventPriceExitRange,
					Price:           price,
					OldRange:        rng,
					NewRange:        rng,
					CumulativeFees:  cumFees,
					PositionValue:   positionValue(),
					InRangeDuration: msToDuration(pt.Timestamp - inRangeSince),
				})
			}
		}

		if nowIn && !inRange && open != nil {
			open.EndTimestamp = pt.Timestamp
			open.Duration = msToDuration(pt.Timestamp - open.StartTimestamp)
			open.ReturnPrice = price
			open.DidReturn = true
			periods = append(periods, *open)
			outFor := open.Duration
			open = nil
			inRangeSince = pt.Timestamp
			if !e.config.AutoRebalance {
				events = append(events, Event{
					Timestamp:          pt.Timestamp,
					Type:               EventReturnToRange,
					Price:              price,
					OldRange:           rng,
					NewRange:           rng,
					CumulativeFees:     cumFees,
					PositionValue:      positionValue(),
					OutOfRangeDuration: outFor,
				})
			}
		}

		elapsed := msToDuration(pt.Timestamp - lastRebalanceTs)
		decision := strategy.Decide(e.config.Strategy, price, rng, elapsed, e.config.AutoRebalance)
		if decision.Should {
			cumGas += gas
			oldRange := rng
			rng = strategy.RangeAround(price, e.config.Strategy.RangeBps)

			// A rebalance while outside the range closes the open
			// period without a return.
			if open != nil {
				open.EndTimestamp = pt.Timestamp
				open.Duration = msToDuration(pt.Timestamp - open.StartTimestamp)
				periods = append(periods, *open)
				open = nil
			}

			events = append(events, Event{
				Timestamp:      pt.Timestamp,
				Type:           EventRebalance,
				Reason:         decision.Reason,
				Price:          price,
				OldRange:       oldRange,
				NewRange:       rng,
				CumulativeFees: cumFees,
				GasCost:        gas,
				PositionValue:  positionValue(),
			})

			lastRebalanceTs = pt.Timestamp
			inRangeSince = pt.Timestamp
			nowIn = true
		}

		ilFraction := economics.CalculateIL(entryPrice, price)
		if ilFraction > maxIL {
			maxIL = ilFraction
		}

		equity = positionValue() - ilFraction*capital
		curve = append(curve, EquityPoint{Timestamp: pt.Timestamp, Value: equity})
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak * 100; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
		if prevEquity != 0 {
			returns = append(returns, equity/prevEquity-1)
		}
		prevEquity = equity

		inRange = nowIn
		prev = pt
	}

	if open != nil {
		open.EndTimestamp = last.Timestamp
		open.Duration = msToDuration(last.Timestamp - open.StartTimestamp)
		periods = append(periods, *open)
	}

	finalIL := economics.CalculateIL(entryPrice, last.Price) * capital
	finalValue := curve[len(curve)-1].Value

	totalMs := last.Timestamp - first.Timestamp
	timeInRange := 100.0
	if totalMs > 0 {
		timeInRange = float64(inRangeMs) / float64(totalMs) * 100
	}

	result := &Result{
		RunID:  uuid.New().String(),
		Config: *e.config,

		DataSource:  e.source,
		DataQuality: deriveQuality(len(e.prices), e.source),
		Warnings:    e.buildWarnings(maxIL),

		InitialCapital:     capital,
		FinalValue:         finalValue,
		TotalReturn:        finalValue - capital,
		TotalReturnPercent: (finalValue - capital) / capital * 100,

		TotalFees:       cumFees,
		ImpermanentLoss: finalIL,
		TotalGas:        cumGas,

		MaxDrawdownPercent: maxDrawdown,
		SharpeRatio:        sharpeRatio(returns, pricefeed.MedianStep(e.prices)),
		TimeInRangePercent: timeInRange,

		Events:            events,
		OutOfRangePeriods: periods,
		EquityCurve:       curve,
		Prices:            e.prices,
	}

	e.log.WithField("pair", e.config.TokenA+"/"+e.config.TokenB).
		WithField("strategy", e.config.Strategy.ID).
		WithField("rebalances", result.RebalanceCount()).
		WithField("return_pct", result.TotalReturnPercent).
		Debug("Backtest complete")

	return result, nil
}

func (e *Engine) buildWarnings(maxIL float64) []string {
	warnings := append([]string(nil), e.notes...)
	warnings = append(warnings, WarningEstimatedFees)
	if len(e.prices) < mediumQualityPoints {
		warnings = append(warnings, WarningLimitedSample)
	}
	if max := e.config.Strategy.MaxDivergenceLossPercent; max > 0 && maxIL*100 > max {
		warnings = append(warnings, fmt.Sprintf(
			"divergence loss peaked at %.2f%%, above the strategy limit of %.2f%%", maxIL*100, max))
	}
	return warnings
}

func deriveQuality(points int, source pricefeed.SourceID) DataQuality {
	if source == pricefeed.SourceSynthetic {
		return QualitySynthetic
	}
	switch {
	case points >= highQualityPoints:
		return QualityHigh
	case points >= mediumQualityPoints:
		return QualityMedium
	default:
		return QualityLow
	}
}

// sharpeRatio annualizes the per-step Sharpe using the series' median
// sampling interval.
func sharpeRatio(returns []float64, step time.Duration) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := utils.Mean(returns)
	std := utils.StdDev(returns)
	if std == 0 {
		return 0
	}
	if step <= 0 {
		step = time.Hour
	}
	periodsPerYear := float64(hoursPerYear) * float64(time.Hour) / float64(step)
	return mean / std * math.Sqrt(periodsPerYear)
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
