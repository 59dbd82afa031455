// Package comparison runs the same backtest window under several strategies
// and ranks the outcomes.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rangelab/rangesim/internal/backtest"
	"github.com/rangelab/rangesim/internal/logger"
	"github.com/rangelab/rangesim/internal/strategy"
)

// ErrNoResults means every requested strategy failed to produce a result.
var ErrNoResults = errors.New("no strategy produced a result")

// StrategyComparison pairs a strategy with its backtest outcome.
type StrategyComparison struct {
	StrategyID   string
	StrategyName string
	Result       *backtest.Result
}

// CompareStrategies backtests the base config under each named preset and
// returns the outcomes sorted by total return, best first. With no IDs the
// whole preset catalogue runs. Individual failures are logged and skipped;
// the error is non-nil only when nothing succeeded.
func CompareStrategies(ctx context.Context, base *backtest.Config, resolver backtest.PriceResolver, strategyIDs []string) ([]StrategyComparison, error) {
	descriptors, err := resolveDescriptors(strategyIDs)
	if err != nil {
		return nil, err
	}

	// The base config's strategy slot is ignored; validate with the first
	// preset applied so bad windows or capital fail before any run.
	probe := *base
	probe.Strategy = descriptors[0]
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	log := logger.Component("comparison").Pair(base.TokenA, base.TokenB)

	results := make([]StrategyComparison, 0, len(descriptors))
	var lastErr error
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg := *base
		cfg.Strategy = d

		result, err := backtest.Run(ctx, &cfg, resolver)
		if err != nil {
			lastErr = err
			log.Strategy(d.ID).WithError(err).Warn("Strategy backtest failed, skipping")
			continue
		}

		results = append(results, StrategyComparison{
			StrategyID:   d.ID,
			StrategyName: d.Name,
			Result:       result,
		})
	}

	if len(results) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: last error: %v", ErrNoResults, lastErr)
		}
		return nil, ErrNoResults
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Result.TotalReturnPercent > results[j].Result.TotalReturnPercent
	})

	log.WithField("strategies", len(results)).
		WithField("best", results[0].StrategyID).
		Info("Strategy comparison complete")

	return results, nil
}

func resolveDescriptors(ids []string) ([]strategy.Descriptor, error) {
	if len(ids) == 0 {
		return strategy.Presets(), nil
	}
	descriptors := make([]strategy.Descriptor, 0, len(ids))
	for _, id := range ids {
		d, ok := strategy.PresetByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q", id)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}
