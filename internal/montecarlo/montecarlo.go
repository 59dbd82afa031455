package montecarlo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rangelab/rangesim/internal/backtest"
	"github.com/rangelab/rangesim/internal/logger"
	"github.com/rangelab/rangesim/internal/pricefeed"
	"github.com/rangelab/rangesim/pkg/utils"
)

// DefaultSimulations is used when the caller passes a non-positive count.
const DefaultSimulations = 100

// Result summarizes the distribution of total-return percentages across
// the simulated runs.
type Result struct {
	Simulations int
	Calibration Calibration

	P5  float64
	P25 float64
	P50 float64
	P75 float64
	P95 float64

	Mean   float64
	StdDev float64
	Best   float64
	Worst  float64

	// ProbabilityOfProfit is the share of runs finishing above the
	// initial capital, in percent.
	ProbabilityOfProfit float64
}

// Option adjusts a simulation run.
type Option func(*options)

type options struct {
	seed    int64
	normals func(run int) utils.NormalSource
}

// WithSeed fixes the base random seed so a run can be reproduced.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithNormalSource overrides the per-run normal generator. Used in tests.
func WithNormalSource(fn func(run int) utils.NormalSource) Option {
	return func(o *options) { o.normals = fn }
}

// RunSimulation resolves real history for the config's pair, calibrates a
// diffusion to it and replays the backtest over simulated paths.
func RunSimulation(ctx context.Context, config *backtest.Config, resolver backtest.PriceResolver, simulations int, opts ...Option) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if simulations <= 0 {
		simulations = DefaultSimulations
	}

	o := options{seed: time.Now().UnixNano()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.normals == nil {
		seed := o.seed
		o.normals = func(run int) utils.NormalSource {
			return utils.NewBoxMuller(seed + int64(run))
		}
	}

	res, err := resolver.Resolve(ctx, pricefeed.Request{
		TokenA:         config.TokenA,
		TokenB:         config.TokenB,
		StartTime:      config.StartTime,
		EndTime:        config.EndTime,
		AllowSynthetic: config.AllowSynthetic,
	})
	if err != nil {
		return nil, fmt.Errorf("price resolution failed: %w", err)
	}

	cal, err := Calibrate(res.Prices)
	if err != nil {
		return nil, err
	}

	log := logger.Component("montecarlo").Pair(config.TokenA, config.TokenB)
	returns := make([]float64, 0, simulations)
	profitable := 0

	for run := 0; run < simulations; run++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := GeneratePath(cal, o.normals(run))
		simRes := &pricefeed.Resolution{
			Prices:   path,
			Source:   pricefeed.SourceSynthetic,
			Warnings: []string{pricefeed.SyntheticDataWarning},
		}

		result, err := backtest.NewEngine(config, simRes).Run()
		if err != nil {
			return nil, fmt.Errorf("simulation %d failed: %w", run, err)
		}

		returns = append(returns, result.TotalReturnPercent)
		if result.TotalReturn > 0 {
			profitable++
		}
	}

	sort.Float64s(returns)

	out := &Result{
		Simulations: simulations,
		Calibration: *cal,

		P5:  utils.Percentile(returns, 5),
		P25: utils.Percentile(returns, 25),
		P50: utils.Percentile(returns, 50),
		P75: utils.Percentile(returns, 75),
		P95: utils.Percentile(returns, 95),

		Mean:   utils.Mean(returns),
		StdDev: utils.StdDev(returns),
		Best:   returns[len(returns)-1],
		Worst:  returns[0],

		ProbabilityOfProfit: float64(profitable) / float64(simulations) * 100,
	}

	log.WithField("simulations", simulations).
		WithField("median_return_pct", out.P50).
		WithField("profit_probability", out.ProbabilityOfProfit).
		Info("Monte Carlo simulation complete")

	return out, nil
}
