package montecarlo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelab/rangesim/internal/backtest"
	"github.com/rangelab/rangesim/internal/pricefeed"
	"github.com/rangelab/rangesim/internal/strategy"
	"github.com/rangelab/rangesim/internal/testutils"
	"github.com/rangelab/rangesim/pkg/utils"
)

// fixedNormal always draws the same value.
type fixedNormal struct{ v float64 }

func (f fixedNormal) Norm() float64 { return f.v }

func geometricSeries(n int, start, ratio float64) []pricefeed.PricePoint {
	points := make([]pricefeed.PricePoint, n)
	base := testutils.SeriesStart.UnixMilli()
	price := start
	for i := range points {
		points[i] = pricefeed.PricePoint{
			Timestamp: base + int64(i)*time.Hour.Milliseconds(),
			Price:     price,
		}
		price *= ratio
	}
	return points
}

func simConfig(points int) *backtest.Config {
	start, end := testutils.SeriesWindow(points)
	return &backtest.Config{
		TokenA:         "ETH",
		TokenB:         "USDC",
		Strategy:       strategy.Descriptor{ID: "test", Type: strategy.TypeOutOfRange, RangeBps: 500},
		InitialCapital: 10000,
		StartTime:      start,
		EndTime:        end,
		PoolAPR:        36.5,
		AutoRebalance:  true,
	}
}

func TestCalibrateConstantGrowth(t *testing.T) {
	cal, err := Calibrate(geometricSeries(24, 100, 1.01))
	require.NoError(t, err)

	assert.InDelta(t, math.Log(1.01), cal.MeanLogReturn, 1e-9)
	assert.InDelta(t, 0, cal.StdLogReturn, 1e-9)
	assert.Equal(t, 23, cal.Steps)
	assert.Equal(t, time.Hour.Milliseconds(), cal.StepMs)
	assert.Equal(t, 100.0, cal.InitialPrice)
}

func TestCalibrateInsufficientHistory(t *testing.T) {
	_, err := Calibrate(geometricSeries(5, 100, 1.01))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestGeneratePathZeroNoise(t *testing.T) {
	cal, err := Calibrate(geometricSeries(24, 100, 1.02))
	require.NoError(t, err)

	path := GeneratePath(cal, fixedNormal{0})
	require.Len(t, path, 24)
	assert.Equal(t, cal.StartMs, path[0].Timestamp)
	assert.Equal(t, 100.0, path[0].Price)

	// With zero noise every step applies exactly the mean log return.
	for i := 1; i < len(path); i++ {
		assert.InDelta(t, path[i-1].Price*1.02, path[i].Price, 1e-6)
		assert.Equal(t, cal.StepMs, path[i].Timestamp-path[i-1].Timestamp)
	}
}

func TestGeneratePathDeterministic(t *testing.T) {
	cal, err := Calibrate(geometricSeries(48, 100, 1.005))
	require.NoError(t, err)

	a := GeneratePath(cal, utils.NewBoxMuller(42))
	b := GeneratePath(cal, utils.NewBoxMuller(42))
	assert.Equal(t, a, b)

	c := GeneratePath(cal, utils.NewBoxMuller(43))
	assert.NotEqual(t, a, c)
}

func TestRunSimulationFlatHistory(t *testing.T) {
	resolver := &testutils.StaticResolver{Resolution: &pricefeed.Resolution{
		Prices: testutils.FlatSeries(48, 2000),
		Source: pricefeed.SourceExchange,
	}}

	result, err := RunSimulation(context.Background(), simConfig(48), resolver, 50)
	require.NoError(t, err)

	// Zero volatility means every path is flat: fees accrue the whole
	// time and every run is profitable.
	assert.Equal(t, 50, result.Simulations)
	assert.Equal(t, 100.0, result.ProbabilityOfProfit)
	assert.InDelta(t, result.P5, result.P95, 1e-9)
	assert.Positive(t, result.P50)
}

func TestRunSimulationDistribution(t *testing.T) {
	resolver := &testutils.StaticResolver{Resolution: &pricefeed.Resolution{
		Prices: geometricSeries(72, 100, 1.004),
		Source: pricefeed.SourceExchange,
	}}

	// Spread the runs across five fixed noise levels.
	normals := func(run int) utils.NormalSource {
		return fixedNormal{v: float64(run%5-2) / 2}
	}

	result, err := RunSimulation(context.Background(), simConfig(72), resolver, 100,
		WithNormalSource(normals))
	require.NoError(t, err)

	assert.LessOrEqual(t, result.P5, result.P25)
	assert.LessOrEqual(t, result.P25, result.P50)
	assert.LessOrEqual(t, result.P50, result.P75)
	assert.LessOrEqual(t, result.P75, result.P95)
	assert.LessOrEqual(t, result.Worst, result.P5)
	assert.LessOrEqual(t, result.P95, result.Best)
	assert.GreaterOrEqual(t, result.ProbabilityOfProfit, 0.0)
	assert.LessOrEqual(t, result.ProbabilityOfProfit, 100.0)
}

func TestRunSimulationSeedReproducible(t *testing.T) {
	resolver := &testutils.StaticResolver{Resolution: &pricefeed.Resolution{
		Prices: geometricSeries(72, 100, 1.002),
		Source: pricefeed.SourceExchange,
	}}

	first, err := RunSimulation(context.Background(), simConfig(72), resolver, 20, WithSeed(7))
	require.NoError(t, err)
	second, err := RunSimulation(context.Background(), simConfig(72), resolver, 20, WithSeed(7))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunSimulationShortHistory(t *testing.T) {
	resolver := &testutils.StaticResolver{Resolution: &pricefeed.Resolution{
		Prices: testutils.FlatSeries(5, 100),
		Source: pricefeed.SourceExchange,
	}}

	_, err := RunSimulation(context.Background(), simConfig(5), resolver, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestRunSimulationCancelled(t *testing.T) {
	resolver := &testutils.StaticResolver{Resolution: &pricefeed.Resolution{
		Prices: testutils.FlatSeries(48, 100),
		Source: pricefeed.SourceExchange,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunSimulation(ctx, simConfig(48), resolver, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunSimulationDefaultCount(t *testing.T) {
	resolver := &testutils.StaticResolver{Resolution: &pricefeed.Resolution{
		Prices: testutils.FlatSeries(48, 100),
		Source: pricefeed.SourceExchange,
	}}

	result, err := RunSimulation(context.Background(), simConfig(48), resolver, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSimulations, result.Simulations)
}
