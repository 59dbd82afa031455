package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rangelab/rangesim/internal/backtest"
	"github.com/rangelab/rangesim/internal/config"
	"github.com/rangelab/rangesim/internal/logger"
	"github.com/rangelab/rangesim/internal/montecarlo"
	"github.com/rangelab/rangesim/internal/pricefeed"
	"github.com/rangelab/rangesim/internal/strategy"
)

var (
	pair           = flag.String("pair", "ETH/USDC", "Token pair as A/B")
	poolID         = flag.String("pool", "", "Pool identifier, informational only")
	strategyID     = flag.String("strategy", "balanced", "Strategy preset (conservative, balanced, aggressive, profit-taker, trend-rider)")
	rangeBps       = flag.Float64("range", 0, "Override range half-width in basis points")
	initialCapital = flag.Float64("capital", 10000, "Initial capital in quote terms")
	days           = flag.Int("days", 30, "Backtest window length in days, ending now")
	startFlag      = flag.String("start", "", "Window start (RFC 3339), overrides -days")
	endFlag        = flag.String("end", "", "Window end (RFC 3339), defaults to now")
	poolAPR        = flag.Float64("apr", 30, "Pool fee APR in percent")
	gasPerTx       = flag.Float64("gas", 0, "Override gas cost per transaction")
	autoRebalance  = flag.Bool("auto-rebalance", true, "Let the strategy recenter the range")
	allowSynthetic = flag.Bool("synthetic", false, "Fall back to synthetic data when no source has history")
	simulations    = flag.Int("montecarlo", 0, "Also run this many Monte Carlo simulations")
	seed           = flag.Int64("seed", 0, "Fixed seed for Monte Carlo runs")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := config.Load()

	logger.SetDefault(logger.New(&logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	}))

	tokenA, tokenB, err := splitPair(*pair)
	if err != nil {
		return err
	}

	startTime, endTime, err := resolveWindow()
	if err != nil {
		return err
	}

	descriptor, ok := strategy.PresetByID(*strategyID)
	if !ok {
		return fmt.Errorf("unknown strategy %q, pick one of: %s", *strategyID, presetIDs())
	}
	if *rangeBps > 0 {
		descriptor.RangeBps = *rangeBps
	}

	btConfig := &backtest.Config{
		PoolID:         *poolID,
		TokenA:         tokenA,
		TokenB:         tokenB,
		Strategy:       descriptor,
		InitialCapital: *initialCapital,
		StartTime:      startTime,
		EndTime:        endTime,
		PoolAPR:        *poolAPR,
		AutoRebalance:  *autoRebalance,
		GasPerTx:       gasOverride(cfg),
		AllowSynthetic: *allowSynthetic,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, closeResolver := buildResolver(cfg)
	defer closeResolver()

	result, err := backtest.Run(ctx, btConfig, resolver)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	fmt.Println(backtest.NewReporter().GenerateReport(result))

	if *simulations > 0 {
		opts := []montecarlo.Option{}
		if *seed != 0 {
			opts = append(opts, montecarlo.WithSeed(*seed))
		}
		mc, err := montecarlo.RunSimulation(ctx, btConfig, resolver, *simulations, opts...)
		if err != nil {
			return fmt.Errorf("monte carlo failed: %w", err)
		}
		printMonteCarloResult(mc)
	}

	return nil
}

func buildResolver(cfg *config.Config) (*pricefeed.Resolver, func()) {
	var opts []pricefeed.Option
	closer := func() {}

	if cfg.CacheDir != "" {
		cache, err := pricefeed.OpenCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			logger.WithError(err).Warn("Price cache unavailable, continuing without it")
		} else {
			opts = append(opts, pricefeed.WithCache(cache))
			closer = func() { _ = cache.Close() }
		}
	}

	return pricefeed.NewResolver(cfg, opts...), closer
}

func resolveWindow() (time.Time, time.Time, error) {
	endTime := time.Now().UTC()
	if *endFlag != "" {
		t, err := time.Parse(time.RFC3339, *endFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -end: %w", err)
		}
		endTime = t
	}

	startTime := endTime.AddDate(0, 0, -*days)
	if *startFlag != "" {
		t, err := time.Parse(time.RFC3339, *startFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -start: %w", err)
		}
		startTime = t
	}

	return startTime, endTime, nil
}

func splitPair(s string) (string, string, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(s)), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid pair %q, expected format A/B", s)
	}
	return parts[0], parts[1], nil
}

func gasOverride(cfg *config.Config) float64 {
	if *gasPerTx > 0 {
		return *gasPerTx
	}
	return cfg.GasPerTx
}

func presetIDs() string {
	ids := make([]string, 0)
	for _, d := range strategy.Presets() {
		ids = append(ids, d.ID)
	}
	return strings.Join(ids, ", ")
}

func printMonteCarloResult(mc *montecarlo.Result) {
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println("            MONTE CARLO PROJECTION")
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Printf("Simulations:          %d\n", mc.Simulations)
	fmt.Printf("P5 / P25:             %.2f%% / %.2f%%\n", mc.P5, mc.P25)
	fmt.Printf("Median Return:        %.2f%%\n", mc.P50)
	fmt.Printf("P75 / P95:            %.2f%% / %.2f%%\n", mc.P75, mc.P95)
	fmt.Printf("Mean / StdDev:        %.2f%% / %.2f%%\n", mc.Mean, mc.StdDev)
	fmt.Printf("Best / Worst:         %.2f%% / %.2f%%\n", mc.Best, mc.Worst)
	fmt.Printf("Profit Probability:   %.1f%%\n", mc.ProbabilityOfProfit)
	fmt.Println("═══════════════════════════════════════════════════════")
}
