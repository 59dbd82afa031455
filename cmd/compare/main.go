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
	"github.com/rangelab/rangesim/internal/comparison"
	"github.com/rangelab/rangesim/internal/config"
	"github.com/rangelab/rangesim/internal/logger"
	"github.com/rangelab/rangesim/internal/pricefeed"
)

var (
	pair           = flag.String("pair", "ETH/USDC", "Token pair as A/B")
	strategies     = flag.String("strategies", "", "Comma-separated preset IDs (empty runs the whole catalogue)")
	initialCapital = flag.Float64("capital", 10000, "Initial capital in quote terms")
	days           = flag.Int("days", 30, "Backtest window length in days, ending now")
	poolAPR        = flag.Float64("apr", 30, "Pool fee APR in percent")
	allowSynthetic = flag.Bool("synthetic", false, "Fall back to synthetic data when no source has history")
	verbose        = flag.Bool("verbose", false, "Print the full report for the winning strategy")
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

	parts := strings.Split(strings.ToUpper(strings.TrimSpace(*pair)), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid pair %q, expected format A/B", *pair)
	}

	endTime := time.Now().UTC()
	base := &backtest.Config{
		TokenA:         parts[0],
		TokenB:         parts[1],
		InitialCapital: *initialCapital,
		StartTime:      endTime.AddDate(0, 0, -*days),
		EndTime:        endTime,
		PoolAPR:        *poolAPR,
		AutoRebalance:  true,
		GasPerTx:       cfg.GasPerTx,
		AllowSynthetic: *allowSynthetic,
	}

	var ids []string
	if *strategies != "" {
		for _, id := range strings.Split(*strategies, ",") {
			ids = append(ids, strings.TrimSpace(id))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []pricefeed.Option
	if cfg.CacheDir != "" {
		cache, err := pricefeed.OpenCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			logger.WithError(err).Warn("Price cache unavailable, continuing without it")
		} else {
			opts = append(opts, pricefeed.WithCache(cache))
			defer cache.Close()
		}
	}
	resolver := pricefeed.NewResolver(cfg, opts...)

	results, err := comparison.CompareStrategies(ctx, base, resolver, ids)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	fmt.Printf("\nStrategy comparison for %s/%s over %d days ($%.2f initial)\n\n",
		base.TokenA, base.TokenB, *days, *initialCapital)
	comparison.RenderTable(os.Stdout, results)

	if *verbose {
		fmt.Println()
		fmt.Println(backtest.NewReporter().GenerateReport(results[0].Result))
	}

	return nil
}
