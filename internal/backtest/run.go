package backtest

import (
	"context"
	"fmt"

	"github.com/rangelab/rangesim/internal/pricefeed"
)

// PriceResolver yields a price series for a token pair and window.
// *pricefeed.Resolver satisfies it.
type PriceResolver interface {
	Resolve(ctx context.Context, req pricefeed.Request) (*pricefeed.Resolution, error)
}

// Run validates the config, resolves the price series and executes the
// backtest. Validation happens before any network call.
func Run(ctx context.Context, config *Config, resolver PriceResolver) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
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

	return NewEngine(config, res).Run()
}
