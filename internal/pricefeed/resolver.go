package pricefeed

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/rangelab/rangesim/internal/circuitbreaker"
	"github.com/rangelab/rangesim/internal/config"
	"github.com/rangelab/rangesim/internal/logger"
)

// SyntheticDataWarning is attached to every resolution backed by generated
// data so downstream consumers never mistake it for market history.
const SyntheticDataWarning = "price series is synthetic (no real source could serve this pair); results are illustrative only"

// Resolver walks an ordered chain of price sources and returns the first
// usable series. Each remote source sits behind its own circuit breaker.
type Resolver struct {
	sources   []Source
	synthetic Source
	breakers  map[string]*circuitbreaker.CircuitBreaker
	cache     *Cache
	log       *logger.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithCache attaches an on-disk series cache.
func WithCache(c *Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithSources replaces the default source chain (order is priority order).
func WithSources(sources ...Source) Option {
	return func(r *Resolver) { r.sources = sources }
}

// WithSynthetic replaces the synthetic last-resort generator.
func WithSynthetic(s Source) Option {
	return func(r *Resolver) { r.synthetic = s }
}

// NewResolver builds a resolver with the standard chain: exchange candles,
// then the per-token aggregator, then the alternate aggregator, then (only
// when a request allows it) synthetic data.
func NewResolver(cfg *config.Config, opts ...Option) *Resolver {
	limiter := rate.NewLimiter(rate.Limit(cfg.AggregatorRate), cfg.AggregatorBurst)

	r := &Resolver{
		sources: []Source{
			NewExchangeSource(cfg.ExchangeBaseURL, cfg.HTTPTimeout),
			NewAggregatorSource(cfg.AggregatorBaseURL, cfg.HTTPTimeout, limiter),
			NewAltAggregatorSource(cfg.AltAggregatorBaseURL, cfg.HTTPTimeout),
		},
		synthetic: NewSyntheticSource(),
		log:       logger.Component("price-resolver"),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.breakers = make(map[string]*circuitbreaker.CircuitBreaker, len(r.sources))
	for _, s := range r.sources {
		r.breakers[s.Name()] = circuitbreaker.New(s.Name(), nil)
	}

	return r
}

// Resolve fetches the price series for the request. On total failure it
// returns a *NoDataError; callers must treat that as fatal for the run.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	if req.TokenA == "" || req.TokenB == "" {
		return nil, fmt.Errorf("both tokens are required")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, fmt.Errorf("start time must be before end time")
	}

	if r.cache != nil {
		if res, ok := r.cache.Get(req); ok {
			r.log.Debug("cache hit", "pair", req.Pair(), "points", len(res.Prices))
			return res, nil
		}
	}

	attempts := make([]string, 0, len(r.sources)+1)

	for _, src := range r.sources {
		attempts = append(attempts, src.Name())
		log := r.log.Source(src.Name()).Pair(req.TokenA, req.TokenB)

		var raw []PricePoint
		fetch := func() error {
			points, err := src.Fetch(ctx, req)
			raw = points
			return err
		}

		var err error
		if br := r.breakers[src.Name()]; br != nil {
			err = br.Execute(ctx, fetch)
		} else {
			err = fetch()
		}
		if err != nil {
			log.WithError(err).Warn("source failed, falling back")
			continue
		}

		points := NormalizeSeries(raw, req.StartTime, req.EndTime)
		if len(points) < MinSeriesPoints {
			log.Warn("source returned too few points, falling back", "points", len(points))
			continue
		}

		res := &Resolution{Prices: points, Source: SourceID(src.Name())}
		if r.cache != nil {
			r.cache.Put(req, res)
		}
		log.Info("resolved price series", "points", len(points))
		return res, nil
	}

	if req.AllowSynthetic && r.synthetic != nil {
		attempts = append(attempts, r.synthetic.Name())
		raw, err := r.synthetic.Fetch(ctx, req)
		if err == nil {
			points := NormalizeSeries(raw, req.StartTime, req.EndTime)
			if len(points) >= MinSeriesPoints {
				r.log.Warn("falling back to synthetic price data", "pair", req.Pair())
				return &Resolution{
					Prices:   points,
					Source:   SourceSynthetic,
					Warnings: []string{SyntheticDataWarning},
				}, nil
			}
		}
	}

	return nil, &NoDataError{TokenA: req.TokenA, TokenB: req.TokenB, Attempts: attempts}
}
