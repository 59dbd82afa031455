// Package strategy defines rebalance policies for concentrated-liquidity
// positions: when a position's range should be recentered and why.
package strategy

import "time"

// Type selects the rebalance policy.
type Type string

const (
	TypeTimeBased       Type = "time-based"
	TypeOutOfRange      Type = "out-of-range"
	TypeSmartRebalance  Type = "smart-rebalance"
	TypeProfitTarget    Type = "profit-target"
	TypeAsymmetricTrend Type = "asymmetric-trend"
)

// Descriptor is an immutable strategy configuration. The engine never
// mutates a Descriptor; callers may share one across runs.
type Descriptor struct {
	ID   string
	Name string
	Type Type

	// RangeBps is the half-width of the position range in basis points.
	RangeBps float64

	// TimerInterval triggers time-based rebalances.
	TimerInterval time.Duration
	// MaxTimer is a safety backstop for range-driven policies.
	MaxTimer time.Duration

	CheckOutOfRange bool

	// MaxDivergenceLossPercent is an advisory threshold; when the simulated
	// impermanent loss exceeds it the run is flagged with a warning.
	MaxDivergenceLossPercent float64

	MinTimeBetweenRebalances time.Duration
}

// Range is a price band. Lower < Upper always holds for ranges produced
// by RangeAround.
type Range struct {
	Lower float64
	Upper float64
}

// RangeAround builds a range symmetric around price with the given
// half-width in basis points.
func RangeAround(price, rangeBps float64) Range {
	halfWidth := price * rangeBps / 10000
	return Range{
		Lower: price - halfWidth,
		Upper: price + halfWidth,
	}
}

// Contains reports whether price sits inside the range (bounds inclusive).
func (r Range) Contains(price float64) bool {
	return price >= r.Lower && price <= r.Upper
}

// Width returns the absolute width of the range.
func (r Range) Width() float64 {
	return r.Upper - r.Lower
}

// Presets returns the built-in strategy catalogue, widest range first.
func Presets() []Descriptor {
	return []Descriptor{
		{
			ID:            "conservative",
			Name:          "Conservative (wide range, weekly reset)",
			Type:          TypeTimeBased,
			RangeBps:      1000,
			TimerInterval: 7 * 24 * time.Hour,
		},
		{
			ID:                       "balanced",
			Name:                     "Balanced (smart rebalance)",
			Type:                     TypeSmartRebalance,
			RangeBps:                 500,
			CheckOutOfRange:          true,
			MaxTimer:                 3 * 24 * time.Hour,
			MinTimeBetweenRebalances: time.Hour,
		},
		{
			ID:                       "aggressive",
			Name:                     "Aggressive (narrow range)",
			Type:                     TypeOutOfRange,
			RangeBps:                 200,
			MaxTimer:                 24 * time.Hour,
			MinTimeBetweenRebalances: time.Hour,
		},
		{
			ID:                       "profit-taker",
			Name:                     "Profit taker",
			Type:                     TypeProfitTarget,
			RangeBps:                 300,
			MaxDivergenceLossPercent: 5,
		},
		{
			ID:       "trend-rider",
			Name:     "Trend rider (asymmetric)",
			Type:     TypeAsymmetricTrend,
			RangeBps: 400,
		},
	}
}

// PresetByID looks up a preset from the catalogue.
func PresetByID(id string) (Descriptor, bool) {
	for _, d := range Presets() {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}
