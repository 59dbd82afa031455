// Package economics models the cash flows of a concentrated-liquidity
// position: fee accrual while in range, impermanent loss against the entry
// price, and flat gas charges per transaction. All figures are estimates.
package economics

import (
	"math"

	"github.com/rangelab/rangesim/pkg/utils"
)

const (
	// feeDiscount haircuts the naive fee projection; realized pool fees
	// trail the quoted APR.
	feeDiscount = 0.7

	// maxConcentration caps the fee boost from a narrow range.
	maxConcentration = 20.0

	// DefaultGasPerTx is the flat per-transaction gas estimate used when a
	// run does not override it.
	DefaultGasPerTx = 0.35
)

// EstimateFees estimates fees earned by capital over hoursInRange hours at
// the pool's quoted APR (percent). Narrower ranges hold a larger share of
// active liquidity and earn proportionally more while the price stays
// inside, capped at maxConcentration.
func EstimateFees(capital, poolAPR, hoursInRange, rangeBps float64) float64 {
	if capital <= 0 || poolAPR <= 0 || hoursInRange <= 0 {
		return 0
	}

	hourlyRate := poolAPR / 100 / 365 / 24

	concentration := maxConcentration
	if rangeBps > 0 {
		concentration = utils.Clamp(10000/rangeBps, 1, maxConcentration)
	}

	return capital * hourlyRate * hoursInRange * concentration * feeDiscount
}

// CalculateIL returns the impermanent loss fraction of a position that
// entered at initialPrice and now sits at currentPrice, versus holding the
// tokens. Standard constant-product divergence: |2*sqrt(r)/(1+r) - 1|.
// IL is always measured from the first position opened in a run, not from
// the last rebalance.
func CalculateIL(initialPrice, currentPrice float64) float64 {
	if initialPrice <= 0 || currentPrice <= 0 {
		return 0
	}

	r := currentPrice / initialPrice
	return math.Abs(2*math.Sqrt(r)/(1+r) - 1)
}
