package strategy

import "time"

// Reason explains why a rebalance fired.
type Reason string

const (
	ReasonTimer      Reason = "timer"
	ReasonOutOfRange Reason = "out-of-range"
)

// Decision is the outcome of evaluating a policy at one price step.
type Decision struct {
	Should bool
	Reason Reason
}

// Decide evaluates the rebalance policy for one step. elapsed is the time
// since the last rebalance (or position open). With autoRebalance disabled
// the policy never fires; the engine tracks wait-for-return periods instead.
//
// Range-exit triggers win over timer triggers when both would fire.
func Decide(d Descriptor, price float64, rng Range, elapsed time.Duration, autoRebalance bool) Decision {
	if !autoRebalance {
		return Decision{}
	}
	if d.MinTimeBetweenRebalances > 0 && elapsed < d.MinTimeBetweenRebalances {
		return Decision{}
	}

	outOfRange := !rng.Contains(price)

	switch d.Type {
	case TypeTimeBased:
		if d.TimerInterval > 0 && elapsed >= d.TimerInterval {
			return Decision{Should: true, Reason: ReasonTimer}
		}

	case TypeOutOfRange:
		if outOfRange {
			return Decision{Should: true, Reason: ReasonOutOfRange}
		}
		if d.MaxTimer > 0 && elapsed >= d.MaxTimer {
			return Decision{Should: true, Reason: ReasonTimer}
		}

	case TypeSmartRebalance:
		if d.CheckOutOfRange && outOfRange {
			return Decision{Should: true, Reason: ReasonOutOfRange}
		}
		if d.MaxTimer > 0 && elapsed >= d.MaxTimer {
			return Decision{Should: true, Reason: ReasonTimer}
		}

	case TypeProfitTarget, TypeAsymmetricTrend:
		// Simplified policies: both recenter on range exit.
		if outOfRange {
			return Decision{Should: true, Reason: ReasonOutOfRange}
		}

	default:
		if outOfRange {
			return Decision{Should: true, Reason: ReasonOutOfRange}
		}
	}

	return Decision{}
}
