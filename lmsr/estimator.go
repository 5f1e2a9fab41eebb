package lmsr

import (
	"math"

	"github.com/credencemarkets/credence/num"
	"github.com/credencemarkets/credence/types"
)

// Estimator approximates the curve with float64 arithmetic. It exists only
// to propose advisory figures, e.g. UI slippage bounds or CLI quotes: the
// ledger prices every fund-moving decision with the exact fixed-point curve
// and never consults the estimator.
type Estimator struct {
	// B is the liquidity parameter in whole-vote units.
	B float64
}

// NewEstimator builds an estimator from a wad liquidity parameter.
func NewEstimator(liquidity *num.Uint) Estimator {
	b, _ := liquidity.ToDecimal().Shift(-18).Float64()
	return Estimator{B: b}
}

// cost evaluates the potential using the log-sum-exp trick for stability.
func (e Estimator) cost(yes, no float64) float64 {
	m := math.Max(yes, no)
	return m + e.B*math.Log(math.Exp((yes-m)/e.B)+math.Exp((no-m)/e.B))
}

// Price returns the approximate marginal price of the given side as a
// fraction in (0, 1).
func (e Estimator) Price(yes, no float64, side types.Side) float64 {
	m := math.Max(yes, no)
	expYes := math.Exp((yes - m) / e.B)
	expNo := math.Exp((no - m) / e.B)
	p := expYes / (expYes + expNo)
	if side == types.SideDistrust {
		return 1 - p
	}
	return p
}

// Cost returns the approximate normalized cost of buying votes on the given
// side (negative votes sell).
func (e Estimator) Cost(yes, no, votes float64, side types.Side) float64 {
	if side == types.SideTrust {
		return e.cost(yes+votes, no) - e.cost(yes, no)
	}
	return e.cost(yes, no+votes) - e.cost(yes, no)
}

// VotesForBudget estimates how many votes the given normalized budget buys,
// by bisecting the monotone cost curve. The iteration count is fixed, so
// the search always terminates.
func (e Estimator) VotesForBudget(yes, no, budget float64, side types.Side) float64 {
	if budget <= 0 {
		return 0
	}
	// A budget of v costs at least v minus whatever catch-up to the opposite
	// side comes for free, minus the B*ln2 spread of the potential, so the
	// bracket below always straddles the answer.
	deficit := no - yes
	if side == types.SideDistrust {
		deficit = yes - no
	}
	if deficit < 0 {
		deficit = 0
	}
	lo, hi := 0.0, budget+deficit+e.B*math.Log(2)
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2
		if e.Cost(yes, no, mid, side) < budget {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
