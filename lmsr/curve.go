// Package lmsr implements the Logarithmic Market Scoring Rule for a
// two-outcome (trust/distrust) market, in exact fixed-point arithmetic.
//
// Prices are normalized: the full price space is [0, 1e18] and the caller
// rescales by the market's base price. The cost potential is
// C(y, n) = b * ln(e^(y/b) + e^(n/b)); the marginal price of the trust side
// is e^(y/b) / (e^(y/b) + e^(n/b)).
package lmsr

import (
	"errors"

	"github.com/credencemarkets/credence/fixedpoint"
	"github.com/credencemarkets/credence/num"
	"github.com/credencemarkets/credence/types"
)

var (
	// ErrVoteCountTooLarge is returned when a vote count is above the
	// ceiling that keeps the fixed-point exponential from overflowing.
	ErrVoteCountTooLarge = errors.New("vote count too large for fixed-point exponential")
	// ErrInvalidLiquidity is returned when the liquidity parameter is nil
	// or zero.
	ErrInvalidLiquidity = errors.New("liquidity parameter must be a positive wad value")
)

// MaxSafeVotes returns the largest per-side vote count for which the curve
// can still be evaluated at the given liquidity (wad). Above it, Odds and
// Cost fail with ErrVoteCountTooLarge.
func MaxSafeVotes(liquidity *num.Uint) uint64 {
	if liquidity == nil || liquidity.IsZero() {
		return 0
	}
	// votes <= maxExpArg * liquidity / 1e36
	p, overflow := num.UintZero().MulOverflow(fixedpoint.MaxExpArg(), liquidity)
	if overflow {
		return 0
	}
	sq := num.UintZero().Mul(fixedpoint.Quotient(), fixedpoint.Quotient())
	p.Div(p, sq)
	if p.GT(num.NewUint(^uint64(0))) {
		return ^uint64(0)
	}
	return p.Uint64()
}

// expVotes computes e^(votes/b) in wad form, translating arithmetic
// failures so no raw fixed-point error escapes the curve.
func expVotes(votes uint64, liquidity *num.Uint) (*num.Uint, error) {
	w := num.UintZero().Mul(num.NewUint(votes), fixedpoint.Quotient())
	arg, err := fixedpoint.Div(w, liquidity)
	if err != nil {
		return nil, ErrVoteCountTooLarge
	}
	if arg.GT(fixedpoint.MaxExpArg()) {
		return nil, ErrVoteCountTooLarge
	}
	e, err := fixedpoint.Exp(arg)
	if err != nil {
		return nil, ErrVoteCountTooLarge
	}
	return e, nil
}

// Odds returns the instantaneous marginal price of one more vote on the
// requested side, as a wad fraction of the full price space.
//
// The ratio is range-reduced before any division: scaling both exponentials
// by the larger one leaves e^(gap/b) as the only exponential materialized,
// so intermediates stay well inside 256 bits over the whole MaxSafeVotes
// domain. The losing side is clamped to at least one wad unit and the
// winning side to at most one unit below the full space, keeping both odds
// strictly inside (0, 1).
func Odds(trustVotes, distrustVotes uint64, liquidity *num.Uint, side types.Side) (*num.Uint, error) {
	if liquidity == nil || liquidity.IsZero() {
		return nil, ErrInvalidLiquidity
	}
	maxSafe := MaxSafeVotes(liquidity)
	if trustVotes > maxSafe || distrustVotes > maxSafe {
		return nil, ErrVoteCountTooLarge
	}

	major, minor := trustVotes, distrustVotes
	if distrustVotes > trustVotes {
		major, minor = distrustVotes, trustVotes
	}
	eGap, err := expVotes(major-minor, liquidity)
	if err != nil {
		return nil, err
	}
	// minority = 1 / (e^(gap/b) + 1), majority = 1 - minority. The division
	// numerator is a fixed 1e36, so it cannot overflow for any gap.
	den, overflow := num.UintZero().AddOverflow(eGap, fixedpoint.Quotient())
	if overflow {
		return nil, ErrVoteCountTooLarge
	}
	minority, err := fixedpoint.Div(fixedpoint.Quotient(), den)
	if err != nil {
		return nil, ErrVoteCountTooLarge
	}
	if minority.IsZero() {
		minority = num.NewUint(1)
	}
	majority := num.UintZero().Sub(fixedpoint.Quotient(), minority)

	if (side == types.SideTrust) == (trustVotes >= distrustVotes) {
		return majority, nil
	}
	return minority, nil
}

// potential evaluates C(y, n) = b * ln(e^(y/b) + e^(n/b)) in wad form.
// The sum of exponentials is always >= 2e18, so the logarithm is positive.
func potential(yes, no uint64, liquidity *num.Uint) (*num.Uint, error) {
	eYes, err := expVotes(yes, liquidity)
	if err != nil {
		return nil, err
	}
	eNo, err := expVotes(no, liquidity)
	if err != nil {
		return nil, err
	}
	l, err := fixedpoint.Ln(num.Sum(eYes, eNo))
	if err != nil {
		return nil, ErrVoteCountTooLarge
	}
	c, err := fixedpoint.Mul(liquidity, l.Abs())
	if err != nil {
		return nil, ErrVoteCountTooLarge
	}
	return c, nil
}

// Cost returns the signed normalized cost of moving the market from state
// (yes0, no0) to state (yes1, no1): positive when buying, negative when
// selling, exactly zero for the identity move. Because the potential is a
// pure function of state, costs over any closed loop of moves telescope to
// exactly zero.
func Cost(yes0, no0, yes1, no1 uint64, liquidity *num.Uint) (*num.Int, error) {
	if liquidity == nil || liquidity.IsZero() {
		return nil, ErrInvalidLiquidity
	}
	c0, err := potential(yes0, no0, liquidity)
	if err != nil {
		return nil, err
	}
	c1, err := potential(yes1, no1, liquidity)
	if err != nil {
		return nil, err
	}
	return num.IntFromDelta(c1, c0), nil
}
