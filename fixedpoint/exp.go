package fixedpoint

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/credencemarkets/credence/num"
)

// Exp and Ln are evaluated through decimal series with a fixed internal
// precision and a fixed number of terms, so results are bit-for-bit
// deterministic across runs and platforms. The internal precision is chosen
// so the error stays below one wad unit even at the largest representable
// magnitudes (2^192 in wad form).
const (
	prec     = 100
	expTerms = 90
	lnTerms  = 130
)

var (
	dOne  = decimal.NewFromInt(1)
	dTwo  = decimal.NewFromInt(2)
	dHalf = num.MustDecimalFromString("0.5")
	// wadDec is 10^18 as a decimal.
	wadDec = decimal.New(1, Scale)
	// ln2 to 100 decimal places.
	dLn2 = num.MustDecimalFromString(
		"0.6931471805599453094172321214581765680755001343602552541206800094933936219696947156058633269964186875")
)

func wadToDecimal(x *num.Uint) num.Decimal {
	return num.NewDecimalFromBigInt(x.BigInt(), -Scale)
}

// Exp returns e^(x/1e18) in wad form, rounded towards zero.
// It fails with ErrOverflow when x exceeds MaxExpArg.
func Exp(x *num.Uint) (*num.Uint, error) {
	if x.GT(maxExpArg) {
		return nil, ErrOverflow
	}
	d := wadToDecimal(x)

	// Range reduction: x = k*ln2 + r with r in [0, ln2), so that
	// e^x = 2^k * e^r and the Taylor series only ever sees a small r.
	k := d.DivRound(dLn2, prec).IntPart()
	r := d.Sub(dLn2.Mul(decimal.NewFromInt(k)))
	if r.IsNegative() {
		k--
		r = r.Add(dLn2)
	}

	sum := dOne
	term := dOne
	for i := int64(1); i <= expTerms; i++ {
		term = term.Mul(r).DivRound(decimal.NewFromInt(i), prec)
		sum = sum.Add(term)
	}

	pow2 := num.NewDecimalFromBigInt(new(big.Int).Lsh(big.NewInt(1), uint(k)), 0)
	res := sum.Mul(pow2).Mul(wadDec).Truncate(0)
	u, overflow := num.UintFromDecimal(res)
	if overflow {
		return nil, ErrOverflow
	}
	return u, nil
}

// Ln returns ln(x/1e18) in wad form, rounded towards zero.
// It fails with ErrDomain when x is zero.
func Ln(x *num.Uint) (*num.Int, error) {
	if x.IsZero() {
		return nil, ErrDomain
	}
	m := wadToDecimal(x)

	// Range reduction: x = 2^k * m with m in [1, 2). Halving and doubling
	// are exact in decimal arithmetic, so no error is introduced here.
	k := int64(0)
	for m.GreaterThanOrEqual(dTwo) {
		m = m.Mul(dHalf)
		k++
	}
	for m.LessThan(dOne) {
		m = m.Mul(dTwo)
		k--
	}

	// ln(m) = 2*atanh(t) with t = (m-1)/(m+1), |t| < 1/3.
	t := m.Sub(dOne).DivRound(m.Add(dOne), prec)
	t2 := t.Mul(t).Truncate(prec)
	sum := t
	tp := t
	for i := int64(1); i <= lnTerms; i++ {
		tp = tp.Mul(t2).Truncate(prec)
		sum = sum.Add(tp.DivRound(decimal.NewFromInt(2*i+1), prec))
	}

	res := sum.Mul(dTwo).Add(dLn2.Mul(decimal.NewFromInt(k))).Mul(wadDec)
	neg := res.IsNegative()
	u, overflow := num.UintFromDecimal(res.Abs().Truncate(0))
	if overflow {
		return nil, ErrOverflow
	}
	return num.IntFromUint(u, neg), nil
}
