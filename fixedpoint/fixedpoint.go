// Package fixedpoint provides overflow-checked fixed-point arithmetic at a
// scale of 1e18 (one "wad"). All operations round towards zero and return
// errors rather than wrapping or saturating silently.
package fixedpoint

import (
	"errors"

	"github.com/credencemarkets/credence/num"
)

var (
	// ErrOverflow is returned when the true result of an operation does not
	// fit the representable range.
	ErrOverflow = errors.New("fixed-point overflow")
	// ErrDivisionByZero is returned on division by zero.
	ErrDivisionByZero = errors.New("fixed-point division by zero")
	// ErrDomain is returned when an argument is outside the domain of the
	// function, e.g. the logarithm of zero.
	ErrDomain = errors.New("fixed-point domain error")
)

const (
	// Scale is the number of decimal places of the fixed-point representation.
	Scale = 18
	// quotientUint64 is 10^Scale, the wad unit.
	quotientUint64 = uint64(1e18)
)

var (
	quotient = num.NewUint(quotientUint64)

	// maxExpArg is the largest argument accepted by Exp. Exp(maxExpArg) in
	// wad form lands just under 2^252, so the result still fits a Uint but
	// with only a few bits of headroom. Sums of at most a handful of such
	// results are safe; anything that would multiply one by another wad
	// value must range-reduce the argument first rather than scale the
	// result.
	maxExpArg = num.MustUintFromString("133084258667509499441")
)

// Quotient returns the wad unit, 10^18.
func Quotient() *num.Uint {
	return quotient.Clone()
}

// MaxExpArg returns the largest wad value accepted by Exp.
func MaxExpArg() *num.Uint {
	return maxExpArg.Clone()
}

// Mul returns floor(x * y / 1e18).
func Mul(x, y *num.Uint) (*num.Uint, error) {
	p, overflow := num.UintZero().MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return p.Div(p, quotient), nil
}

// Div returns floor(x * 1e18 / y).
func Div(x, y *num.Uint) (*num.Uint, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	p, overflow := num.UintZero().MulOverflow(x, quotient)
	if overflow {
		return nil, ErrOverflow
	}
	return p.Div(p, y), nil
}
