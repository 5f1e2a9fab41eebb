package num

// Int is a wrapper for a signed 256 bit integer, stored as a
// magnitude and a sign.
type Int struct {
	// U is the magnitude of the value.
	U *Uint
	// negative is true when the value is strictly below zero.
	negative bool
}

// NewInt returns a new Int with the value of the int64 passed.
func NewInt(val int64) *Int {
	if val < 0 {
		return &Int{U: NewUint(uint64(-val)), negative: true}
	}
	return &Int{U: NewUint(uint64(val)), negative: false}
}

// IntZero returns a new Int set to zero.
func IntZero() *Int {
	return &Int{U: NewUint(0)}
}

// IntFromUint returns a new Int with the magnitude of u and the
// given sign. A zero magnitude is always normalized to non-negative.
func IntFromUint(u *Uint, neg bool) *Int {
	if u.IsZero() {
		neg = false
	}
	return &Int{U: u.Clone(), negative: neg}
}

// IntFromDelta returns x - y as an Int.
func IntFromDelta(x, y *Uint) *Int {
	d, neg := UintZero().Delta(x, y)
	return IntFromUint(d, neg)
}

// IsNegative returns true if the value is strictly below zero.
func (i Int) IsNegative() bool {
	return i.negative
}

// IsPositive returns true if the value is strictly above zero.
func (i Int) IsPositive() bool {
	return !i.negative && !i.U.IsZero()
}

// IsZero returns true if the value is zero.
func (i Int) IsZero() bool {
	return i.U.IsZero()
}

// Neg returns the negation of i.
func (i Int) Neg() *Int {
	return IntFromUint(i.U, !i.negative)
}

// Abs returns the magnitude of i as a Uint.
func (i Int) Abs() *Uint {
	return i.U.Clone()
}

// Add returns i + oth as a new Int.
func (i Int) Add(oth *Int) *Int {
	if i.negative == oth.negative {
		return IntFromUint(Sum(i.U, oth.U), i.negative)
	}
	d, flip := UintZero().Delta(i.U, oth.U)
	if flip {
		return IntFromUint(d, oth.negative)
	}
	return IntFromUint(d, i.negative)
}

// Sub returns i - oth as a new Int.
func (i Int) Sub(oth *Int) *Int {
	return i.Add(oth.Neg())
}

// EQ returns true if i == oth.
func (i Int) EQ(oth *Int) bool {
	return i.negative == oth.negative && i.U.EQ(oth.U)
}

// LT returns true if i < oth.
func (i Int) LT(oth *Int) bool {
	if i.negative != oth.negative {
		return i.negative
	}
	if i.negative {
		return i.U.GT(oth.U)
	}
	return i.U.LT(oth.U)
}

// GT returns true if i > oth.
func (i Int) GT(oth *Int) bool {
	return !i.LT(oth) && !i.EQ(oth)
}

// Clone returns a copy of i.
func (i Int) Clone() *Int {
	return &Int{U: i.U.Clone(), negative: i.negative}
}

// ToDecimal returns the value as a Decimal.
func (i Int) ToDecimal() Decimal {
	d := DecimalFromUint(i.U)
	if i.negative {
		return d.Neg()
	}
	return d
}

// String returns the value as a base 10 string.
func (i Int) String() string {
	if i.negative {
		return "-" + i.U.String()
	}
	return i.U.String()
}
