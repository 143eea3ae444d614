// Package money provides the arbitrary-precision decimal arithmetic used
// throughout the ledger's semantic core. Every monetary value is a
// (number, currency) pair; no binary floating point ever appears in a
// semantic path.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned whenever an operation requiring matching
// currencies is given mismatched ones. Currencies never mix silently.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// RoundingMode selects how a Decimal is rounded to a fixed number of
// fractional digits. Half-away-from-zero is intentionally not offered:
// the ledger only ever rounds up or down.
type RoundingMode int

const (
	// RoundDown truncates toward zero.
	RoundDown RoundingMode = iota
	// RoundUp rounds away from zero on any non-zero remainder.
	RoundUp
)

// Decimal is an arbitrary-precision signed decimal number.
type Decimal struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: decimal.Zero}

// NewFromString parses a decimal literal exactly as written, preserving
// the precision of the input (e.g. "10.00" keeps two fractional digits).
func NewFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Decimal{d: d}, nil
}

// NewFromInt constructs a Decimal from an integer.
func NewFromInt(v int64) Decimal {
	return Decimal{d: decimal.NewFromInt(v)}
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{d: d.d.Add(other.d)}
}

// Sub returns d - other.
func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{d: d.d.Sub(other.d)}
}

// Neg returns -d.
func (d Decimal) Neg() Decimal {
	return Decimal{d: d.d.Neg()}
}

// Mul returns d * other.
func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{d: d.d.Mul(other.d)}
}

// Div returns d / other.
func (d Decimal) Div(other Decimal) Decimal {
	return Decimal{d: d.d.Div(other.d)}
}

// Abs returns |d|.
func (d Decimal) Abs() Decimal {
	return Decimal{d: d.d.Abs()}
}

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than other.
func (d Decimal) Cmp(other Decimal) int {
	return d.d.Cmp(other.d)
}

// Equal reports whether d and other are numerically equal (no rounding).
func (d Decimal) Equal(other Decimal) bool {
	return d.d.Equal(other.d)
}

// GreaterThan reports whether d > other.
func (d Decimal) GreaterThan(other Decimal) bool { return d.d.GreaterThan(other.d) }

// LessThan reports whether d < other.
func (d Decimal) LessThan(other Decimal) bool { return d.d.LessThan(other.d) }

// GreaterThanOrEqual reports whether d >= other.
func (d Decimal) GreaterThanOrEqual(other Decimal) bool { return d.d.GreaterThanOrEqual(other.d) }

// LessThanOrEqual reports whether d <= other.
func (d Decimal) LessThanOrEqual(other Decimal) bool { return d.d.LessThanOrEqual(other.d) }

// IsZero reports whether d is exactly zero (no rounding applied).
func (d Decimal) IsZero() bool {
	return d.d.IsZero()
}

// IsNegative reports whether d < 0.
func (d Decimal) IsNegative() bool {
	return d.d.IsNegative()
}

// Sign returns -1, 0, or 1.
func (d Decimal) Sign() int {
	return d.d.Sign()
}

// String renders d in fixed-point notation with trailing fractional zeros
// removed, so "10.00" renders as "10".
func (d Decimal) String() string {
	return d.d.String()
}

// Exponent returns the decimal's base-10 exponent (negative for fractional
// values), used to infer tolerance from the precision of a literal.
func (d Decimal) Exponent() int32 {
	return d.d.Exponent()
}

// Round rounds d to precision fractional digits using mode. RoundDown
// truncates toward zero; RoundUp rounds away from zero whenever truncation
// would drop a non-zero remainder.
func (d Decimal) Round(precision int32, mode RoundingMode) Decimal {
	truncated := d.d.Truncate(precision)
	if mode == RoundDown {
		return Decimal{d: truncated}
	}

	if truncated.Equal(d.d) {
		return Decimal{d: truncated}
	}

	unit := decimal.New(1, -precision)
	if d.d.IsNegative() {
		unit = unit.Neg()
	}
	return Decimal{d: truncated.Add(unit)}
}

// IsZeroRounded is the canonical equality-to-zero test: round to precision
// under mode, then test for exact zero.
func (d Decimal) IsZeroRounded(precision int32, mode RoundingMode) bool {
	return d.Round(precision, mode).IsZero()
}
