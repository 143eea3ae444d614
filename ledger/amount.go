package ledger

import (
	"fmt"

	"github.com/ledgerfold/ledgerfold/ast"
	"github.com/ledgerfold/ledgerfold/money"
)

// parseAmount converts a parsed ast.Amount into a money.Amount, preserving
// the exact decimal representation the lexer captured.
func parseAmount(a *ast.Amount) (money.Amount, error) {
	if a == nil {
		return money.Amount{}, fmt.Errorf("nil amount")
	}
	d, err := money.NewFromString(a.Value)
	if err != nil {
		return money.Amount{}, err
	}
	return money.NewAmount(d, a.Currency), nil
}

// tolerance resolves the (precision, rounding) pair to use for currency,
// falling back through the commodity record to the ledger-wide option
// defaults when the commodity doesn't declare its own.
func (s *Store) tolerance(currency string) (int32, money.RoundingMode) {
	precision := defaultTolerancePrecision(s.Options)
	rounding := optionRounding(s.Options)

	if c, ok := s.Commodities[currency]; ok {
		if c.HasPrecision {
			precision = c.Precision
		}
		if c.HasRounding {
			rounding = c.Rounding
		}
	}
	return precision, rounding
}

// toleranceAmount is the inferred balance tolerance for currency: one unit
// in the currency's last significant digit, scaled by
// inferred_tolerance_multiplier. Grounded on the teacher's InferTolerance
// (tolerance = 10^minExp * multiplier), adapted to this store's
// precision-based tolerance() instead of scanning posting literals for
// their minimum exponent.
func (s *Store) toleranceAmount(currency string) money.Decimal {
	precision, _ := s.tolerance(currency)
	unit, err := money.NewFromString(fmt.Sprintf("1e-%d", precision))
	if err != nil {
		return money.Zero
	}
	return unit.Mul(optionMultiplier(s.Options))
}
