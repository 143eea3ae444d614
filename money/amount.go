package money

import "fmt"

// Amount is a decimal number paired with a currency code. Two amounts never
// mix currencies implicitly: Add/Sub return ErrCurrencyMismatch when the
// currencies differ.
type Amount struct {
	Number   Decimal
	Currency string
}

// NewAmount constructs an Amount.
func NewAmount(number Decimal, currency string) Amount {
	return Amount{Number: number, Currency: currency}
}

// Add returns a+b. Both must share a currency.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}
	return Amount{Number: a.Number.Add(b.Number), Currency: a.Currency}, nil
}

// Sub returns a-b. Both must share a currency.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}
	return Amount{Number: a.Number.Sub(b.Number), Currency: a.Currency}, nil
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Currency: a.Currency}
}

// IsZeroRounded reports whether the amount rounds to zero under precision/mode.
func (a Amount) IsZeroRounded(precision int32, mode RoundingMode) bool {
	return a.Number.IsZeroRounded(precision, mode)
}

// String renders "Number Currency".
func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Number.String(), a.Currency)
}

// SumByCurrency sums a list of amounts grouped by currency.
func SumByCurrency(amounts []Amount) map[string]Decimal {
	totals := make(map[string]Decimal, len(amounts))
	for _, a := range amounts {
		totals[a.Currency] = totals[a.Currency].Add(a.Number)
	}
	return totals
}
