package ledger

import (
	"time"

	"github.com/ledgerfold/ledgerfold/money"
)

// costEqual reports whether two optional lot costs match for upsert
// purposes: both absent, or both present with equal number and currency.
func costEqual(a, b *money.Amount) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Currency == b.Currency && a.Number.Equal(b.Number)
}

// upsertLot adds amount of commodity at cost to lots, merging into an
// existing lot with the same (commodity, cost) key or appending a new one.
func upsertLot(lots []*Lot, commodity string, cost *money.Amount, amount money.Decimal, acquired time.Time, hasAcquired bool) []*Lot {
	for _, l := range lots {
		if l.Commodity == commodity && costEqual(l.Cost, cost) {
			l.Amount = l.Amount.Add(amount)
			return lots
		}
	}
	return append(lots, &Lot{
		Commodity:     commodity,
		Cost:          cost,
		Amount:        amount,
		AcquiredAt:    acquired,
		HasAcquiredAt: hasAcquired,
	})
}

// reduceLots removes amount (a positive magnitude) of commodity from lots
// under the given booking method, optionally restricted to lots whose cost
// currency matches costCurrency. It returns the updated lot list (with
// drained lots removed) and any shortfall that could not be matched -
// positive shortfall means the caller should record LotNotFound. Grounded
// on the teacher's reduceWithBooking: NONE appends a new, unmatched
// negative lot; AVERAGE merges every matching lot into one before
// reducing; FIFO/STRICT/unset and LIFO both match in insertion order,
// differing only in which end they drain from first.
func reduceLots(lots []*Lot, commodity string, costCurrency string, hasCostCurrency bool, amount money.Decimal, bookingMethod string) ([]*Lot, money.Decimal) {
	switch bookingMethod {
	case "NONE":
		return reduceLotsNone(lots, commodity, costCurrency, hasCostCurrency, amount)
	case "AVERAGE":
		return reduceLotsAverage(lots, commodity, amount)
	case "LIFO":
		return reduceLotsOrdered(lots, commodity, costCurrency, hasCostCurrency, amount, true)
	default: // "", "STRICT", "FIFO"
		return reduceLotsOrdered(lots, commodity, costCurrency, hasCostCurrency, amount, false)
	}
}

// reduceLotsNone records the reduction as its own unmatched negative lot,
// allowing the account to carry lots of mixed sign rather than matching
// against existing ones.
func reduceLotsNone(lots []*Lot, commodity string, costCurrency string, hasCostCurrency bool, amount money.Decimal) ([]*Lot, money.Decimal) {
	var cost *money.Amount
	if hasCostCurrency {
		c := money.NewAmount(money.Zero, costCurrency)
		cost = &c
	}
	return append(lots, &Lot{Commodity: commodity, Cost: cost, Amount: amount.Neg()}), money.Zero
}

// reduceLotsOrdered matches lots in insertion order (lifo reverses that
// order) and drains them front-to-back until amount is exhausted.
func reduceLotsOrdered(lots []*Lot, commodity string, costCurrency string, hasCostCurrency bool, amount money.Decimal, lifo bool) ([]*Lot, money.Decimal) {
	var indices []int
	for i, l := range lots {
		if l.Commodity == commodity && (!hasCostCurrency || (l.Cost != nil && l.Cost.Currency == costCurrency)) {
			indices = append(indices, i)
		}
	}
	if lifo {
		for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
			indices[i], indices[j] = indices[j], indices[i]
		}
	}

	remaining := amount
	drained := map[int]bool{}
	for _, idx := range indices {
		if remaining.IsZero() {
			break
		}
		l := lots[idx]
		if l.Amount.LessThanOrEqual(remaining) {
			remaining = remaining.Sub(l.Amount)
			drained[idx] = true
			continue
		}
		l.Amount = l.Amount.Sub(remaining)
		remaining = money.Zero
	}

	result := make([]*Lot, 0, len(lots))
	for i, l := range lots {
		if !drained[i] {
			result = append(result, l)
		}
	}
	return result, remaining
}

// reduceLotsAverage merges every lot of commodity into one amount-weighted
// average-cost lot, then reduces from it.
func reduceLotsAverage(lots []*Lot, commodity string, amount money.Decimal) ([]*Lot, money.Decimal) {
	total := money.Zero
	weightedCost := money.Zero
	hasCost := false
	var costCurrency string
	others := make([]*Lot, 0, len(lots))

	for _, l := range lots {
		if l.Commodity != commodity {
			others = append(others, l)
			continue
		}
		total = total.Add(l.Amount)
		if l.Cost != nil {
			hasCost = true
			costCurrency = l.Cost.Currency
			weightedCost = weightedCost.Add(l.Cost.Number.Mul(l.Amount))
		}
	}

	if total.IsZero() {
		return lots, amount
	}

	remaining := total.Sub(amount)
	shortfall := money.Zero
	if remaining.IsNegative() {
		shortfall = remaining.Neg()
		remaining = money.Zero
	}
	if remaining.IsZero() {
		return others, shortfall
	}

	var cost *money.Amount
	if hasCost {
		c := money.NewAmount(weightedCost.Div(total), costCurrency)
		cost = &c
	}
	return append(others, &Lot{Commodity: commodity, Cost: cost, Amount: remaining}), shortfall
}
