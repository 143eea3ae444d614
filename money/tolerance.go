package money

// CommodityRounding describes how a commodity rounds balance-tolerance
// comparisons. Beancount's half-away-from-zero rounding is intentionally
// not a member: only RoundUp and RoundDown are meaningful here.
type CommodityRounding = RoundingMode

// ToleranceConfig holds the precision/rounding fallback chain used when a
// commodity doesn't declare its own: ledger-wide default_balance_tolerance_precision
// and default_rounding options, defaulting further to DefaultPrecision/DefaultRounding
// when the ledger declares neither.
type ToleranceConfig struct {
	DefaultPrecision int32
	DefaultRounding  RoundingMode
}

// NewToleranceConfig returns the built-in fallback: two fractional digits,
// rounded down.
func NewToleranceConfig() *ToleranceConfig {
	return &ToleranceConfig{
		DefaultPrecision: 2,
		DefaultRounding:  RoundDown,
	}
}

// Resolve picks the precision/rounding to use for a commodity that may not
// declare either, falling back to the ledger-wide defaults.
func (c *ToleranceConfig) Resolve(precision *int32, rounding *RoundingMode) (int32, RoundingMode) {
	if c == nil {
		c = NewToleranceConfig()
	}
	p := c.DefaultPrecision
	if precision != nil {
		p = *precision
	}
	r := c.DefaultRounding
	if rounding != nil {
		r = *rounding
	}
	return p, r
}
