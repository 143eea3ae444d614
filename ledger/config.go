package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerfold/ledgerfold/model"
	"github.com/ledgerfold/ledgerfold/money"
)

// defaultOptions are prepended to the options table before the directive
// stream's own Option directives are folded, so user options always win.
var defaultOptions = map[string]string{
	"title":                               "",
	"operating_currency":                  "",
	"default_rounding":                    "RoundDown",
	"default_balance_tolerance_precision": "2",
	"timezone":                            "UTC",
	"default_commodity_precision":         "2",
	"inferred_tolerance_multiplier":       "0.5",
}

// optionRounding parses the default_rounding option, falling back to
// RoundDown on an absent or unrecognized value.
func optionRounding(opts map[string]string) money.RoundingMode {
	switch strings.ToUpper(opts["default_rounding"]) {
	case "ROUNDUP":
		return money.RoundUp
	default:
		return money.RoundDown
	}
}

// optionPrecision parses an integer-valued option, falling back to def.
func optionPrecision(opts map[string]string, key string, def int32) int32 {
	v, ok := opts[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return int32(n)
}

// defaultTolerancePrecision is the fold-wide fallback precision for
// balance and transaction-balancing arithmetic.
func defaultTolerancePrecision(opts map[string]string) int32 {
	return optionPrecision(opts, "default_balance_tolerance_precision", 2)
}

// defaultCommodityPrecision is the fallback precision assigned to a new
// commodity that doesn't declare its own.
func defaultCommodityPrecision(opts map[string]string) int32 {
	return optionPrecision(opts, "default_commodity_precision", 2)
}

// optionMultiplier parses the inferred_tolerance_multiplier option, falling
// back to 0.5 on an absent or unparseable value, matching the teacher's
// ToleranceConfig default multiplier.
func optionMultiplier(opts map[string]string) money.Decimal {
	v, ok := opts["inferred_tolerance_multiplier"]
	if !ok {
		v = "0.5"
	}
	m, err := money.NewFromString(v)
	if err != nil {
		m, _ = money.NewFromString("0.5")
	}
	return m
}

// accountRootOptionKeys maps each canonical account type to the option key
// that can rename it, matching the teacher's AccountNamesConfig.
var accountRootOptionKeys = map[model.AccountType]string{
	model.Assets:      "name_assets",
	model.Liabilities: "name_liabilities",
	model.Equity:      "name_equity",
	model.Income:      "name_income",
	model.Expenses:    "name_expenses",
}

// accountRootAliases resolves the ledger-wide root renames declared via
// name_assets/name_liabilities/name_equity/name_income/name_expenses,
// returning a map from the configured (or default) root spelling to its
// canonical model.AccountType.
func accountRootAliases(opts map[string]string) map[string]model.AccountType {
	aliases := make(map[string]model.AccountType, len(accountRootOptionKeys))
	for canonical, key := range accountRootOptionKeys {
		name := string(canonical)
		if v, ok := opts[key]; ok && v != "" {
			name = v
		}
		aliases[name] = canonical
	}
	return aliases
}

// parseAccountName validates raw against the store's configured account
// root names (falling back to the canonical Assets/Liabilities/Equity/
// Income/Expenses spellings), then returns the account under its
// canonical root so every internal lookup keys on one spelling regardless
// of which alias the source file used.
func (s *Store) parseAccountName(raw string) (model.AccountName, error) {
	idx := strings.IndexByte(raw, ':')
	if idx < 0 {
		return "", fmt.Errorf("account must have at least two segments: %q", raw)
	}
	root := raw[:idx]
	canonical, ok := accountRootAliases(s.Options)[root]
	if !ok {
		return model.ParseAccountName(raw)
	}
	return model.ParseAccountName(string(canonical) + raw[idx:])
}
