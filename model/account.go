// Package model holds the domain types of the directive algebra that are
// independent of any particular surface syntax: account names and their
// five-way type classification, and account lifecycle status. The parser's
// ast.Account is a validated string token; model.AccountName is the same
// concept promoted to a first-class domain value with type extraction.
package model

import (
	"fmt"
	"strings"
)

// AccountType is one of the five root categories every account name must
// begin with.
type AccountType string

const (
	Assets      AccountType = "Assets"
	Liabilities AccountType = "Liabilities"
	Equity      AccountType = "Equity"
	Income      AccountType = "Income"
	Expenses    AccountType = "Expenses"
)

// AccountStatus is whether an account is currently open for postings.
type AccountStatus int

const (
	StatusOpen AccountStatus = iota
	StatusClosed
)

// AccountName is a validated, colon-separated hierarchical account name:
// Type:Segment1:Segment2… Two account names are equal iff their canonical
// strings are equal.
type AccountName string

// ParseAccountName validates s and returns it as an AccountName, or an error
// if it has fewer than two colon-separated segments.
func ParseAccountName(s string) (AccountName, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("account must have at least two segments: %q", s)
	}
	switch AccountType(parts[0]) {
	case Assets, Liabilities, Equity, Income, Expenses:
	default:
		return "", fmt.Errorf("unknown account type %q in %q", parts[0], s)
	}
	for _, seg := range parts[1:] {
		if seg == "" {
			return "", fmt.Errorf("empty account segment in %q", s)
		}
	}
	return AccountName(s), nil
}

// Type returns the account's root type.
func (a AccountName) Type() AccountType {
	idx := strings.IndexByte(string(a), ':')
	if idx < 0 {
		return AccountType(a)
	}
	return AccountType(a[:idx])
}

// Parent returns the account name one level up, or "" if a has only one
// segment below its type.
func (a AccountName) Parent() AccountName {
	idx := strings.LastIndexByte(string(a), ':')
	if idx < 0 || idx == strings.IndexByte(string(a), ':') {
		return ""
	}
	return a[:idx]
}

// IsDescendantOf reports whether a is other or a proper descendant of other.
func (a AccountName) IsDescendantOf(other AccountName) bool {
	if a == other {
		return true
	}
	return strings.HasPrefix(string(a), string(other)+":")
}

// String implements fmt.Stringer.
func (a AccountName) String() string { return string(a) }
