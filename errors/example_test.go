package errors_test

import (
	"fmt"

	"github.com/ledgerfold/ledgerfold/ast"
	"github.com/ledgerfold/ledgerfold/errors"
	"github.com/ledgerfold/ledgerfold/ledger"
)

// Example showing how to use TextFormatter for CLI output.
func ExampleTextFormatter() {
	span := &ast.Position{Filename: "test.beancount", Line: 10, Column: 1}
	err := &ledger.StoredError{
		Kind: ledger.ErrAccountDoesNotExist,
		Span: span,
		Metadata: map[string]string{
			"account": "Assets:Checking",
		},
	}

	formatter := errors.NewTextFormatter(nil, nil)
	output := formatter.Format(err)
	fmt.Println(output)
	// Output: AccountDoesNotExist: account=Assets:Checking
}

// Example showing how to use JSONFormatter for API/web output.
func ExampleJSONFormatter() {
	errs := []error{
		&ledger.StoredError{
			Kind: ledger.ErrAccountDoesNotExist,
			Span: &ast.Position{Filename: "test.beancount", Line: 10},
			Metadata: map[string]string{
				"account": "Assets:Checking",
			},
		},
		&ledger.StoredError{
			Kind: ledger.ErrAccountBalanceCheck,
			Span: &ast.Position{Filename: "test.beancount", Line: 20},
			Metadata: map[string]string{
				"account":  "Assets:Checking",
				"expected": "100",
				"actual":   "50",
				"currency": "USD",
			},
		},
	}

	// Format as JSON
	formatter := errors.NewJSONFormatter()
	jsonOutput := formatter.FormatAll(errs)
	fmt.Println(jsonOutput)
	// Output will be a JSON array with structured error information
}
