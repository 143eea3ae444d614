package parser

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/ledgerfold/ledgerfold/ast"
)

func TestParseMetadataValueTypes(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantType   string
		wantString string
	}{
		{
			name:       "String",
			source:     "2024-01-01 * \"Test\"\n  key: \"INV-2024-001\"\n  Assets:Cash  100 USD",
			wantType:   "string",
			wantString: "INV-2024-001",
		},
		{
			name:       "Date",
			source:     "2024-01-01 * \"Test\"\n  trip-start: 2024-01-15\n  Assets:Cash  100 USD",
			wantType:   "date",
			wantString: "2024-01-15",
		},
		{
			name:       "Account",
			source:     "2024-01-01 * \"Test\"\n  linked: Assets:Checking\n  Assets:Cash  100 USD",
			wantType:   "account",
			wantString: "Assets:Checking",
		},
		{
			name:       "Currency",
			source:     "2024-01-01 * \"Test\"\n  target: USD\n  Assets:Cash  100 USD",
			wantType:   "currency",
			wantString: "USD",
		},
		{
			name:       "Tag",
			source:     "2024-01-01 * \"Test\"\n  category: #vacation\n  Assets:Cash  100 USD",
			wantType:   "tag",
			wantString: "vacation",
		},
		{
			name:       "Link",
			source:     "2024-01-01 * \"Test\"\n  ref: ^invoice123\n  Assets:Cash  100 USD",
			wantType:   "link",
			wantString: "invoice123",
		},
		{
			name:       "Number",
			source:     "2024-01-01 * \"Test\"\n  quantity: 42\n  Assets:Cash  100 USD",
			wantType:   "number",
			wantString: "42",
		},
		{
			name:       "NumberDecimal",
			source:     "2024-01-01 * \"Test\"\n  quantity: 42.5\n  Assets:Cash  100 USD",
			wantType:   "number",
			wantString: "42.5",
		},
		{
			name:       "NumberNegative",
			source:     "2024-01-01 * \"Test\"\n  quantity: -42.5\n  Assets:Cash  100 USD",
			wantType:   "number",
			wantString: "-42.5",
		},
		{
			name:       "Amount",
			source:     "2024-01-01 * \"Test\"\n  budget: 1000.00 USD\n  Assets:Cash  100 USD",
			wantType:   "amount",
			wantString: "1000.00 USD",
		},
		{
			name:       "BooleanTrue",
			source:     "2024-01-01 * \"Test\"\n  active: TRUE\n  Assets:Cash  100 USD",
			wantType:   "boolean",
			wantString: "TRUE",
		},
		{
			name:       "BooleanFalse",
			source:     "2024-01-01 * \"Test\"\n  active: FALSE\n  Assets:Cash  100 USD",
			wantType:   "boolean",
			wantString: "FALSE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseString(context.Background(), tt.source)
			assert.NoError(t, err)
			assert.NotEqual(t, nil, parsed)
			assert.Equal(t, 1, len(parsed.Directives))

			txn, ok := parsed.Directives[0].(*ast.Transaction)
			assert.True(t, ok, "expected transaction")
			assert.Equal(t, 1, len(txn.Metadata))

			meta := txn.Metadata[0]
			assert.Equal(t, tt.wantType, meta.Value.Type())
			assert.Equal(t, tt.wantString, meta.Value.String())
		})
	}
}

func TestParseMetadataMultipleTypes(t *testing.T) {
	source := `
2024-01-01 * "Test transaction with various metadata"
  invoice: "INV-2024-001"
  trip-start: 2024-01-15
  linked-account: Assets:Checking
  target-currency: USD
  category: #vacation
  ref: ^invoice123
  quantity: 42
  budget: 1000.00 EUR
  active: TRUE
  Assets:Cash  -1000 USD
  Expenses:Travel
`

	parsed, err := ParseString(context.Background(), source)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(parsed.Directives))

	txn, ok := parsed.Directives[0].(*ast.Transaction)
	assert.True(t, ok)

	assert.Equal(t, 9, len(txn.Metadata))

	// Check each metadata type
	expectedTypes := []string{"string", "date", "account", "currency", "tag", "link", "number", "amount", "boolean"}
	for i, expected := range expectedTypes {
		if i < len(txn.Metadata) {
			assert.Equal(t, expected, txn.Metadata[i].Value.Type(), "metadata at index %d", i)
		}
	}
}

func TestParsePostingMetadata(t *testing.T) {
	source := `
2024-01-01 * "Test"
  Assets:Cash  100 USD
    confirmation: "CONF123"
    ref-num: 42
  Expenses:Food
`

	parsed, err := ParseString(context.Background(), source)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(parsed.Directives))

	txn, ok := parsed.Directives[0].(*ast.Transaction)
	assert.True(t, ok)
	assert.Equal(t, 2, len(txn.Postings))

	posting := txn.Postings[0]
	assert.Equal(t, 2, len(posting.Metadata))
	assert.Equal(t, "string", posting.Metadata[0].Value.Type())
	assert.Equal(t, "CONF123", posting.Metadata[0].Value.String())
	assert.Equal(t, "number", posting.Metadata[1].Value.Type())
	assert.Equal(t, "42", posting.Metadata[1].Value.String())
}

func TestParseCommodityMetadata(t *testing.T) {
	source := `
2024-01-01 commodity USD
  name: "US Dollar"
  asset-class: "cash"
  precision: 2
`

	parsed, err := ParseString(context.Background(), source)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(parsed.Directives))

	commodity, ok := parsed.Directives[0].(*ast.Commodity)
	assert.True(t, ok)
	assert.Equal(t, 3, len(commodity.Metadata))

	// All should be strings or numbers
	assert.Equal(t, "string", commodity.Metadata[0].Value.Type())
	assert.Equal(t, "US Dollar", commodity.Metadata[0].Value.String())
	assert.Equal(t, "string", commodity.Metadata[1].Value.Type())
	assert.Equal(t, "cash", commodity.Metadata[1].Value.String())
	assert.Equal(t, "number", commodity.Metadata[2].Value.Type())
	assert.Equal(t, "2", commodity.Metadata[2].Value.String())
}

func TestParseMetadataEdgeCases(t *testing.T) {
	t.Run("EmptyString", func(t *testing.T) {
		source := `2024-01-01 * "Test"
  key: ""
  Assets:Cash  100 USD`

		parsed, err := ParseString(context.Background(), source)
		assert.NoError(t, err)
		txn := parsed.Directives[0].(*ast.Transaction)
		assert.Equal(t, "string", txn.Metadata[0].Value.Type())
		assert.Equal(t, "", txn.Metadata[0].Value.String())
	})

	t.Run("AccountVsCurrency", func(t *testing.T) {
		// Without colon = currency
		source1 := `2024-01-01 * "Test"
  curr: USD
  Assets:Cash  100 USD`

		parsed, err := ParseString(context.Background(), source1)
		assert.NoError(t, err)
		txn := parsed.Directives[0].(*ast.Transaction)
		assert.Equal(t, "currency", txn.Metadata[0].Value.Type())

		// With colon = account
		source2 := `2024-01-01 * "Test"
  acct: Assets:Cash
  Assets:Cash  100 USD`

		parsed, err = ParseString(context.Background(), source2)
		assert.NoError(t, err)
		txn = parsed.Directives[0].(*ast.Transaction)
		assert.Equal(t, "account", txn.Metadata[0].Value.Type())
	})

	t.Run("NumberVsAmount", func(t *testing.T) {
		// Just number
		source1 := `2024-01-01 * "Test"
  qty: 42
  Assets:Cash  100 USD`

		parsed, err := ParseString(context.Background(), source1)
		assert.NoError(t, err)
		txn := parsed.Directives[0].(*ast.Transaction)
		assert.Equal(t, "number", txn.Metadata[0].Value.Type())

		// Number with currency = amount
		source2 := `2024-01-01 * "Test"
  amount: 42 USD
  Assets:Cash  100 USD`

		parsed, err = ParseString(context.Background(), source2)
		assert.NoError(t, err)
		txn = parsed.Directives[0].(*ast.Transaction)
		assert.Equal(t, "amount", txn.Metadata[0].Value.Type())
	})

	t.Run("BooleanVsCurrency", func(t *testing.T) {
		// TRUE/FALSE = boolean
		source1 := `2024-01-01 * "Test"
  flag: TRUE
  Assets:Cash  100 USD`

		parsed, err := ParseString(context.Background(), source1)
		assert.NoError(t, err)
		txn := parsed.Directives[0].(*ast.Transaction)
		assert.Equal(t, "boolean", txn.Metadata[0].Value.Type())

		// Other uppercase ident = currency
		source2 := `2024-01-01 * "Test"
  curr: EUR
  Assets:Cash  100 USD`

		parsed, err = ParseString(context.Background(), source2)
		assert.NoError(t, err)
		txn = parsed.Directives[0].(*ast.Transaction)
		assert.Equal(t, "currency", txn.Metadata[0].Value.Type())
	})
}

func TestParseMetadataWithPrecision(t *testing.T) {
	source := `
2024-01-01 * "High precision test"
  price: 0.00000001 BTC
  ratio: 3.141592653589793
  Assets:Cash  100 USD
  Expenses:Food
`

	parsed, err := ParseString(context.Background(), source)
	assert.NoError(t, err)
	txn := parsed.Directives[0].(*ast.Transaction)

	// Amount with high precision
	assert.Equal(t, "amount", txn.Metadata[0].Value.Type())
	assert.Equal(t, "0.00000001 BTC", txn.Metadata[0].Value.String())

	// Number with high precision
	assert.Equal(t, "number", txn.Metadata[1].Value.Type())
	assert.Equal(t, "3.141592653589793", txn.Metadata[1].Value.String())
}
