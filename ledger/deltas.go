package ledger

// Delta Architecture
//
// Each Handler splits processing into a pure Validate step and an explicit
// Apply step. Validate inspects the Store and the incoming directive and
// returns both the errors it found and a delta value describing the
// mutation Apply should perform; Apply never re-derives anything Validate
// already computed. This keeps validation pure and inspectable (a delta can
// be logged or diffed before it's applied), and keeps Apply a straight-line
// sequence of Store writes with no branching left to do.

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerfold/ledgerfold/ast"
	"github.com/ledgerfold/ledgerfold/model"
	"github.com/ledgerfold/ledgerfold/money"
)

// InventoryOperation says whether a lot delta adds to or reduces a
// commodity position.
type InventoryOperation int

const (
	OpAdd InventoryOperation = iota
	OpReduce
)

// InventoryChange is one account/commodity lot mutation produced by
// validating a transaction's postings.
type InventoryChange struct {
	Account   model.AccountName
	Commodity string
	Amount    money.Decimal // always positive; Operation says the direction
	Cost      *money.Amount
	Operation InventoryOperation
}

// postingPlan is the validated, fully-resolved plan for one posting: its
// final declared/inferred amount and running balances, ready for Apply to
// append as a Posting row.
type postingPlan struct {
	posting        *ast.Posting
	account        model.AccountName
	declared       *money.Amount
	inferredAmount money.Amount
	previousAmount money.Amount
	afterAmount    money.Amount
	cost           *money.Amount
}

// TransactionDelta is the validated plan for a Transaction directive.
type TransactionDelta struct {
	ID               uuid.UUID
	Sequence         uint64
	Date             time.Time
	Flag             string
	Payee            string
	Narration        string
	Tags             []string
	Links            []string
	Span             ast.Position
	Postings         []postingPlan
	InventoryChanges []InventoryChange
}

// BalanceDelta is the validated plan for a BalanceCheck/BalancePad directive.
type BalanceDelta struct {
	Account          model.AccountName
	Actual           money.Amount
	Expected         money.Amount
	Mismatch         bool
	PadSynthesized   *ast.Transaction // non-nil when this came from a Pad
}

// OpenDelta is the validated plan for an Open directive.
type OpenDelta struct {
	Record *AccountRecord
}

// CloseDelta is the validated plan for a Close directive.
type CloseDelta struct {
	Account model.AccountName
	Known   bool
	NonZero bool
}

// CommodityDelta is the validated plan for a Commodity directive.
type CommodityDelta struct {
	Record *CommodityRecord
}

// PriceDelta is the validated plan for a Price directive.
type PriceDelta struct {
	Row *Price
}

// DocumentDelta is the validated plan for a Document directive.
type DocumentDelta struct {
	Row *Document
}
