// Package ledger implements the semantic core: a relational store of
// accounts, commodities, transactions, prices, and lots, plus the
// directive processors that fold a canonically-ordered directive stream
// into it. Operations wraps the Store with a read-write guard; the Store's
// own helpers are unexported and take no lock, and the directive handlers
// call them only while Operations holds the guard.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerfold/ledgerfold/ast"
	"github.com/ledgerfold/ledgerfold/model"
	"github.com/ledgerfold/ledgerfold/money"
)

// AccountRecord is the stored state of one account.
type AccountRecord struct {
	Name                 model.AccountName
	Status               model.AccountStatus
	OpenDate             time.Time
	CloseDate            time.Time
	ConstraintCurrencies []string // empty: any commodity permitted
	BookingMethod        string
}

// AllowsCommodity reports whether currency is permitted on postings against a.
func (a *AccountRecord) AllowsCommodity(currency string) bool {
	if len(a.ConstraintCurrencies) == 0 {
		return true
	}
	for _, c := range a.ConstraintCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// CommodityRecord is the stored state of one commodity or currency.
type CommodityRecord struct {
	Name      string
	Precision int32
	Prefix    string
	Suffix    string
	Rounding  money.RoundingMode
	HasPrecision bool // false until set explicitly or defaulted at first use
	HasRounding  bool
}

// TransactionHeader is the stored, immutable header of one transaction.
type TransactionHeader struct {
	ID        uuid.UUID
	Sequence  uint64
	Date      time.Time
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Span      ast.Position
}

// Posting is one leg of a transaction, stored denormalized so balance
// queries never need to join against the transaction table.
type Posting struct {
	ID              uuid.UUID
	TransactionID   uuid.UUID
	TrxSequence     uint64
	TrxDate         time.Time
	Account         model.AccountName
	DeclaredAmount  *money.Amount // nil if this was the elision posting
	Cost            *money.Amount
	InferredAmount  money.Amount
	PreviousAmount  money.Amount
	AfterAmount     money.Amount
}

// Price is one observed exchange rate at a point in time.
type Price struct {
	Date   time.Time
	From   string
	To     string
	Rate   money.Decimal
}

// Lot is a quantity of a commodity held at a specific cost basis within one account.
type Lot struct {
	Commodity string
	Cost      *money.Amount // nil: no cost basis tracked
	Amount    money.Decimal
	AcquiredAt time.Time
	HasAcquiredAt bool
}

// DocumentAttachment discriminates what a Document directive is attached to.
type DocumentAttachment struct {
	TransactionID uuid.UUID
	HasTransaction bool
	Account        model.AccountName
}

// Document records an external file linked to a transaction or account.
type Document struct {
	Date     time.Time
	Attached DocumentAttachment
	Filename string
	Path     string
}

// MetaKind discriminates what a MetaEntry annotates.
type MetaKind string

const (
	MetaAccount     MetaKind = "account"
	MetaCommodity   MetaKind = "commodity"
	MetaTransaction MetaKind = "transaction"
)

// MetaEntry is one key-value annotation, key-unique per (kind, identifier).
type MetaEntry struct {
	Kind       MetaKind
	Identifier string
	Key        string
	Value      string
}

// ErrorKind enumerates the semantic and structural errors the folder can
// raise while processing a directive stream.
type ErrorKind string

const (
	ErrAccountBalanceCheck           ErrorKind = "AccountBalanceCheckError"
	ErrAccountDoesNotExist           ErrorKind = "AccountDoesNotExist"
	ErrAccountClosed                 ErrorKind = "AccountClosed"
	ErrTransactionNotBalanced        ErrorKind = "TransactionNotBalanced"
	ErrTransactionMultipleImplicit   ErrorKind = "TransactionHasMultipleImplicitPosting"
	ErrTransactionWithoutAccount     ErrorKind = "TransactionWithoutAccount"
	ErrCommodityDoesNotDefine        ErrorKind = "CommodityDoesNotDefine"
	ErrInvalidAccount                ErrorKind = "InvalidAccount"
	ErrLotNotFound                   ErrorKind = "LotNotFound"
	ErrPriceOmitted                  ErrorKind = "PriceOmitted"
	ErrCloseNonZeroAccount           ErrorKind = "CloseNonZeroAccount"
)

// StoredError is one recorded semantic or structural error.
type StoredError struct {
	ID       uuid.UUID
	Kind     ErrorKind
	Span     *ast.Position
	Metadata map[string]string
}

// Store holds every table named by the data model. Its unexported insert,
// update and query helpers (in ops.go) take no lock; Operations holds the
// guard around every call to them.
type Store struct {
	Options       map[string]string
	Accounts      map[model.AccountName]*AccountRecord
	Commodities   map[string]*CommodityRecord
	Transactions  map[uuid.UUID]*TransactionHeader
	Postings      []*Posting
	Prices        []*Price
	CommodityLots map[model.AccountName][]*Lot
	Documents     []*Document
	Metas         []*MetaEntry
	Errors        []*StoredError

	// pendingPads tracks Pad directives awaiting the next BalanceCheck on
	// their account. It is fold-local bookkeeping, not one of the data
	// model's tables, and holds at most one pad per account at a time.
	pendingPads map[model.AccountName]model.AccountName

	nextSequence uint64
}

// NewStore returns an empty store with builtin option defaults pre-seeded.
func NewStore() *Store {
	s := &Store{
		Options:       map[string]string{},
		Accounts:      map[model.AccountName]*AccountRecord{},
		Commodities:   map[string]*CommodityRecord{},
		Transactions:  map[uuid.UUID]*TransactionHeader{},
		CommodityLots: map[model.AccountName][]*Lot{},
		pendingPads:   map[model.AccountName]model.AccountName{},
	}
	for k, v := range defaultOptions {
		s.Options[k] = v
	}
	return s
}
