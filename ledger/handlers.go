package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerfold/ledgerfold/ast"
	"github.com/ledgerfold/ledgerfold/model"
	"github.com/ledgerfold/ledgerfold/money"
)

// Handler is the per-directive-kind semantic processor. Validate inspects
// the store and returns both any errors found and the delta Apply should
// commit; Apply performs the mutation described by delta with no further
// decisions left to make. abort means a structural failure occurred and
// Apply must not run.
type Handler interface {
	Validate(s *Store, d ast.Directive) (delta any, errs []*StoredError, abort bool)
	Apply(s *Store, d ast.Directive, delta any)
}

var handlerRegistry = map[ast.DirectiveKind]Handler{
	ast.KindOpen:        openHandler{},
	ast.KindClose:       closeHandler{},
	ast.KindCommodity:   commodityHandler{},
	ast.KindTransaction: transactionHandler{},
	ast.KindBalance:     balanceHandler{},
	ast.KindPad:         padHandler{},
	ast.KindPrice:       priceHandler{},
	ast.KindDocument:    documentHandler{},
	ast.KindNote:        noopHandler{},
	ast.KindEvent:       noopHandler{},
	ast.KindCustom:      noopHandler{},
}

// GetHandler looks up the processor for kind, or nil if none is registered.
func GetHandler(kind ast.DirectiveKind) Handler {
	return handlerRegistry[kind]
}

// noopHandler backs Note/Event/Custom: parsed and retained upstream, no
// store effect in the core.
type noopHandler struct{}

func (noopHandler) Validate(*Store, ast.Directive) (any, []*StoredError, bool) { return nil, nil, false }
func (noopHandler) Apply(*Store, ast.Directive, any)                          {}

func applyMetadata(s *Store, kind MetaKind, identifier string, metas []*ast.Metadata) {
	for _, m := range metas {
		s.insertMeta(&MetaEntry{Kind: kind, Identifier: identifier, Key: m.Key, Value: m.Value.String()})
	}
}

// ---- Open ----

type openHandler struct{}

func (openHandler) Validate(s *Store, d ast.Directive) (any, []*StoredError, bool) {
	open := d.(*ast.Open)
	pos := open.Position()

	name, err := s.parseAccountName(string(open.Account))
	if err != nil {
		return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "account", string(open.Account))}, true
	}

	rec := &AccountRecord{
		Name:                 name,
		Status:               model.StatusOpen,
		OpenDate:             open.Date.Time,
		ConstraintCurrencies: open.ConstraintCurrencies,
		BookingMethod:        open.BookingMethod,
	}
	return &OpenDelta{Record: rec}, nil, false
}

func (openHandler) Apply(s *Store, d ast.Directive, delta any) {
	open := d.(*ast.Open)
	rec := delta.(*OpenDelta).Record
	s.insertOrUpdateAccount(rec)
	applyMetadata(s, MetaAccount, string(rec.Name), open.Metadata)
}

// ---- Close ----

type closeHandler struct{}

func (closeHandler) Validate(s *Store, d ast.Directive) (any, []*StoredError, bool) {
	closeD := d.(*ast.Close)
	pos := closeD.Position()

	name, err := s.parseAccountName(string(closeD.Account))
	if err != nil {
		return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "account", string(closeD.Account))}, true
	}

	_, known := s.account(name)
	nonZero := false
	if known {
		for _, bal := range s.latestBalanceAsOf(name, nil) {
			if !bal.Number.IsZero() {
				nonZero = true
				break
			}
		}
	}

	var errs []*StoredError
	if nonZero {
		errs = append(errs, newError(ErrCloseNonZeroAccount, &pos, "account", string(name)))
	}
	return &CloseDelta{Account: name, Known: known, NonZero: nonZero}, errs, false
}

func (closeHandler) Apply(s *Store, d ast.Directive, delta any) {
	closeD := d.(*ast.Close)
	cd := delta.(*CloseDelta)
	if cd.Known {
		s.closeAccount(cd.Account, closeD.Date.Time)
	}
}

// ---- Commodity ----

type commodityHandler struct{}

func metaString(metas []*ast.Metadata, key string) (string, bool) {
	for _, m := range metas {
		if m.Key == key {
			return m.Value.String(), true
		}
	}
	return "", false
}

func (commodityHandler) Validate(s *Store, d ast.Directive) (any, []*StoredError, bool) {
	c := d.(*ast.Commodity)

	rec := &CommodityRecord{Name: c.Currency}
	if v, ok := metaString(c.Metadata, "precision"); ok {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil && p >= 0 {
			rec.Precision = int32(p)
			rec.HasPrecision = true
		}
	}
	if !rec.HasPrecision {
		rec.Precision = defaultCommodityPrecision(s.Options)
		rec.HasPrecision = true
	}
	if v, ok := metaString(c.Metadata, "prefix"); ok {
		rec.Prefix = v
	}
	if v, ok := metaString(c.Metadata, "suffix"); ok {
		rec.Suffix = v
	}
	if v, ok := metaString(c.Metadata, "rounding"); ok && v == "RoundUp" {
		rec.Rounding = money.RoundUp
		rec.HasRounding = true
	} else {
		rec.Rounding = optionRounding(s.Options)
		rec.HasRounding = true
	}

	return &CommodityDelta{Record: rec}, nil, false
}

func (commodityHandler) Apply(s *Store, d ast.Directive, delta any) {
	c := d.(*ast.Commodity)
	rec := delta.(*CommodityDelta).Record
	s.insertCommodity(rec)
	applyMetadata(s, MetaCommodity, rec.Name, c.Metadata)
}

// ---- Price ----

type priceHandler struct{}

func (priceHandler) Validate(s *Store, d ast.Directive) (any, []*StoredError, bool) {
	p := d.(*ast.Price)
	amount, err := parseAmount(p.Amount)
	if err != nil {
		pos := p.Position()
		return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "reason", err.Error())}, true
	}
	return &PriceDelta{Row: &Price{Date: p.Date.Time, From: p.Commodity, To: amount.Currency, Rate: amount.Number}}, nil, false
}

func (priceHandler) Apply(s *Store, d ast.Directive, delta any) {
	s.insertPrice(delta.(*PriceDelta).Row)
}

// ---- Document ----

type documentHandler struct{}

func (documentHandler) Validate(s *Store, d ast.Directive) (any, []*StoredError, bool) {
	doc := d.(*ast.Document)
	name, err := s.parseAccountName(string(doc.Account))
	if err != nil {
		pos := doc.Position()
		return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "account", string(doc.Account))}, true
	}
	row := &Document{
		Date:     doc.Date.Time,
		Attached: DocumentAttachment{Account: name},
		Path:     doc.PathToDocument.String(),
	}
	return &DocumentDelta{Row: row}, nil, false
}

func (documentHandler) Apply(s *Store, d ast.Directive, delta any) {
	s.insertDocument(delta.(*DocumentDelta).Row)
}

// ---- Balance (BalanceCheck / BalancePad fusion) ----

type balanceHandler struct{}

func (balanceHandler) Validate(s *Store, d ast.Directive) (any, []*StoredError, bool) {
	b := d.(*ast.Balance)
	pos := b.Position()

	name, err := s.parseAccountName(string(b.Account))
	if err != nil {
		return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "account", string(b.Account))}, true
	}
	expected, err := parseAmount(b.Amount)
	if err != nil {
		return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "reason", err.Error())}, true
	}

	actual := money.NewAmount(money.Zero, expected.Currency)
	for _, bal := range s.latestBalanceAsOf(name, &b.Date.Time) {
		if bal.Currency == expected.Currency {
			actual = bal
			break
		}
	}

	delta := &BalanceDelta{Account: name, Actual: actual, Expected: expected}

	if padAccount, ok := s.pendingPads[name]; ok {
		diff, _ := expected.Sub(actual)
		delete(s.pendingPads, name)
		if !diff.Number.IsZero() {
			txn := &ast.Transaction{
				Pos:  pos,
				Date: b.Date,
				Flag: "*",
				Postings: []*ast.Posting{
					{Pos: pos, Account: ast.Account(name), Amount: &ast.Amount{Value: diff.Number.String(), Currency: diff.Currency}},
					{Pos: pos, Account: ast.Account(padAccount), Amount: &ast.Amount{Value: diff.Neg().Number.String(), Currency: diff.Currency}},
				},
			}
			delta.PadSynthesized = txn
		}
		return delta, nil, false
	}

	precision, rounding := s.tolerance(expected.Currency)
	diff, _ := expected.Sub(actual)
	withinTolerance := diff.Number.IsZeroRounded(precision, rounding) || diff.Number.Abs().LessThanOrEqual(s.toleranceAmount(expected.Currency))
	if !withinTolerance {
		delta.Mismatch = true
		return delta, []*StoredError{newError(ErrAccountBalanceCheck, &pos,
			"account", string(name), "currency", expected.Currency,
			"expected", expected.Number.String(), "actual", actual.Number.String())}, false
	}
	return delta, nil, false
}

func (balanceHandler) Apply(s *Store, d ast.Directive, delta any) {
	bd := delta.(*BalanceDelta)
	if bd.PadSynthesized == nil {
		return
	}
	errs, abort := transactionHandlerProcess(s, bd.PadSynthesized)
	if !abort {
		s.Errors = append(s.Errors, errs...)
	}
}

// ---- Pad ----

type padHandler struct{}

func (padHandler) Validate(s *Store, d ast.Directive) (any, []*StoredError, bool) {
	p := d.(*ast.Pad)
	pos := p.Position()

	name, err := s.parseAccountName(string(p.Account))
	if err != nil {
		return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "account", string(p.Account))}, true
	}
	padAccount, err := s.parseAccountName(string(p.AccountPad))
	if err != nil {
		return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "account", string(p.AccountPad))}, true
	}
	return &PadDelta{Account: name, PadAccount: padAccount}, nil, false
}

func (padHandler) Apply(s *Store, d ast.Directive, delta any) {
	pd := delta.(*PadDelta)
	s.pendingPads[pd.Account] = pd.PadAccount
}

// PadDelta is the validated plan for a Pad directive: it registers a
// pending pad, to be consumed by the next BalanceCheck on Account.
type PadDelta struct {
	Account    model.AccountName
	PadAccount model.AccountName
}

// ---- Transaction ----

type transactionHandler struct{}

func (transactionHandler) Validate(s *Store, d ast.Directive) (any, []*StoredError, bool) {
	txn := d.(*ast.Transaction)
	delta, errs, abort := buildTransactionDelta(s, txn)
	return delta, errs, abort
}

func (transactionHandler) Apply(s *Store, d ast.Directive, delta any) {
	applyTransactionDelta(s, delta.(*TransactionDelta))
}

// transactionHandlerProcess runs validate+apply for a synthesized pad
// transaction inline, since it never passes through the orchestrator's
// directive stream.
func transactionHandlerProcess(s *Store, txn *ast.Transaction) ([]*StoredError, bool) {
	delta, errs, abort := buildTransactionDelta(s, txn)
	if abort {
		return errs, true
	}
	applyTransactionDelta(s, delta.(*TransactionDelta))
	return errs, false
}

func buildTransactionDelta(s *Store, txn *ast.Transaction) (*TransactionDelta, []*StoredError, bool) {
	pos := txn.Position()
	if len(txn.Postings) == 0 {
		return nil, []*StoredError{newError(ErrTransactionWithoutAccount, &pos)}, true
	}

	var errs []*StoredError
	sums := map[string]money.Decimal{}
	var elisionIdx = -1
	elisionCount := 0
	declaredAmounts := make([]*money.Amount, len(txn.Postings))

	for i, p := range txn.Postings {
		if p.Amount == nil {
			elisionCount++
			if elisionIdx == -1 {
				elisionIdx = i
			}
			continue
		}
		amt, err := parseAmount(p.Amount)
		if err != nil {
			return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "reason", err.Error())}, true
		}
		declaredAmounts[i] = &amt
		sums[amt.Currency] = sums[amt.Currency].Add(amt.Number)
	}
	if elisionCount > 1 {
		errs = append(errs, newError(ErrTransactionMultipleImplicit, &pos))
	}

	var elisionCurrency string
	var elisionAmount money.Decimal
	if elisionIdx >= 0 {
		switch len(sums) {
		case 0:
			elisionCurrency = ""
		case 1:
			for cur, sum := range sums {
				elisionCurrency = cur
				elisionAmount = sum.Neg()
			}
		default:
			// Ambiguous: more than one currency and only one elision slot.
			// Leave the elision at zero in every currency but the first
			// seen; the resulting imbalance is reported below.
			for _, amt := range declaredAmounts {
				if amt != nil {
					elisionCurrency = amt.Currency
					elisionAmount = sums[amt.Currency].Neg()
					break
				}
			}
		}
	}

	plans := make([]postingPlan, 0, len(txn.Postings))
	balances := map[string]money.Decimal{}
	for cur, sum := range sums {
		balances[cur] = sum
	}
	if elisionIdx >= 0 && elisionCurrency != "" {
		balances[elisionCurrency] = balances[elisionCurrency].Add(elisionAmount)
	}

	for i, p := range txn.Postings {
		name, err := s.parseAccountName(string(p.Account))
		if err != nil {
			return nil, []*StoredError{newError(ErrInvalidAccount, &pos, "account", string(p.Account))}, true
		}
		if rec, ok := s.account(name); !ok {
			errs = append(errs, newError(ErrAccountDoesNotExist, &pos, "account", string(name)))
		} else if rec.Status == model.StatusClosed && txn.Date.Time.After(rec.CloseDate) {
			errs = append(errs, newError(ErrAccountClosed, &pos, "account", string(name)))
		}

		declared := declaredAmounts[i]
		var inferred money.Amount
		var cost *money.Amount

		if i == elisionIdx {
			inferred = money.NewAmount(elisionAmount, elisionCurrency)
		} else {
			inferred = *declared
		}

		if p.Cost != nil && p.Cost.Amount != nil {
			c, err := parseAmount(p.Cost.Amount)
			if err == nil {
				cost = &c
			}
		} else if p.Price != nil {
			priceAmt, err := parseAmount(p.Price)
			if err == nil {
				rate := priceAmt.Number
				if p.PriceTotal && !inferred.Number.IsZero() {
					rate = rate.Div(inferred.Number.Abs())
				}
				c := money.NewAmount(rate, priceAmt.Currency)
				cost = &c
			}
		}

		if _, ok := s.commodity(inferred.Currency); !ok {
			if op, _ := s.Options["operating_currency"]; op != inferred.Currency {
				errs = append(errs, newError(ErrCommodityDoesNotDefine, &pos, "currency", inferred.Currency))
			}
		}

		previous := money.NewAmount(money.Zero, inferred.Currency)
		for _, bal := range s.latestBalanceAsOf(name, nil) {
			if bal.Currency == inferred.Currency {
				previous = bal
				break
			}
		}
		after, _ := previous.Add(inferred)

		plans = append(plans, postingPlan{
			posting:        p,
			account:        name,
			declared:       declared,
			inferredAmount: inferred,
			previousAmount: previous,
			afterAmount:    after,
			cost:           cost,
		})
	}

	for cur, sum := range balances {
		precision, rounding := s.tolerance(cur)
		withinTolerance := sum.IsZeroRounded(precision, rounding) || sum.Abs().LessThanOrEqual(s.toleranceAmount(cur))
		if !withinTolerance {
			errs = append(errs, newError(ErrTransactionNotBalanced, &pos, "currency", cur, "residual", sum.String()))
		}
	}

	var changes []InventoryChange
	for _, pl := range plans {
		if pl.cost == nil {
			continue
		}
		op := OpAdd
		amt := pl.inferredAmount.Number
		if amt.IsNegative() {
			op = OpReduce
			amt = amt.Abs()
		}
		changes = append(changes, InventoryChange{
			Account:   pl.account,
			Commodity: pl.inferredAmount.Currency,
			Amount:    amt,
			Cost:      pl.cost,
			Operation: op,
		})
	}

	links := make([]string, len(txn.Links))
	for i, l := range txn.Links {
		links[i] = string(l)
	}
	tags := make([]string, len(txn.Tags))
	for i, t := range txn.Tags {
		tags[i] = string(t)
	}

	return &TransactionDelta{
		ID:               uuid.New(),
		Sequence:         s.nextSeq(),
		Date:             txn.Date.Time,
		Flag:             txn.Flag,
		Payee:            txn.Payee.Value,
		Narration:        txn.Narration.Value,
		Tags:             tags,
		Links:            links,
		Span:             pos,
		Postings:         plans,
		InventoryChanges: changes,
	}, errs, false
}

func applyTransactionDelta(s *Store, delta *TransactionDelta) {
	header := &TransactionHeader{
		ID:        delta.ID,
		Sequence:  delta.Sequence,
		Date:      delta.Date,
		Flag:      delta.Flag,
		Payee:     delta.Payee,
		Narration: delta.Narration,
		Tags:      delta.Tags,
		Links:     delta.Links,
		Span:      delta.Span,
	}
	s.insertTransaction(header)

	for _, pl := range delta.Postings {
		s.insertTransactionPosting(&Posting{
			ID:             uuid.New(),
			TransactionID:  delta.ID,
			TrxSequence:    delta.Sequence,
			TrxDate:        header.Date,
			Account:        pl.account,
			DeclaredAmount: pl.declared,
			Cost:           pl.cost,
			InferredAmount: pl.inferredAmount,
			PreviousAmount: pl.previousAmount,
			AfterAmount:    pl.afterAmount,
		})
	}

	for _, c := range delta.InventoryChanges {
		switch c.Operation {
		case OpAdd:
			s.insertAccountLot(c.Account, c.Commodity, c.Cost, c.Amount, header.Date, true)
		case OpReduce:
			costCurrency := ""
			hasCostCurrency := c.Cost != nil
			if c.Cost != nil {
				costCurrency = c.Cost.Currency
			}
			shortfall := s.updateAccountLot(c.Account, c.Commodity, costCurrency, hasCostCurrency, c.Amount)
			if !shortfall.IsZero() {
				s.newError(newError(ErrLotNotFound, nil, "account", string(c.Account), "commodity", c.Commodity))
			}
		}
	}
}
