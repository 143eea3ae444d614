package ledger

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerfold/ledgerfold/ast"
	"github.com/ledgerfold/ledgerfold/model"
	"github.com/ledgerfold/ledgerfold/money"
)

// Operations is the sole legal access path to a Store. Every read takes
// the shared guard; every mutation (fold-time only) takes the exclusive
// guard for the duration of a single directive's processing.
type Operations struct {
	mu    sync.RWMutex
	store *Store
}

// NewOperations wraps a fresh, empty store.
func NewOperations() *Operations {
	return &Operations{store: NewStore()}
}

// Reset atomically replaces the store with a fresh one, as happens at the
// start of every reload.
func (o *Operations) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.store = NewStore()
}

// ---- reads ----

// Option returns an option value and whether it was set.
func (o *Operations) Option(key string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.store.Options[key]
	return v, ok
}

// AllAccounts returns every known account name, sorted.
func (o *Operations) AllAccounts() []model.AccountName {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]model.AccountName, 0, len(o.store.Accounts))
	for n := range o.store.Accounts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// AllOpenAccounts returns every account currently open, sorted.
func (o *Operations) AllOpenAccounts() []model.AccountName {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var names []model.AccountName
	for n, rec := range o.store.Accounts {
		if rec.Status == model.StatusOpen {
			names = append(names, n)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// AllPayees returns the distinct, sorted set of payees seen across all transactions.
func (o *Operations) AllPayees() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	seen := map[string]bool{}
	for _, t := range o.store.Transactions {
		if t.Payee != "" {
			seen[t.Payee] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// TransactionCounts returns the number of stored transactions.
func (o *Operations) TransactionCounts() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.store.Transactions)
}

// TransactionSpan returns the source span of a transaction, if found.
func (o *Operations) TransactionSpan(id uuid.UUID) (ast.Position, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.store.Transactions[id]
	if !ok {
		return ast.Position{}, false
	}
	return t.Span, true
}

// TrxTags returns the tags attached to a transaction.
func (o *Operations) TrxTags(id uuid.UUID) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.store.Transactions[id]
	if !ok {
		return nil
	}
	return t.Tags
}

// TrxLinks returns the links attached to a transaction.
func (o *Operations) TrxLinks(id uuid.UUID) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.store.Transactions[id]
	if !ok {
		return nil
	}
	return t.Links
}

// Errors returns every recorded error, in fold order.
func (o *Operations) Errors() []*StoredError {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*StoredError, len(o.store.Errors))
	copy(out, o.store.Errors)
	return out
}

// Metas returns the metadata entries for one (kind, identifier) pair.
func (o *Operations) Metas(kind MetaKind, identifier string) []*MetaEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []*MetaEntry
	for _, m := range o.store.Metas {
		if m.Kind == kind && m.Identifier == identifier {
			out = append(out, m)
		}
	}
	return out
}

// accountPostings returns every posting against account, in fold order.
func (s *Store) accountPostings(account model.AccountName) []*Posting {
	var out []*Posting
	for _, p := range s.Postings {
		if p.Account == account {
			out = append(out, p)
		}
	}
	return out
}

// SingleAccountBalances returns the latest balance of account in every
// currency it has ever posted in.
func (o *Operations) SingleAccountBalances(account model.AccountName) []money.Amount {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.store.latestBalanceAsOf(account, nil)
}

// AccountTargetDateBalance returns account's balance as of target (inclusive).
func (o *Operations) AccountTargetDateBalance(account model.AccountName, target time.Time) []money.Amount {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.store.latestBalanceAsOf(account, &target)
}

// latestBalanceAsOf groups postings by currency and keeps, within each
// currency, the posting with the greatest trx datetime (tie-break: greatest
// trx sequence), reporting its after_amount. asOf nil means no upper bound.
func (s *Store) latestBalanceAsOf(account model.AccountName, asOf *time.Time) []money.Amount {
	best := map[string]*Posting{}
	for _, p := range s.accountPostings(account) {
		if asOf != nil && p.TrxDate.After(*asOf) {
			continue
		}
		cur := p.AfterAmount.Currency
		b, ok := best[cur]
		if !ok || p.TrxDate.After(b.TrxDate) || (p.TrxDate.Equal(b.TrxDate) && p.TrxSequence > b.TrxSequence) {
			best[cur] = p
		}
	}
	currencies := make([]string, 0, len(best))
	for c := range best {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	out := make([]money.Amount, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, best[c].AfterAmount)
	}
	return out
}

// AccountsLatestBalance returns the latest per-currency balance for every
// account, keyed by account name.
func (o *Operations) AccountsLatestBalance() map[model.AccountName][]money.Amount {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := map[model.AccountName][]money.Amount{}
	for name := range o.store.Accounts {
		out[name] = o.store.latestBalanceAsOf(name, nil)
	}
	return out
}

// AccountChildren returns the direct child segments of account among every
// known account name, one level deep. A child is synthesized even when no
// account was itself opened at that exact intermediate path, as long as some
// known account has it as a prefix — grounded on the teacher's
// Account.GetChildren prefix-scan, generalized from "child must itself be an
// opened account" to "child must prefix some opened account," since
// spec.md's Store has no graph table of intermediate grouping nodes.
func (o *Operations) AccountChildren(account model.AccountName) []model.AccountName {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return childrenOf(o.store.Accounts, account)
}

func childrenOf(accounts map[model.AccountName]*AccountRecord, account model.AccountName) []model.AccountName {
	prefix := string(account) + ":"
	seen := map[model.AccountName]bool{}
	var children []model.AccountName
	for name := range accounts {
		full := string(name)
		if !strings.HasPrefix(full, prefix) {
			continue
		}
		remainder := full[len(prefix):]
		first := remainder
		if i := strings.IndexByte(remainder, ':'); i >= 0 {
			first = remainder[:i]
		}
		child := model.AccountName(string(account) + ":" + first)
		if !seen[child] {
			seen[child] = true
			children = append(children, child)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	return children
}

// AccountSubtreeBalance returns account's own latest balance plus every
// descendant account's, summed by currency — grounded on the teacher's
// Account.GetSubtreeBalance, computed on demand from the accounts map rather
// than a stored aggregate.
func (o *Operations) AccountSubtreeBalance(account model.AccountName) []money.Amount {
	o.mu.RLock()
	defer o.mu.RUnlock()

	totals := map[string]money.Decimal{}
	var order []string
	add := func(name model.AccountName) {
		for _, amt := range o.store.latestBalanceAsOf(name, nil) {
			if cur, ok := totals[amt.Currency]; ok {
				totals[amt.Currency] = cur.Add(amt.Number)
			} else {
				totals[amt.Currency] = amt.Number
				order = append(order, amt.Currency)
			}
		}
	}

	if _, ok := o.store.Accounts[account]; ok {
		add(account)
	}
	prefix := string(account) + ":"
	for name := range o.store.Accounts {
		if strings.HasPrefix(string(name), prefix) {
			add(name)
		}
	}

	sort.Strings(order)
	out := make([]money.Amount, 0, len(order))
	for _, c := range order {
		out = append(out, money.NewAmount(totals[c], c))
	}
	return out
}

// AccountJournals returns account's postings sorted (trx_datetime DESC, trx_sequence DESC).
func (o *Operations) AccountJournals(account model.AccountName) []*Posting {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := o.store.accountPostings(account)
	sortJournal(out)
	return out
}

// DatedJournals returns every posting whose transaction date falls within
// [from, to], sorted (trx_datetime DESC, trx_sequence DESC).
func (o *Operations) DatedJournals(from, to time.Time) []*Posting {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []*Posting
	for _, p := range o.store.Postings {
		if !p.TrxDate.Before(from) && !p.TrxDate.After(to) {
			out = append(out, p)
		}
	}
	sortJournal(out)
	return out
}

// AccountDatedJournals restricts DatedJournals to accounts of the given type.
func (o *Operations) AccountDatedJournals(accountType model.AccountType, from, to time.Time) []*Posting {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []*Posting
	for _, p := range o.store.Postings {
		if p.Account.Type() != accountType {
			continue
		}
		if !p.TrxDate.Before(from) && !p.TrxDate.After(to) {
			out = append(out, p)
		}
	}
	sortJournal(out)
	return out
}

func sortJournal(postings []*Posting) {
	sort.Slice(postings, func(i, j int) bool {
		if !postings[i].TrxDate.Equal(postings[j].TrxDate) {
			return postings[i].TrxDate.After(postings[j].TrxDate)
		}
		return postings[i].TrxSequence > postings[j].TrxSequence
	})
}

// StaticDuration returns, per account and currency, the net change in
// balance between from and to: the latest balance as of to minus the
// latest balance as of from (accounts untouched in the window are omitted).
func (o *Operations) StaticDuration(from, to time.Time) map[model.AccountName][]money.Amount {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := map[model.AccountName][]money.Amount{}
	for name := range o.store.Accounts {
		before := amountsByCurrency(o.store.latestBalanceAsOf(name, &from))
		after := amountsByCurrency(o.store.latestBalanceAsOf(name, &to))
		if len(after) == 0 {
			continue
		}
		var deltas []money.Amount
		for cur, a := range after {
			b, ok := before[cur]
			if !ok {
				b = money.NewAmount(money.Zero, cur)
			}
			d, _ := a.Sub(b)
			if !d.Number.IsZero() {
				deltas = append(deltas, d)
			}
		}
		if len(deltas) > 0 {
			sort.Slice(deltas, func(i, j int) bool { return deltas[i].Currency < deltas[j].Currency })
			out[name] = deltas
		}
	}
	return out
}

func amountsByCurrency(amounts []money.Amount) map[string]money.Amount {
	m := make(map[string]money.Amount, len(amounts))
	for _, a := range amounts {
		m[a.Currency] = a
	}
	return m
}

// GetPrice returns the earliest recorded price for (from, to) with a
// datetime no later than at. This is the literal, spec-mandated semantic:
// earliest-on-or-before, not latest-on-or-before.
func (o *Operations) GetPrice(at time.Time, from, to string) (Price, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var best *Price
	for _, p := range o.store.Prices {
		if p.From != from || p.To != to || p.Date.After(at) {
			continue
		}
		if best == nil || p.Date.Before(best.Date) {
			best = p
		}
	}
	if best == nil {
		return Price{}, false
	}
	return *best, true
}

// GetLatestPrice returns the price with the maximum datetime, no upper bound.
func (o *Operations) GetLatestPrice(from, to string) (Price, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var best *Price
	for _, p := range o.store.Prices {
		if p.From != from || p.To != to {
			continue
		}
		if best == nil || p.Date.After(best.Date) {
			best = p
		}
	}
	if best == nil {
		return Price{}, false
	}
	return *best, true
}

// AllPrices returns every recorded price observation, sorted by date then
// by (from, to) pair.
func (o *Operations) AllPrices() []Price {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Price, len(o.store.Prices))
	for i, p := range o.store.Prices {
		out[i] = *p
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// CommodityPrices returns every price entry involving commodity, either as
// source or target.
func (o *Operations) CommodityPrices(commodity string) []Price {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []Price
	for _, p := range o.store.Prices {
		if p.From == commodity || p.To == commodity {
			out = append(out, *p)
		}
	}
	return out
}

// CommodityLots returns every lot held in commodity across all accounts.
func (o *Operations) CommodityLots(commodity string) map[model.AccountName][]Lot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := map[model.AccountName][]Lot{}
	for account, lots := range o.store.CommodityLots {
		for _, l := range lots {
			if l.Commodity == commodity {
				out[account] = append(out[account], *l)
			}
		}
	}
	return out
}

// GetCommodityBalances sums lot amounts for commodity across Assets and
// Liabilities accounts only.
func (o *Operations) GetCommodityBalances(commodity string) money.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	total := money.Zero
	for account, lots := range o.store.CommodityLots {
		t := account.Type()
		if t != model.Assets && t != model.Liabilities {
			continue
		}
		for _, l := range lots {
			if l.Commodity == commodity {
				total = total.Add(l.Amount)
			}
		}
	}
	return total
}

// ---- mutations (fold-time only) ----
//
// These act directly on a *Store with no locking of their own: the fold
// (Operations.foldOne, in orchestrator.go) takes the exclusive guard once
// per directive and calls straight through to them. Taking the guard again
// in here would deadlock sync.RWMutex, which isn't reentrant.

// insertOrUpdateAccount creates account if unknown, or refreshes its
// declared fields if already present, preserving the original open date.
func (s *Store) insertOrUpdateAccount(rec *AccountRecord) {
	if existing, ok := s.Accounts[rec.Name]; ok {
		rec.OpenDate = existing.OpenDate
	}
	s.Accounts[rec.Name] = rec
}

// closeAccount sets an account's status to Close. Silent if unknown.
func (s *Store) closeAccount(name model.AccountName, date time.Time) {
	rec, ok := s.Accounts[name]
	if !ok {
		return
	}
	rec.Status = model.StatusClosed
	rec.CloseDate = date
}

// insertCommodity upserts a commodity record.
func (s *Store) insertCommodity(rec *CommodityRecord) {
	s.Commodities[rec.Name] = rec
}

// nextSeq returns the next monotone transaction sequence number.
func (s *Store) nextSeq() uint64 {
	s.nextSequence++
	return s.nextSequence
}

// insertTransaction appends a transaction header.
func (s *Store) insertTransaction(h *TransactionHeader) {
	s.Transactions[h.ID] = h
}

// insertTransactionPosting appends a posting row. The caller must have
// already verified the owning transaction exists.
func (s *Store) insertTransactionPosting(p *Posting) {
	s.Postings = append(s.Postings, p)
}

// insertPrice appends a price observation.
func (s *Store) insertPrice(p *Price) {
	s.Prices = append(s.Prices, p)
}

// insertDocument appends a document attachment.
func (s *Store) insertDocument(d *Document) {
	s.Documents = append(s.Documents, d)
}

// insertMeta upserts one metadata entry, keyed on (kind, identifier, key).
func (s *Store) insertMeta(m *MetaEntry) {
	for _, existing := range s.Metas {
		if existing.Kind == m.Kind && existing.Identifier == m.Identifier && existing.Key == m.Key {
			existing.Value = m.Value
			return
		}
	}
	s.Metas = append(s.Metas, m)
}

// insertOrUpdateOptions merges key/value pairs into the options table.
func (s *Store) insertOrUpdateOptions(kv map[string]string) {
	for k, v := range kv {
		s.Options[k] = v
	}
}

// insertAccountLot appends or merges a lot into account's lot list.
func (s *Store) insertAccountLot(account model.AccountName, commodity string, cost *money.Amount, amount money.Decimal, acquired time.Time, hasAcquired bool) {
	s.CommodityLots[account] = upsertLot(s.CommodityLots[account], commodity, cost, amount, acquired, hasAcquired)
}

// updateAccountLot reduces account's lots in commodity (optionally
// restricted to costCurrency) by amount, booked under account's declared
// BookingMethod (defaulting to FIFO when the account left it unset),
// returning any shortfall that could not be satisfied.
func (s *Store) updateAccountLot(account model.AccountName, commodity, costCurrency string, hasCostCurrency bool, amount money.Decimal) money.Decimal {
	method := "FIFO"
	if rec, ok := s.Accounts[account]; ok && rec.BookingMethod != "" {
		method = rec.BookingMethod
	}
	updated, shortfall := reduceLots(s.CommodityLots[account], commodity, costCurrency, hasCostCurrency, amount, method)
	s.CommodityLots[account] = updated
	return shortfall
}

// newError records an error.
func (s *Store) newError(e *StoredError) {
	s.Errors = append(s.Errors, e)
}

// account returns the account record, if known.
func (s *Store) account(name model.AccountName) (*AccountRecord, bool) {
	rec, ok := s.Accounts[name]
	return rec, ok
}

// commodity returns the commodity record, if known.
func (s *Store) commodity(name string) (*CommodityRecord, bool) {
	rec, ok := s.Commodities[name]
	return rec, ok
}
