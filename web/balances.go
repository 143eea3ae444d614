package web

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ledgerfold/ledgerfold/ledger"
	"github.com/ledgerfold/ledgerfold/model"
	"github.com/ledgerfold/ledgerfold/money"
)

// BalancesResponse is the JSON response structure for the balances endpoint.
type BalancesResponse struct {
	Roots      []*BalanceNodeResponse `json:"roots"`
	Currencies []string               `json:"currencies"`
	StartDate  *string                `json:"startDate,omitempty"`
	EndDate    *string                `json:"endDate,omitempty"`
}

// BalanceNodeResponse represents one node of the account hierarchy, carrying
// its own balance plus every descendant's, keyed by currency.
type BalanceNodeResponse struct {
	Name     string                 `json:"name"`
	Account  string                 `json:"account,omitempty"`
	Depth    int                    `json:"depth"`
	Balance  map[string]string      `json:"balance"`
	Children []*BalanceNodeResponse `json:"children,omitempty"`
}

// handleGetBalances handles GET requests to /api/balances.
//
// Query parameters:
//   - types: comma-separated account types (Assets,Liabilities,Equity,Income,Expenses).
//     If omitted, every type is returned (a trial balance).
//   - startDate, endDate: YYYY-MM-DD.
//
// Date semantics:
//   - both omitted: current balance of every account.
//   - startDate == endDate: balance as of that date (balance sheet).
//   - startDate < endDate: net change over the period (income statement).
func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	ops := s.operations()

	var types []model.AccountType
	if param := r.URL.Query().Get("types"); param != "" {
		for _, t := range strings.Split(param, ",") {
			name := strings.TrimSpace(t)
			switch model.AccountType(name) {
			case model.Assets, model.Liabilities, model.Equity, model.Income, model.Expenses:
				types = append(types, model.AccountType(name))
			default:
				http.Error(w, "invalid account type: "+t, http.StatusBadRequest)
				return
			}
		}
	} else {
		types = []model.AccountType{model.Assets, model.Liabilities, model.Equity, model.Income, model.Expenses}
	}

	startParam := r.URL.Query().Get("startDate")
	endParam := r.URL.Query().Get("endDate")
	if (startParam == "") != (endParam == "") {
		http.Error(w, "both startDate and endDate must be provided together, or neither", http.StatusBadRequest)
		return
	}

	var balances map[model.AccountName][]money.Amount
	var startDate, endDate *string
	current := startParam == ""

	switch {
	case current:
		// Current balances are rolled up on demand via
		// Operations.AccountSubtreeBalance; no snapshot map needed.

	default:
		start, err := time.Parse("2006-01-02", startParam)
		if err != nil {
			http.Error(w, "invalid startDate format (expected YYYY-MM-DD): "+startParam, http.StatusBadRequest)
			return
		}
		end, err := time.Parse("2006-01-02", endParam)
		if err != nil {
			http.Error(w, "invalid endDate format (expected YYYY-MM-DD): "+endParam, http.StatusBadRequest)
			return
		}
		if end.Before(start) {
			http.Error(w, "endDate must not be before startDate", http.StatusBadRequest)
			return
		}
		startDate, endDate = &startParam, &endParam

		if start.Equal(end) {
			balances = map[model.AccountName][]money.Amount{}
			for _, name := range ops.AllAccounts() {
				if amts := ops.AccountTargetDateBalance(name, end); len(amts) > 0 {
					balances[name] = amts
				}
			}
		} else {
			balances = ops.StaticDuration(start, end)
		}
	}

	roots, currencies := buildBalanceTree(ops, types, balances, current)

	writeJSONResponse(w, &BalancesResponse{
		Roots:      roots,
		Currencies: currencies,
		StartDate:  startDate,
		EndDate:    endDate,
	})
}

// buildBalanceTree assembles one root per requested type, walking the
// account hierarchy via Operations.AccountChildren rather than re-deriving
// it from colon-separated account name segments locally. When current is
// set, each node's total comes straight from Operations.AccountSubtreeBalance
// (the store's live state); otherwise node totals are rolled up from the
// already-resolved balances snapshot (an as-of date or a period's net
// change), which AccountSubtreeBalance cannot represent since it always
// reports the store's current balance.
func buildBalanceTree(ops *ledger.Operations, types []model.AccountType, balances map[model.AccountName][]money.Amount, current bool) ([]*BalanceNodeResponse, []string) {
	currencySet := map[string]bool{}
	roots := make([]*BalanceNodeResponse, 0, len(types))

	for _, t := range types {
		root := model.AccountName(t)
		node, ok := buildAccountNode(ops, root, 0, balances, current, currencySet)
		if !ok {
			continue
		}
		node.Name = string(t)
		node.Account = ""
		sortChildren(node)
		roots = append(roots, node)
	}

	currencies := make([]string, 0, len(currencySet))
	for c := range currencySet {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	return roots, currencies
}

// buildAccountNode recursively assembles the subtree rooted at account.
// Every node AccountChildren returns is guaranteed to have at least one real
// descendant account, so once reached it always contributes something;
// whether the node itself is worth keeping depends on current/isLeaf below.
func buildAccountNode(ops *ledger.Operations, account model.AccountName, depth int, balances map[model.AccountName][]money.Amount, current bool, currencySet map[string]bool) (*BalanceNodeResponse, bool) {
	children := ops.AccountChildren(account)

	node := &BalanceNodeResponse{Name: lastSegment(account), Account: string(account), Depth: depth, Balance: map[string]string{}}

	_, isLeaf := balances[account]
	active := false
	if current {
		active = depth > 0 || len(children) > 0
	} else {
		active = isLeaf
	}

	for _, child := range children {
		childNode, ok := buildAccountNode(ops, child, depth+1, balances, current, currencySet)
		if !ok {
			continue
		}
		active = true
		node.Children = append(node.Children, childNode)
	}

	if !active {
		return nil, false
	}

	if current {
		for _, a := range ops.AccountSubtreeBalance(account) {
			currencySet[a.Currency] = true
			addAmount(node.Balance, a)
		}
		return node, true
	}

	if isLeaf {
		for _, a := range balances[account] {
			currencySet[a.Currency] = true
			addAmount(node.Balance, a)
		}
	}
	for _, child := range node.Children {
		for currency, value := range child.Balance {
			addRawAmount(node.Balance, currency, value)
		}
	}

	return node, true
}

// lastSegment returns the final colon-separated component of account.
func lastSegment(account model.AccountName) string {
	s := string(account)
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func addRawAmount(balance map[string]string, currency, value string) {
	amount, err := money.NewFromString(value)
	if err != nil {
		return
	}
	addAmount(balance, money.NewAmount(amount, currency))
}

func addAmount(balance map[string]string, a money.Amount) {
	existing, ok := balance[a.Currency]
	if !ok {
		balance[a.Currency] = a.Number.String()
		return
	}
	sum, err := money.NewFromString(existing)
	if err != nil {
		balance[a.Currency] = a.Number.String()
		return
	}
	balance[a.Currency] = sum.Add(a.Number).String()
}

func sortChildren(node *BalanceNodeResponse) {
	sort.Slice(node.Children, func(i, j int) bool { return node.Children[i].Name < node.Children[j].Name })
	for _, c := range node.Children {
		sortChildren(c)
	}
}
