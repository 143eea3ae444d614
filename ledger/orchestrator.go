package ledger

import (
	"sort"

	"github.com/ledgerfold/ledgerfold/ast"
)

// canonicalPriority ranks a directive kind for same-date ordering: balance
// checks and pads run before everything else dated on that day, so an
// account's assertion sees every other directive's effect only once it has
// had its own chance to pad or fail first.
func canonicalPriority(k ast.DirectiveKind) int {
	switch k {
	case ast.KindBalance, ast.KindPad:
		return 0
	default:
		return 1
	}
}

// sortCanonical orders directives (date ASC, balance/pad before other kinds
// at equal date) and is stable: directives that tie on both fields keep
// their original relative order.
func sortCanonical(directives []ast.Directive) {
	sort.SliceStable(directives, func(i, j int) bool {
		di, dj := directives[i].GetDate(), directives[j].GetDate()
		if !di.Time.Equal(dj.Time) {
			return di.Time.Before(dj.Time)
		}
		return canonicalPriority(directives[i].Kind()) < canonicalPriority(directives[j].Kind())
	})
}

// Fold processes tree's options then its directives, in canonical order,
// into the store. It never replaces the store; call Reload for that.
func (o *Operations) Fold(tree *ast.AST) {
	o.mu.Lock()
	for _, opt := range tree.Options {
		o.store.Options[opt.Name.Value] = opt.Value.Value
	}
	o.mu.Unlock()

	directives := make([]ast.Directive, len(tree.Directives))
	copy(directives, tree.Directives)
	sortCanonical(directives)

	for _, d := range directives {
		o.foldOne(d)
	}
}

// foldOne validates and applies a single directive under one acquisition of
// the exclusive guard, so mutation logic never has to consider another
// directive running concurrently with it.
func (o *Operations) foldOne(d ast.Directive) {
	o.mu.Lock()
	defer o.mu.Unlock()

	h := GetHandler(d.Kind())
	if h == nil {
		return
	}
	delta, errs, abort := h.Validate(o.store, d)
	if abort {
		o.store.Errors = append(o.store.Errors, errs...)
		return
	}
	h.Apply(o.store, d, delta)
	o.store.Errors = append(o.store.Errors, errs...)
}

// Reload rebuilds the entire store from tree in isolation, then swaps it in
// atomically. Readers in flight against the old store see a consistent
// snapshot throughout; no reader ever observes a partially rebuilt ledger.
func (o *Operations) Reload(tree *ast.AST) {
	fresh := &Operations{store: NewStore()}
	fresh.Fold(tree)

	o.mu.Lock()
	o.store = fresh.store
	o.mu.Unlock()
}
