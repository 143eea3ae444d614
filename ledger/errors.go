package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerfold/ledgerfold/ast"
)

// newError builds a StoredError of the given kind, attaching span and
// metadata. Metadata pairs are given as alternating key, value strings.
func newError(kind ErrorKind, span *ast.Position, kv ...string) *StoredError {
	meta := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		meta[kv[i]] = kv[i+1]
	}
	return &StoredError{
		ID:       uuid.New(),
		Kind:     kind,
		Span:     span,
		Metadata: meta,
	}
}

// Error implements the error interface, so a *StoredError can be handed to
// the cli/errors renderers directly.
func (e *StoredError) Error() string {
	if len(e.Metadata) == 0 {
		return string(e.Kind)
	}
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, e.Metadata[k])
	}
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(parts, ", "))
}

// GetPosition implements the renderer's optional position-aware interface.
func (e *StoredError) GetPosition() ast.Position {
	if e.Span == nil {
		return ast.Position{}
	}
	return *e.Span
}
