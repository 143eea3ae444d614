// Package web provides a minimal read-only HTTP surface over a ledger.
//
// It serves the current balance tree and the raw source plus its validation
// errors as JSON. There is no write endpoint and no bundled frontend: the
// server exists for dashboards and scripts to poll, not to edit files.
//
// SECURITY WARNING: this server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/ledgerfold/ledgerfold/ledger"
	"github.com/ledgerfold/ledgerfold/loader"
	"github.com/ledgerfold/ledgerfold/telemetry"
)

type Server struct {
	Port      int
	Host      string
	Version   string
	CommitSHA string
	ReadOnly  bool

	mu         sync.RWMutex
	ops        *ledger.Operations
	ledgerFile string
}

func New(port int, ledgerFile string) *Server {
	return NewWithVersion(port, ledgerFile, "", "")
}

func NewWithVersion(port int, ledgerFile, version, commitSHA string) *Server {
	return &Server{
		Port:       port,
		Host:       "127.0.0.1",
		Version:    version,
		CommitSHA:  commitSHA,
		ledgerFile: ledgerFile,
	}
}

func (s *Server) Start(ctx context.Context) error {
	collector := telemetry.FromContext(ctx)
	timer := collector.Start(fmt.Sprintf("web.start %s:%d", s.Host, s.Port))
	defer timer.End()

	if s.ledgerFile == "" {
		return fmt.Errorf("ledger file is required")
	}

	loadTimer := timer.Child(fmt.Sprintf("web.load_ledger %s", filepath.Base(s.ledgerFile)))
	if err := s.reloadLedger(ctx); err != nil {
		loadTimer.End()
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	loadTimer.End()

	mux := s.setupRouter()

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) setupRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/source", s.handleGetSource)
	mux.HandleFunc("GET /api/accounts", s.handleGetAccounts)
	mux.HandleFunc("GET /api/balances", s.handleGetBalances)

	return mux
}

// reloadLedger loads (or reloads) the ledger from disk. The caller must not
// hold s.mu; this acquires it internally only to swap in the new snapshot.
func (s *Server) reloadLedger(ctx context.Context) error {
	ldr := loader.New(loader.WithFollowIncludes())

	tree, err := ldr.Load(ctx, s.ledgerFile)
	if err != nil {
		return err
	}

	ops := ledger.NewOperations()
	ops.Fold(tree)

	s.mu.Lock()
	s.ops = ops
	s.mu.Unlock()

	return nil
}

func (s *Server) operations() *ledger.Operations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops
}

func writeJSONResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
