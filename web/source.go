package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	beancountErrors "github.com/ledgerfold/ledgerfold/errors"
	"github.com/ledgerfold/ledgerfold/ledger"
	"github.com/ledgerfold/ledgerfold/loader"
)

type SourceResponse struct {
	Filepath string                      `json:"filepath"`
	Source   string                      `json:"source"`
	Errors   []beancountErrors.ErrorJSON `json:"errors"`
}

// resolveFilepath extracts the filepath from the request's query parameters,
// falling back to the server's configured ledger file, and validates the
// result stays within that file's directory tree.
func (s *Server) resolveFilepath(r *http.Request) (string, error) {
	path := r.URL.Query().Get("filepath")
	if path == "" {
		if s.ledgerFile == "" {
			return "", fmt.Errorf("no filepath provided and no default ledger file configured")
		}
		return s.ledgerFile, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid filepath: %w", err)
	}
	if err := s.validateFilepath(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// validateFilepath ensures path resolves (through any symlinks) to somewhere
// inside the configured ledger file's directory, rejecting both relative
// (../) and symlink-based traversal out of it.
func (s *Server) validateFilepath(path string) error {
	if s.ledgerFile == "" {
		return nil
	}

	allowedDir := filepath.Dir(s.ledgerFile)
	absAllowedDir, err := filepath.EvalSymlinks(allowedDir)
	if err != nil {
		return fmt.Errorf("invalid allowed directory: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolvedParent, err := filepath.EvalSymlinks(filepath.Dir(path))
		if err != nil {
			return fmt.Errorf("access denied: invalid path")
		}
		resolvedPath = filepath.Join(resolvedParent, filepath.Base(path))
	}

	relPath, err := filepath.Rel(absAllowedDir, resolvedPath)
	if err != nil {
		return fmt.Errorf("access denied: cannot determine relative path")
	}
	if len(relPath) >= 2 && relPath[:2] == ".." {
		return fmt.Errorf("access denied: filepath outside allowed directory")
	}

	return nil
}

// validateAndBuildResponse parses and folds source, returning it alongside
// every parse and fold error found.
func (s *Server) validateAndBuildResponse(ctx context.Context, filename string, source []byte) (*SourceResponse, error) {
	var errorList []error

	ldr := loader.New(loader.WithFollowIncludes())
	tree, err := ldr.LoadBytes(ctx, filename, source)
	if err != nil {
		errorList = append(errorList, err)
	}

	if tree != nil {
		ops := ledger.NewOperations()
		ops.Fold(tree)
		for _, e := range ops.Errors() {
			errorList = append(errorList, e)
		}
	}

	jsonFormatter := beancountErrors.NewJSONFormatter()
	var errorsJSON []beancountErrors.ErrorJSON
	if len(errorList) > 0 {
		jsonStr := jsonFormatter.FormatAll(errorList)
		if err := json.Unmarshal([]byte(jsonStr), &errorsJSON); err != nil {
			return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
		}
	}

	return &SourceResponse{
		Filepath: filename,
		Source:   string(source),
		Errors:   errorsJSON,
	}, nil
}

// handleGetSource handles GET requests to /api/source, returning the file's
// content and its validation errors.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	filename, err := s.resolveFilepath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	response, err := s.validateAndBuildResponse(r.Context(), filename, content)
	if err != nil {
		http.Error(w, "Failed to validate source", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, response)
}
