package web

import "net/http"

// AccountInfo represents basic information about a ledger account.
type AccountInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AccountsResponse is the JSON response structure for the accounts endpoint.
type AccountsResponse struct {
	Accounts []AccountInfo `json:"accounts"`
}

// handleGetAccounts handles GET requests to /api/accounts.
// Returns every known account, sorted alphabetically by name.
func (s *Server) handleGetAccounts(w http.ResponseWriter, r *http.Request) {
	ops := s.operations()

	names := ops.AllAccounts()
	accounts := make([]AccountInfo, 0, len(names))
	for _, name := range names {
		accounts = append(accounts, AccountInfo{
			Name: name.String(),
			Type: string(name.Type()),
		})
	}

	writeJSONResponse(w, &AccountsResponse{Accounts: accounts})
}
