package http

import (
	"net/http"
	"strconv"

	"dompet/internal/core"
)

const msgAccountNotFound = "Akun tidak ditemukan"

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.List(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]core.Account{"accounts": accounts})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Accounts.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, msgAccountNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.Account{"account": a})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in core.AccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err, "")
		return
	}
	a, err := s.svc.Accounts.Create(r.Context(), userID(r), in)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]core.Account{"account": a})
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var p core.AccountPatch
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, err, "")
		return
	}
	a, err := s.svc.Accounts.Update(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		s.fail(w, r, err, msgAccountNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.Account{"account": a})
}

func (s *Server) handleAccountImpact(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Accounts.Impact(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, msgAccountNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"transactionCount": n})
}

// handleDeleteAccount removes the account. An account with transactions
// needs ?confirm=true; they are deleted with it.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	confirm := false
	if raw := r.URL.Query().Get("confirm"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "confirm", "must be true or false")
			return
		}
		confirm = v
	}

	n, err := s.svc.Accounts.Delete(r.Context(), userID(r), r.PathValue("id"), confirm)
	if err != nil {
		s.fail(w, r, err, msgAccountNotFound)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message             string `json:"message"`
		DeletedTransactions int    `json:"deletedTransactions"`
	}{"Akun berhasil dihapus", n})
}
