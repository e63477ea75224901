package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"dompet/internal/core"
)

const msgTransactionNotFound = "Transaksi tidak ditemukan"

type pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseTransactionFilter(r)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	items, total, err := s.svc.Transactions.List(r.Context(), userID(r), f)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if f.Limit == 0 {
		f.Limit = core.DefaultListLimit
	}
	writeJSON(w, http.StatusOK, struct {
		Transactions []core.TransactionDetail `json:"transactions"`
		Pagination   pagination               `json:"pagination"`
	}{items, pagination{Total: total, Limit: f.Limit, Offset: f.Offset}})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Transactions.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, msgTransactionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.TransactionDetail{"transaction": t})
}

// handleCreateTransaction records a transaction. Without categoryId the
// category is picked from the merchant and description keywords.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err, "")
		return
	}
	t, err := s.svc.Transactions.Create(r.Context(), userID(r), in)
	if err != nil {
		s.fail(w, r, err, msgAccountNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]core.TransactionDetail{"transaction": t})
}

// transactionPatchBody keeps categoryId raw so that an explicit null can be
// told apart from an absent field.
type transactionPatchBody struct {
	AccountID   *string         `json:"accountId"`
	CategoryID  json.RawMessage `json:"categoryId"`
	Kind        *core.Kind      `json:"type"`
	Amount      *core.Money     `json:"amount"`
	Description *string         `json:"description"`
	Merchant    *string         `json:"merchant"`
	Date        *core.Date      `json:"transactionDate"`
}

func (b transactionPatchBody) patch() (core.TransactionPatch, error) {
	p := core.TransactionPatch{
		AccountID:   b.AccountID,
		Kind:        b.Kind,
		Amount:      b.Amount,
		Description: b.Description,
		Merchant:    b.Merchant,
		Date:        b.Date,
	}
	raw := bytes.TrimSpace(b.CategoryID)
	switch {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		p.ClearCategory = true
	default:
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return p, core.FieldError("categoryId", "must be a string or null")
		}
		if id = strings.TrimSpace(id); id == "" {
			p.ClearCategory = true
		} else {
			p.CategoryID = &id
		}
	}
	return p, nil
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionPatchBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err, "")
		return
	}
	p, err := body.patch()
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	t, err := s.svc.Transactions.Update(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		s.fail(w, r, err, msgTransactionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.TransactionDetail{"transaction": t})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err, msgTransactionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Transaksi berhasil dihapus"})
}
