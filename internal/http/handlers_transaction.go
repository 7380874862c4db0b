package http

import (
	"net/http"
	"strings"

	"dompet/internal/auth"
	"dompet/internal/core"
	"dompet/internal/ledger"
	"dompet/internal/services"
)

type createTransactionRequest struct {
	Amount      Amount `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	// Date is YYYY-MM-DD; empty means today.
	Date string `json:"date"`
	// Source is "balance" (default) or "savings".
	Source string `json:"source"`
}

type updateTransactionRequest struct {
	Amount      *Amount `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

type createdView struct {
	ID       string `json:"id"`
	OffsetID string `json:"offset_id,omitempty"`
}

func (req createTransactionRequest) input() (services.TransactionInput, error) {
	cat, err := core.ParseCategory(req.Category)
	if err != nil {
		return services.TransactionInput{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return services.TransactionInput{}, err
	}
	source, err := ledger.ParsePaymentSource(req.Source)
	if err != nil {
		return services.TransactionInput{}, err
	}
	return services.TransactionInput{
		Amount:      int64(req.Amount),
		Category:    cat,
		Description: sanitizeInput(req.Description),
		Date:        date,
		Source:      source,
	}, nil
}

func (req updateTransactionRequest) patch() (core.TransactionPatch, error) {
	var p core.TransactionPatch
	if req.Amount != nil {
		v := int64(*req.Amount)
		p.Amount = &v
	}
	if req.Category != nil {
		cat, err := core.ParseCategory(*req.Category)
		if err != nil {
			return p, err
		}
		p.Category = &cat
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		p.Description = &d
	}
	if req.Date != nil {
		if strings.TrimSpace(*req.Date) == "" {
			return p, core.Invalid(core.ErrInvalidDate)
		}
		d, err := parseDate(*req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	return p, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := parseListOptions(r.URL.Query(), s.deps.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.deps.Transactions.List(r.Context(), sess, r.PathValue("id"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionView(tx, s.deps.Currency))
	}
	NewHTMXResponse().JSON(map[string]any{
		"selector":     opts.Selector,
		"transactions": out,
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	projectID := r.PathValue("id")
	res, err := s.deps.Transactions.Add(r.Context(), sess, projectID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	date := in.Date
	if date.IsZero() {
		date = s.deps.Now()
	}
	msg := "Transaction recorded"
	if res.OffsetID != "" {
		msg = "Transaction recorded and paid from savings"
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerLedgerChanged(projectID, string(core.MonthOf(date))).
		TriggerSuccessNotification(msg).
		JSON(createdView{ID: res.ID, OffsetID: res.OffsetID}).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	projectID := r.PathValue("id")
	if err := s.deps.Transactions.Update(r.Context(), sess, projectID, r.PathValue("txid"), patch); err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().
		Status(http.StatusNoContent).
		TriggerLedgerChanged(projectID, "").
		TriggerSuccessNotification("Transaction updated").
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	projectID := r.PathValue("id")
	if err := s.deps.Transactions.Delete(r.Context(), sess, projectID, r.PathValue("txid")); err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().
		Status(http.StatusNoContent).
		TriggerLedgerChanged(projectID, "").
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}
