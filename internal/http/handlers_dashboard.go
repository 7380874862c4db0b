package http

import (
	"bytes"
	"fmt"
	"net/http"

	"dompet/internal/auth"
	"dompet/internal/core"
	"dompet/internal/export"
	"dompet/internal/ledger"
	"dompet/internal/log"
)

type budgetRequest struct {
	Amount Amount `json:"amount"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	query := r.URL.Query()
	sel, err := parseSelector(query, s.deps.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := ledger.ParseHistoryFilter(query.Get("history"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	d, err := s.deps.Transactions.Dashboard(r.Context(), sess, r.PathValue("id"), sel, history)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := newDashboardView(d, s.deps.Currency)

	resp := NewHTMXResponse()
	if d.BudgetStatus == ledger.OverBudget {
		resp.TriggerWarningNotification("Spending is over the monthly budget")
	}
	resp.JSON(view).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := core.ParseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	projectID := r.PathValue("id")
	if err := s.deps.Budgets.Set(r.Context(), sess, projectID, month, int64(req.Amount)); err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().
		TriggerBudgetChanged(projectID, string(month)).
		TriggerSuccessNotification("Budget saved").
		JSON(map[string]any{
			"month":  month,
			"amount": newAmountView(int64(req.Amount), s.deps.Currency),
		}).
		Write(w)
}

// handleExport streams the filtered list as CSV. The file is rendered into
// a buffer first so a failure can still produce a proper error response.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
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
	var buf bytes.Buffer
	if err := export.Write(&buf, txs); err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).InfoContext(r.Context(), "Ledger exported",
		log.FieldOperation, log.OpExport, log.FieldProjectID, r.PathValue("id"), "rows", len(txs))

	NewHTMXResponse().
		Header("Content-Type", "text/csv; charset=utf-8").
		Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(opts.Selector))).
		Body(buf.Bytes()).
		Write(w)
}

// handleIndex renders the dashboard shell. Data is fetched by the page
// itself through the API.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Currency string
		Month    string
	}{
		Currency: s.deps.Currency,
		Month:    string(core.MonthOf(s.deps.Now())),
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed",
			log.FieldOperation, log.OpRender, log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
