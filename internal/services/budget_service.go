package services

import (
	"context"

	"dompet/internal/core"
	"dompet/internal/ledger"
	"dompet/internal/log"
	"dompet/internal/ports"
)

type BudgetService struct {
	budgets  ports.BudgetStore
	projects ports.ProjectStore
	ledgers  *TransactionService
	logger   *log.Logger
}

func NewBudgetService(budgets ports.BudgetStore, projects ports.ProjectStore, ledgers *TransactionService, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetService{
		budgets:  budgets,
		projects: projects,
		ledgers:  ledgers,
		logger:   logger.WithComponent(log.ComponentBudget),
	}
}

// Set stores the spending ceiling for one month. The last write wins. An
// empty projectID sets the caller's personal budget.
func (s *BudgetService) Set(ctx context.Context, sess core.Session, projectID string, month core.Month, amount int64) error {
	if _, err := authorize(ctx, s.projects, sess, projectID); err != nil {
		return err
	}
	if _, err := core.ParseMonth(string(month)); err != nil {
		return err
	}
	if amount <= 0 {
		return core.Invalid(core.ErrInvalidAmount)
	}
	ref := ledgerFor(sess, projectID)
	b := core.Budget{ProjectID: ref.projectID, UserID: ref.userID, Month: month, Amount: amount}
	if err := s.budgets.UpsertBudget(ctx, b); err != nil {
		return core.Backend("upsert budget", err)
	}
	s.logger.InfoContext(ctx, "Budget set", log.FieldProjectID, projectID, log.FieldMonth, month, log.FieldAmount, amount)
	return nil
}

// Effective returns the limit in force for a selection and its status.
func (s *BudgetService) Effective(ctx context.Context, sess core.Session, projectID string, sel core.Selector) (ledger.Budget, ledger.BudgetStatus, error) {
	d, err := s.ledgers.Dashboard(ctx, sess, projectID, sel, ledger.HistoryAll)
	if err != nil {
		return ledger.Budget{}, "", err
	}
	return d.Budget, d.BudgetStatus, nil
}
