package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/ledger"
	"dompet/internal/log"
	"dompet/internal/ports"
)

// PairMode selects how savings-funded expenses are written.
type PairMode string

const (
	// PairAtomic writes the expense and its offset in one store transaction.
	PairAtomic PairMode = "atomic"
	// PairSequential issues two independent writes. A failed second write
	// leaves the expense without its offset and is reported as a
	// PartialWriteError.
	PairSequential PairMode = "sequential"
)

func (m PairMode) Valid() bool { return m == PairAtomic || m == PairSequential }

type TransactionStore interface {
	ports.TransactionWriter
	ports.TransactionLister
}

type TransactionOptions struct {
	PairMode       PairMode
	FallbackBudget int64
	CacheSize      int
	CacheTTL       time.Duration
	Now            func() time.Time
}

// TransactionService records ledger entries and computes the views built on
// them. Every call is checked against the caller's project membership.
type TransactionService struct {
	store     TransactionStore
	projects  ports.ProjectStore
	budgets   ports.BudgetStore
	publisher EventPublisher
	ledgers   *cache.LedgerCache
	logger    *log.Logger
	opts      TransactionOptions
}

func NewTransactionService(store TransactionStore, projects ports.ProjectStore, budgets ports.BudgetStore,
	publisher EventPublisher, logger *log.Logger, opts TransactionOptions) *TransactionService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if !opts.PairMode.Valid() {
		opts.PairMode = PairAtomic
	}
	if opts.FallbackBudget <= 0 {
		opts.FallbackBudget = ledger.FallbackBudget
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &TransactionService{
		store:     store,
		projects:  projects,
		budgets:   budgets,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		opts:      opts,
	}
	s.ledgers = cache.NewLedgerCache(s.loadLedger, opts.CacheSize, opts.CacheTTL)
	return s
}

// Ledgers exposes the snapshot cache so it can be registered for cleanup.
func (s *TransactionService) Ledgers() *cache.LedgerCache { return s.ledgers }

func (s *TransactionService) loadLedger(ctx context.Context, key string) ([]core.Transaction, error) {
	ref := refFromKey(key)
	txs, err := s.store.ListByProject(ctx, ref.projectID, ref.query())
	if err != nil {
		return nil, core.Backend("list transactions", err)
	}
	return txs, nil
}

// TransactionInput is a transaction as submitted by a user.
type TransactionInput struct {
	Amount      int64
	Category    core.Category
	Description string
	// Date defaults to now when zero.
	Date   time.Time
	Source ledger.PaymentSource
}

type AddResult struct {
	ID string
	// OffsetID is set when the expense was paid from savings.
	OffsetID string
}

// Add records a transaction. When paid from savings it also records the
// offsetting withdrawal, after checking the ledger's savings cover it. An
// empty projectID writes to the caller's personal ledger.
func (s *TransactionService) Add(ctx context.Context, sess core.Session, projectID string, in TransactionInput) (AddResult, error) {
	if _, err := authorize(ctx, s.projects, sess, projectID); err != nil {
		return AddResult{}, err
	}
	ref := ledgerFor(sess, projectID)

	date := in.Date
	if date.IsZero() {
		date = s.opts.Now()
	}
	tx := core.Transaction{
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        date.UTC(),
		ProjectID:   projectID,
		UserID:      sess.UserID,
	}

	var savings int64
	if in.Source == ledger.FromSavings {
		txs, err := s.ledgers.Transactions(ctx, ref.key())
		if err != nil {
			return AddResult{}, err
		}
		savings = ledger.TotalSavings(txs)
	}

	plan, err := ledger.PlanPayment(tx, in.Source, savings)
	if err != nil {
		return AddResult{}, err
	}

	res, err := s.write(ctx, plan)
	if res.ID != "" {
		s.ledgers.Invalidate(ref.key())
		s.publish(ctx, amqp.TransactionCreated, res.ID, projectID)
	}
	if res.OffsetID != "" {
		s.publish(ctx, amqp.TransactionCreated, res.OffsetID, projectID)
	}
	if err != nil {
		return res, err
	}

	s.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().WithTransaction(projectID, res.ID, string(tx.Category), tx.Amount).ToSlice()...)
	return res, nil
}

func (s *TransactionService) write(ctx context.Context, plan ledger.Plan) (AddResult, error) {
	if !plan.Paired() {
		id, err := s.store.Create(ctx, plan.Primary)
		if err != nil {
			return AddResult{}, core.Backend("create transaction", err)
		}
		return AddResult{ID: id}, nil
	}

	if s.opts.PairMode == PairAtomic {
		id, offsetID, err := s.store.CreatePair(ctx, plan.Primary, *plan.Offset)
		if err != nil {
			return AddResult{}, core.Backend("create transaction pair", err)
		}
		return AddResult{ID: id, OffsetID: offsetID}, nil
	}

	id, err := s.store.Create(ctx, plan.Primary)
	if err != nil {
		return AddResult{}, core.Backend("create transaction", err)
	}
	offsetID, err := s.store.Create(ctx, *plan.Offset)
	if err != nil {
		s.logger.WarnContext(ctx, "Savings offset not recorded, ledger left unbalanced",
			log.FieldTxID, id, log.FieldError, err)
		return AddResult{ID: id}, core.Backend("create savings offset", &core.PartialWriteError{PrimaryID: id, Err: err})
	}
	return AddResult{ID: id, OffsetID: offsetID}, nil
}

// Update changes the mutable fields of one transaction.
func (s *TransactionService) Update(ctx context.Context, sess core.Session, projectID, id string, patch core.TransactionPatch) error {
	if _, err := authorize(ctx, s.projects, sess, projectID); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	ref := ledgerFor(sess, projectID)
	if err := s.checkOwner(ctx, ref, id); err != nil {
		return err
	}
	if err := s.store.Update(ctx, projectID, id, patch); err != nil {
		return core.Backend("update transaction", err)
	}
	s.ledgers.Invalidate(ref.key())
	s.publish(ctx, amqp.TransactionUpdated, id, projectID)
	return nil
}

// Delete removes one transaction. A paired offset is left in place.
func (s *TransactionService) Delete(ctx context.Context, sess core.Session, projectID, id string) error {
	if _, err := authorize(ctx, s.projects, sess, projectID); err != nil {
		return err
	}
	ref := ledgerFor(sess, projectID)
	if err := s.checkOwner(ctx, ref, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, projectID, id); err != nil {
		return core.Backend("delete transaction", err)
	}
	s.ledgers.Invalidate(ref.key())
	s.publish(ctx, amqp.TransactionDeleted, id, projectID)
	return nil
}

// checkOwner makes personal rows visible to their author only. Project rows
// are scoped by the store, which matches on project ID.
func (s *TransactionService) checkOwner(ctx context.Context, ref ledgerRef, id string) error {
	if !ref.personal() {
		return nil
	}
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Backend("get transaction", err)
	}
	if tx.ProjectID != "" || tx.UserID != ref.userID {
		return core.ErrNotFound
	}
	return nil
}

// Import records previously exported transactions as the caller. Savings
// withdrawals are kept as they are; every other row is validated like a new
// entry. Rows are written one by one and the count of stored rows is
// returned with the first error.
func (s *TransactionService) Import(ctx context.Context, sess core.Session, projectID string, txs []core.Transaction) (int, error) {
	if _, err := authorize(ctx, s.projects, sess, projectID); err != nil {
		return 0, err
	}
	for i, tx := range txs {
		tx.ProjectID = projectID
		tx.UserID = sess.UserID
		tx.Date = tx.Date.UTC()
		if !tx.IsWithdrawal() {
			if err := tx.Validate(); err != nil {
				return 0, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		txs[i] = tx
	}

	stored := 0
	defer func() {
		if stored > 0 {
			s.ledgers.Invalidate(ledgerFor(sess, projectID).key())
		}
	}()
	for _, tx := range txs {
		id, err := s.store.Create(ctx, tx)
		if err != nil {
			return stored, core.Backend("import transaction", err)
		}
		stored++
		s.publish(ctx, amqp.TransactionCreated, id, projectID)
	}
	s.logger.InfoContext(ctx, "Transactions imported", log.FieldProjectID, projectID, "count", stored)
	return stored, nil
}

// List returns the filtered and sorted transaction view.
func (s *TransactionService) List(ctx context.Context, sess core.Session, projectID string, opts ledger.ListOptions) ([]core.Transaction, error) {
	if _, err := authorize(ctx, s.projects, sess, projectID); err != nil {
		return nil, err
	}
	txs, err := s.ledgers.Transactions(ctx, ledgerFor(sess, projectID).key())
	if err != nil {
		return nil, err
	}
	return ledger.Filter(txs, opts), nil
}

// Dashboard computes every overview figure for one selection.
func (s *TransactionService) Dashboard(ctx context.Context, sess core.Session, projectID string, sel core.Selector, history ledger.HistoryFilter) (ledger.Dashboard, error) {
	if _, err := authorize(ctx, s.projects, sess, projectID); err != nil {
		return ledger.Dashboard{}, err
	}
	ref := ledgerFor(sess, projectID)
	txs, err := s.ledgers.Transactions(ctx, ref.key())
	if err != nil {
		return ledger.Dashboard{}, err
	}
	override, err := s.budgetOverride(ctx, ref, sel)
	if err != nil {
		return ledger.Dashboard{}, err
	}
	return ledger.Summarize(txs, ledger.DashboardInput{
		Selector:       sel,
		History:        history,
		BudgetOverride: override,
		FallbackBudget: s.opts.FallbackBudget,
		Now:            s.opts.Now(),
	}), nil
}

func (s *TransactionService) budgetOverride(ctx context.Context, ref ledgerRef, sel core.Selector) (*int64, error) {
	if sel.IsAll() {
		return nil, nil
	}
	b, err := s.budgets.GetBudget(ctx, ref.projectID, ref.userID, sel.Month())
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Backend("get budget", err)
	}
	return &b.Amount, nil
}

// publish never fails the caller: the write already succeeded.
func (s *TransactionService) publish(ctx context.Context, kind amqp.EventKind, id, projectID string) {
	if err := s.publisher.Publish(ctx, amqp.NewTransactionEvent(kind, id, projectID)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldEventKind, kind, log.FieldTxID, id, log.FieldError, err)
	}
}
