// Package worker applies transaction events to external read-only mirrors.
package worker

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/ports"

	"golang.org/x/sync/errgroup"
)

// Mirror is an external copy of the ledger keyed by transaction ID.
type Mirror interface {
	Name() string
	Upsert(ctx context.Context, tx core.Transaction) error
	Remove(ctx context.Context, id string) error
}

// Consumer delivers transaction events until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, amqp.TransactionEvent) error) error
}

// MirrorWorker keeps every configured mirror in step with the ledger store.
type MirrorWorker struct {
	store   ports.TransactionLister
	mirrors []Mirror
	logger  *log.Logger
}

func NewMirrorWorker(store ports.TransactionLister, logger *log.Logger, mirrors ...Mirror) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		store:   store,
		mirrors: mirrors,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Mirrors returns the names of the configured mirrors.
func (w *MirrorWorker) Mirrors() []string {
	names := make([]string, len(w.mirrors))
	for i, m := range w.mirrors {
		names[i] = m.Name()
	}
	return names
}

// Run consumes events until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Mirror worker started", "mirrors", w.Mirrors())
	err := consumer.Consume(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent reads the current state of the transaction and applies it to
// every mirror. A transaction that no longer exists is removed, so replays and
// out-of-order deliveries converge on the stored state.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev amqp.TransactionEvent) error {
	logger := w.logger.With(log.FieldTxID, ev.ID, log.FieldEventKind, string(ev.Kind), log.FieldProjectID, ev.ProjectID)

	if ev.Kind == amqp.TransactionDeleted {
		return w.fanOut(ctx, logger, func(ctx context.Context, m Mirror) error {
			return m.Remove(ctx, ev.ID)
		})
	}

	tx, err := w.store.Get(ctx, ev.ID)
	if errors.Is(err, core.ErrNotFound) {
		logger.InfoContext(ctx, "Transaction gone before mirroring, removing")
		return w.fanOut(ctx, logger, func(ctx context.Context, m Mirror) error {
			return m.Remove(ctx, ev.ID)
		})
	}
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", ev.ID, err)
	}

	return w.fanOut(ctx, logger, func(ctx context.Context, m Mirror) error {
		return m.Upsert(ctx, tx)
	})
}

// Backfill upserts every transaction of a project into every mirror. On
// failure it reports how many rows reached every mirror before the error.
func (w *MirrorWorker) Backfill(ctx context.Context, projectID string) (int, error) {
	txs, err := w.store.ListByProject(ctx, projectID, ports.ListQuery{Selector: core.AllTime})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}

	logger := w.logger.With(log.FieldProjectID, projectID)
	for i, tx := range txs {
		err := w.fanOut(ctx, logger, func(ctx context.Context, m Mirror) error {
			return m.Upsert(ctx, tx)
		})
		if err != nil {
			return i, err
		}
	}
	logger.InfoContext(ctx, "Backfill completed", "count", len(txs))
	return len(txs), nil
}

func (w *MirrorWorker) fanOut(ctx context.Context, logger *log.Logger, apply func(context.Context, Mirror) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range w.mirrors {
		g.Go(func() error {
			if err := apply(gctx, m); err != nil {
				logger.ErrorContext(gctx, "Mirror update failed", log.FieldMirror, m.Name(), log.FieldError, err)
				return fmt.Errorf("%s: %w", m.Name(), err)
			}
			logger.DebugContext(gctx, "Mirror updated", log.FieldMirror, m.Name())
			return nil
		})
	}
	return g.Wait()
}
