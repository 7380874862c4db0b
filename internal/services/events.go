package services

import (
	"context"

	"dompet/internal/amqp"
)

// EventPublisher announces ledger changes to the mirror worker.
type EventPublisher interface {
	Publish(ctx context.Context, event amqp.TransactionEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, amqp.TransactionEvent) error { return nil }
