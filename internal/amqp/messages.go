package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind is the ledger change that triggered an event.
type EventKind string

const (
	TransactionCreated EventKind = "created"
	TransactionUpdated EventKind = "updated"
	TransactionDeleted EventKind = "deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
		return true
	}
	return false
}

// TransactionEvent is a lightweight change notification. Consumers load the
// current row themselves; deleted rows are identified by ID only.
type TransactionEvent struct {
	Kind      EventKind `json:"kind"`
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, id, projectID string) TransactionEvent {
	return TransactionEvent{
		Kind:      kind,
		ID:        id,
		ProjectID: projectID,
		Timestamp: time.Now().UTC(),
	}
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return TransactionEvent{}, err
	}
	if !e.Kind.Valid() {
		return TransactionEvent{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.ID == "" {
		return TransactionEvent{}, fmt.Errorf("event without transaction id")
	}
	return e, nil
}
