package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"kitchenledger/internal/core"
)

// EventType names what happened to a ledger transaction.
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionDeleted EventType = "transaction.deleted"
)

// LedgerEvent is published after a successful create or delete against the
// backend. Deleted events carry only the ID.
type LedgerEvent struct {
	Type           EventType      `json:"type"`
	ID             string         `json:"id,omitempty"`
	Kind           core.Kind      `json:"kind,omitempty"`
	CategorySource string         `json:"category_source,omitempty"`
	Description    string         `json:"description,omitempty"`
	Amount         core.Money     `json:"amount"`
	CreatedAt      core.Timestamp `json:"created_at"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewCreatedEvent describes a transaction that now exists on the backend.
func NewCreatedEvent(tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Type:           TransactionCreated,
		ID:             tx.ID,
		Kind:           tx.Kind,
		CategorySource: tx.CategorySource,
		Description:    tx.Description,
		Amount:         tx.Amount,
		CreatedAt:      tx.CreatedAt,
		Timestamp:      time.Now().UTC(),
	}
}

func NewDeletedEvent(id string) *LedgerEvent {
	return &LedgerEvent{Type: TransactionDeleted, ID: id, Timestamp: time.Now().UTC()}
}

// Transaction rebuilds the ledger row carried by a created event.
func (e *LedgerEvent) Transaction() core.Transaction {
	return core.Transaction{
		ID:             e.ID,
		Kind:           e.Kind,
		Description:    e.Description,
		CategorySource: e.CategorySource,
		Amount:         e.Amount,
		CreatedAt:      e.CreatedAt,
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and sanity-checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case TransactionCreated, TransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("%s event without id", e.Type)
	}
	return &e, nil
}
