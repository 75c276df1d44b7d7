// Package events publishes notifications about completed expense writes.
package events

import (
	"context"
	"encoding/json"
	"time"

	"spendwise/internal/models"

	"github.com/shopspring/decimal"
)

// Type names an expense change. It doubles as the AMQP routing key.
type Type string

const (
	ExpenseCreated Type = "expense.created"
	ExpenseUpdated Type = "expense.updated"
	ExpenseDeleted Type = "expense.deleted"
)

// Event describes a write that has already been committed.
type Event struct {
	Type      Type            `json:"type"`
	ExpenseID int64           `json:"expenseId"`
	UserID    int64           `json:"userId"`
	Category  models.Category `json:"category,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an event for e stamped with the current time.
func NewEvent(t Type, e models.Expense) Event {
	return Event{
		Type:      t,
		ExpenseID: e.ID,
		UserID:    e.UserID,
		Category:  e.Category,
		Amount:    e.Amount,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
