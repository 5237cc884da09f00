package amqp

import (
	"encoding/json"
	"time"
)

// Kinds of changes announced on the month events queue.
const (
	KindBudgetChanged   = "budget_changed"
	KindCategoryChanged = "category_changed"
	KindExpenseAdded    = "expense_added"
	KindExpenseUpdated  = "expense_updated"
	KindExpenseDeleted  = "expense_deleted"
)

// MonthEventMessage tells consumers that a budget month changed. It carries
// only the month key and what kind of change happened; consumers reload the
// month themselves.
type MonthEventMessage struct {
	MonthKey  string    `json:"month_key"`
	Kind      string    `json:"kind"`
	ExpenseID int       `json:"expense_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMonthEventMessage(monthKey, kind string, expenseID int) *MonthEventMessage {
	return &MonthEventMessage{
		MonthKey:  monthKey,
		Kind:      kind,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

func (m *MonthEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MonthEventMessageFromJSON(data []byte) (*MonthEventMessage, error) {
	var msg MonthEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
