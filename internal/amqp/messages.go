package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// BudgetChangedMessage announces that a budget's entries were replaced.
// It carries only the id and version; consumers load the budget themselves.
type BudgetChangedMessage struct {
	BudgetID  string    `json:"budget_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetChangedMessage creates a message stamped with the current time.
func NewBudgetChangedMessage(budgetID string, version int64) *BudgetChangedMessage {
	return &BudgetChangedMessage{
		BudgetID:  budgetID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetChangedMessageFromJSON decodes a message and rejects one without a
// budget id.
func BudgetChangedMessageFromJSON(data []byte) (*BudgetChangedMessage, error) {
	var msg BudgetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BudgetID == "" {
		return nil, errors.New("missing budget_id")
	}
	return &msg, nil
}
