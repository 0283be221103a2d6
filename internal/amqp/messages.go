package amqp

import (
	"encoding/json"
	"time"
)

// Ledger operations carried by LedgerChangedMessage.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// LedgerChangedMessage announces that one expense changed. Consumers reload
// the ledger from the primary store rather than trusting a payload.
type LedgerChangedMessage struct {
	ExpenseID string    `json:"expense_id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(expenseID, operation string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		ExpenseID: expenseID,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
