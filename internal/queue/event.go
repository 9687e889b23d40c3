package queue

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ActionTransactionCreated = "transaction.created"
	ActionTransactionDeleted = "transaction.deleted"
)

// LedgerEvent is published after every successful ledger write.
type LedgerEvent struct {
	Action        string          `json:"action"`
	UserID        int             `json:"user_id"`
	TransactionID int             `json:"transaction_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
