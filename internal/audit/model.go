package audit

import "time"

// Entry is one processed ledger event. Payload keeps the raw event JSON.
type Entry struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	Action        string    `json:"action"`
	TransactionID int       `json:"transaction_id"`
	Payload       string    `json:"payload"`
	RecordedAt    time.Time `json:"recorded_at"`
}
