package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookkeeping/internal/audit"
	"bookkeeping/internal/db"
	"bookkeeping/internal/observability"
	"bookkeeping/internal/queue"
	"bookkeeping/internal/utils"

	"github.com/sirupsen/logrus"
)

// ErrInvalidPayload marks a message that can never be processed and must
// not be retried.
var ErrInvalidPayload = errors.New("invalid ledger event payload")

// Processor turns ledger events into audit entries.
type Processor struct {
	repo    audit.AuditRepositoryInterface
	db      *db.DB
	metrics *observability.Metrics
	now     func() time.Time
}

func NewProcessor(repo audit.AuditRepositoryInterface, database *db.DB, metrics *observability.Metrics) *Processor {
	return &Processor{
		repo:    repo,
		db:      database,
		metrics: metrics,
		now:     time.Now,
	}
}

// Handle records one message body. Errors wrapping ErrInvalidPayload
// are permanent, anything else may succeed on retry.
func (p *Processor) Handle(ctx context.Context, body []byte, workerID int) error {
	var event queue.LedgerEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validateEvent(event); err != nil {
		return err
	}

	startTime := time.Now()
	defer func() {
		p.metrics.AuditProcessingDuration.WithLabelValues(event.Action).Observe(time.Since(startTime).Seconds())
	}()

	entry := &audit.Entry{
		UserID:        event.UserID,
		Action:        event.Action,
		TransactionID: event.TransactionID,
		Payload:       string(body),
		RecordedAt:    p.now().UTC(),
	}

	var inserted bool
	if err := utils.WithTransaction(ctx, p.db.DB, func(tx *sql.Tx) error {
		var err error
		inserted, err = p.repo.Record(ctx, tx, entry)
		return err
	}); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	fields := logrus.Fields{
		"worker_id":      workerID,
		"action":         event.Action,
		"user_id":        event.UserID,
		"transaction_id": event.TransactionID,
	}
	if !inserted {
		logrus.WithFields(fields).Info("Ledger event already recorded, skipping")
		return nil
	}

	p.metrics.AuditEntriesWritten.WithLabelValues(event.Action).Inc()
	logrus.WithFields(fields).Info("Audit entry recorded")
	return nil
}

func validateEvent(event queue.LedgerEvent) error {
	switch event.Action {
	case queue.ActionTransactionCreated, queue.ActionTransactionDeleted:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidPayload, event.Action)
	}
	if event.UserID <= 0 || event.TransactionID <= 0 {
		return fmt.Errorf("%w: missing user or transaction id", ErrInvalidPayload)
	}
	return nil
}
