package transaction

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookkeeping/internal/db"
	"bookkeeping/internal/observability"
	"bookkeeping/internal/queue"
	"bookkeeping/internal/utils"

	"github.com/sirupsen/logrus"
)

// Cache keeps per-user read views. Implemented by cache.LedgerCache.
// Get also returns the user's generation; Set must drop the write when
// InvalidateUser ran since that generation was read.
type Cache interface {
	Get(ctx context.Context, userID int, view string) ([]byte, int64, error)
	Set(ctx context.Context, userID int, view string, generation int64, data interface{}) error
	InvalidateUser(ctx context.Context, userID int) error
}

// EventPublisher is implemented by queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event queue.LedgerEvent) error
}

type TransactionServiceInterface interface {
	Add(ctx context.Context, userID int, in AddInput) (*Transaction, error)
	List(ctx context.Context, userID int, f Filter) ([]Transaction, error)
	Summarize(ctx context.Context, userID int, period Period) ([]Bucket, error)
	Totals(ctx context.Context, userID int, f Filter) (*Totals, error)
	Delete(ctx context.Context, userID, id int) (*Transaction, error)
}

type TransactionService struct {
	repo      TransactionRepositoryInterface
	db        *db.DB
	metrics   *observability.Metrics
	cache     Cache
	publisher EventPublisher
	now       func() time.Time
}

type Option func(*TransactionService)

func WithCache(c Cache) Option {
	return func(s *TransactionService) { s.cache = c }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

// WithClock fixes the clock the trailing windows are computed from.
func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func NewTransactionService(repo TransactionRepositoryInterface, database *db.DB, metrics *observability.Metrics, opts ...Option) TransactionServiceInterface {
	s := &TransactionService{
		repo:    repo,
		db:      database,
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransactionService) Add(ctx context.Context, userID int, in AddInput) (*Transaction, error) {
	t, err := in.check()
	if err != nil {
		return nil, err
	}
	t.UserID = userID

	start := time.Now()
	err = utils.WithTransaction(ctx, s.db.DB, func(tx *sql.Tx) error {
		id, err := s.repo.Create(ctx, tx, t)
		if err != nil {
			return err
		}
		t.ID = id
		return nil
	})
	s.metrics.DBQueryDuration.WithLabelValues("insert").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.metrics.TransactionsCreatedTotal.WithLabelValues(t.Type).Inc()
	amount, _ := t.Amount.Float64()
	s.metrics.AmountRecordedTotal.WithLabelValues(t.Type).Add(amount)

	logrus.WithFields(logrus.Fields{
		"transaction_id": t.ID,
		"user_id":        userID,
		"type":           t.Type,
	}).Info("Transaction recorded")

	s.afterWrite(ctx, queue.ActionTransactionCreated, t)
	return t, nil
}

func (s *TransactionService) List(ctx context.Context, userID int, f Filter) ([]Transaction, error) {
	view := listView(f)
	var cached []Transaction
	generation, hit := s.fromCache(ctx, userID, view, "list", &cached)
	if hit {
		return cached, nil
	}

	start := time.Now()
	transactions, err := s.repo.ListByUser(ctx, s.db, userID, f.dateRange(s.today()))
	s.metrics.DBQueryDuration.WithLabelValues("list").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	s.toCache(ctx, userID, view, generation, transactions)
	return transactions, nil
}

func (s *TransactionService) Summarize(ctx context.Context, userID int, period Period) ([]Bucket, error) {
	period, err := ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}

	view := "summary:" + string(period)
	var cached []Bucket
	generation, hit := s.fromCache(ctx, userID, view, "summary", &cached)
	if hit {
		return cached, nil
	}

	granularity, since := period.window(s.today())

	start := time.Now()
	buckets, err := s.repo.SummarizeByUser(ctx, s.db, userID, granularity, since)
	s.metrics.DBQueryDuration.WithLabelValues("summary").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("summarize transactions: %w", err)
	}

	s.toCache(ctx, userID, view, generation, buckets)
	return buckets, nil
}

func (s *TransactionService) Totals(ctx context.Context, userID int, f Filter) (*Totals, error) {
	view := listView(f)
	if view != "" {
		view = "totals:" + view
	}
	var cached Totals
	generation, hit := s.fromCache(ctx, userID, view, "totals", &cached)
	if hit {
		return &cached, nil
	}

	start := time.Now()
	totals, err := s.repo.TotalsByUser(ctx, s.db, userID, f.dateRange(s.today()))
	s.metrics.DBQueryDuration.WithLabelValues("totals").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("compute totals: %w", err)
	}

	s.toCache(ctx, userID, view, generation, totals)
	return totals, nil
}

// Delete removes a transaction owned by userID. A row owned by someone
// else yields ErrForbidden and is left untouched.
func (s *TransactionService) Delete(ctx context.Context, userID, id int) (*Transaction, error) {
	var deleted *Transaction

	start := time.Now()
	err := utils.WithTransaction(ctx, s.db.DB, func(tx *sql.Tx) error {
		t, err := s.repo.DeleteOwned(ctx, tx, userID, id)
		if err == nil {
			deleted = t
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if _, err := s.repo.GetOwner(ctx, tx, id); err != nil {
			return err
		}
		return ErrForbidden
	})
	s.metrics.DBQueryDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrNotFound):
		s.metrics.TransactionsDeletedTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	case errors.Is(err, ErrForbidden):
		s.metrics.TransactionsDeletedTotal.WithLabelValues("forbidden").Inc()
		logrus.WithFields(logrus.Fields{
			"transaction_id": id,
			"user_id":        userID,
		}).Warn("Refused to delete another user's transaction")
		return nil, ErrForbidden
	case err != nil:
		return nil, fmt.Errorf("delete transaction: %w", err)
	}

	s.metrics.TransactionsDeletedTotal.WithLabelValues("deleted").Inc()
	logrus.WithFields(logrus.Fields{
		"transaction_id": id,
		"user_id":        userID,
	}).Info("Transaction deleted")

	s.afterWrite(ctx, queue.ActionTransactionDeleted, deleted)
	return deleted, nil
}

// afterWrite drops the user's cached views and publishes the event.
// Failures here are logged only, the write itself already committed.
func (s *TransactionService) afterWrite(ctx context.Context, action string, t *Transaction) {
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, t.UserID); err != nil {
			logrus.WithError(err).Warn("Failed to invalidate ledger cache")
		}
	}

	if s.publisher != nil {
		event := queue.LedgerEvent{
			Action:        action,
			UserID:        t.UserID,
			TransactionID: t.ID,
			Type:          t.Type,
			Amount:        t.Amount,
			Date:          t.Date,
			OccurredAt:    s.now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			logrus.WithError(err).WithField("action", action).Warn("Failed to publish ledger event")
		}
	}
}

// fromCache decodes a cached view into dst and reports whether it did,
// along with the generation a later toCache must present.
// An empty view is never cached.
func (s *TransactionService) fromCache(ctx context.Context, userID int, view, keyType string, dst interface{}) (int64, bool) {
	if s.cache == nil || view == "" {
		return 0, false
	}

	data, generation, err := s.cache.Get(ctx, userID, view)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read ledger cache")
		s.metrics.CacheMissesTotal.WithLabelValues(keyType).Inc()
		return 0, false
	}
	if data == nil {
		s.metrics.CacheMissesTotal.WithLabelValues(keyType).Inc()
		return generation, false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		logrus.WithError(err).Warn("Discarding undecodable cache entry")
		s.metrics.CacheMissesTotal.WithLabelValues(keyType).Inc()
		return generation, false
	}

	s.metrics.CacheHitsTotal.WithLabelValues(keyType).Inc()
	logrus.WithFields(logrus.Fields{"user_id": userID, "view": view}).Debug("cache hit")
	return generation, true
}

func (s *TransactionService) toCache(ctx context.Context, userID int, view string, generation int64, data interface{}) {
	if s.cache == nil || view == "" {
		return
	}
	if err := s.cache.Set(ctx, userID, view, generation, data); err != nil {
		logrus.WithError(err).Warn("Failed to set ledger cache")
	}
}

func (s *TransactionService) today() time.Time {
	return startOfDay(s.now())
}

// listView names the cacheable filters. Custom ranges are not cached.
func listView(f Filter) string {
	switch {
	case f.All:
		return "all"
	case f.isDefault():
		return "recent"
	default:
		return ""
	}
}
