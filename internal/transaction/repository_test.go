package transaction

import (
	"context"
	"testing"

	"bookkeeping/internal/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// openTestDB opens an in-memory store with two users, ids 1 and 2.
func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { database.Close() })

	for _, name := range []string{"alice", "bob"} {
		_, err := database.ExecContext(ctx, `INSERT INTO users (username, password) VALUES (?, 'x')`, name)
		require.NoError(t, err)
	}
	return database
}

type RepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	db   *db.DB
	repo TransactionRepositoryInterface
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = openTestDB(s.T())
	s.repo = NewTransactionRepository(s.db.Dialect)
}

func (s *RepositoryTestSuite) insert(userID int, txType, amount, date string) int {
	tx, err := s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)

	id, err := s.repo.Create(s.ctx, tx, &Transaction{
		UserID:      userID,
		Type:        txType,
		Description: txType + " " + date,
		Amount:      decimal.RequireFromString(amount),
		Date:        date,
	})
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())
	return id
}

func (s *RepositoryTestSuite) TestCreate_AssignsIncreasingIDs() {
	first := s.insert(1, TypeIncome, "100", "2024-01-01")
	second := s.insert(1, TypeExpense, "50", "2024-01-02")

	s.NotZero(first)
	s.Greater(second, first)
}

func (s *RepositoryTestSuite) TestCreate_RejectsUnknownUser() {
	tx, err := s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	defer tx.Rollback()

	_, err = s.repo.Create(s.ctx, tx, &Transaction{
		UserID:      99,
		Type:        TypeIncome,
		Description: "orphan",
		Amount:      decimal.NewFromInt(1),
		Date:        "2024-01-01",
	})
	s.Error(err)
}

func (s *RepositoryTestSuite) TestListByUser_OrderAndRange() {
	a := s.insert(1, TypeIncome, "10", "2024-01-01")
	b := s.insert(1, TypeExpense, "20", "2024-01-03")
	c := s.insert(1, TypeIncome, "30", "2024-01-03 08:30:00")
	d := s.insert(1, TypeIncome, "40", "2024-01-02")
	s.insert(2, TypeIncome, "999", "2024-01-02")

	all, err := s.repo.ListByUser(s.ctx, s.db, 1, DateRange{})
	s.Require().NoError(err)
	ids := make([]int, 0, len(all))
	for _, t := range all {
		ids = append(ids, t.ID)
		s.Equal(1, t.UserID)
	}
	s.Equal([]int{c, b, d, a}, ids)

	bounded, err := s.repo.ListByUser(s.ctx, s.db, 1, DateRange{Since: "2024-01-02", Until: "2024-01-03"})
	s.Require().NoError(err)
	s.Require().Len(bounded, 1)
	s.Equal(d, bounded[0].ID)
	s.True(decimal.NewFromInt(40).Equal(bounded[0].Amount))
}

func (s *RepositoryTestSuite) TestListByUser_EmptyIsNotNil() {
	list, err := s.repo.ListByUser(s.ctx, s.db, 2, DateRange{})
	s.Require().NoError(err)
	s.NotNil(list)
	s.Empty(list)
}

func (s *RepositoryTestSuite) TestSummarizeByUser_Monthly() {
	s.insert(1, TypeIncome, "15000", "2024-01-01")
	s.insert(1, TypeExpense, "2500.50", "2024-01-20")
	s.insert(1, TypeIncome, "1000", "2024-02-05")
	s.insert(1, TypeIncome, "5", "2023-11-30")
	s.insert(2, TypeIncome, "777", "2024-01-15")

	buckets, err := s.repo.SummarizeByUser(s.ctx, s.db, 1, db.Month, "2024-01-01")
	s.Require().NoError(err)
	s.Require().Len(buckets, 2)

	s.Equal("2024-01", buckets[0].PeriodGroup)
	s.True(decimal.NewFromInt(15000).Equal(buckets[0].TotalIncome), buckets[0].TotalIncome.String())
	s.True(decimal.RequireFromString("2500.5").Equal(buckets[0].TotalExpense), buckets[0].TotalExpense.String())

	s.Equal("2024-02", buckets[1].PeriodGroup)
	s.True(decimal.Zero.Equal(buckets[1].TotalExpense))
}

func (s *RepositoryTestSuite) TestSummarizeByUser_WeeklyLabels() {
	s.insert(1, TypeIncome, "1", "2024-01-01") // Monday
	s.insert(1, TypeIncome, "2", "2024-01-07") // Sunday, same week
	s.insert(1, TypeIncome, "4", "2024-01-08")

	buckets, err := s.repo.SummarizeByUser(s.ctx, s.db, 1, db.Week, "2024-01-01")
	s.Require().NoError(err)
	s.Require().Len(buckets, 2)
	s.Equal("2024-01", buckets[0].PeriodGroup)
	s.True(decimal.NewFromInt(3).Equal(buckets[0].TotalIncome))
	s.Equal("2024-02", buckets[1].PeriodGroup)
}

func (s *RepositoryTestSuite) TestTotalsByUser() {
	s.insert(1, TypeIncome, "100", "2024-01-01")
	s.insert(1, TypeExpense, "30", "2024-01-02")
	s.insert(2, TypeExpense, "1000", "2024-01-02")

	totals, err := s.repo.TotalsByUser(s.ctx, s.db, 1, DateRange{})
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(totals.TotalIncome))
	s.True(decimal.NewFromInt(30).Equal(totals.TotalExpense))
	s.True(decimal.NewFromInt(70).Equal(totals.Balance))

	empty, err := s.repo.TotalsByUser(s.ctx, s.db, 1, DateRange{Since: "2030-01-01"})
	s.Require().NoError(err)
	s.True(empty.Balance.IsZero())
}

func (s *RepositoryTestSuite) TestDeleteOwned() {
	id := s.insert(1, TypeIncome, "100", "2024-01-01")

	_, err := s.repo.DeleteOwned(s.ctx, s.db, 2, id)
	s.ErrorIs(err, ErrNotFound)

	owner, err := s.repo.GetOwner(s.ctx, s.db, id)
	s.Require().NoError(err)
	s.Equal(1, owner)

	deleted, err := s.repo.DeleteOwned(s.ctx, s.db, 1, id)
	s.Require().NoError(err)
	s.Equal(id, deleted.ID)
	s.Equal("2024-01-01", deleted.Date)

	_, err = s.repo.GetOwner(s.ctx, s.db, id)
	s.ErrorIs(err, ErrNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
