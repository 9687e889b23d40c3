package transaction

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction is one ledger row. Date is stored as "YYYY-MM-DD" or
// "YYYY-MM-DD HH:MM:SS" so it sorts and compares as text.
type Transaction struct {
	ID          int             `json:"id"`
	UserID      int             `json:"user_id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
}

// AddInput is the client payload of a new transaction. Amount is nil
// when the field was absent or null.
type AddInput struct {
	Type        string           `json:"type"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        string           `json:"date"`

	// set when the payload carried an amount that is not a JSON number
	amountNotNumber bool
}

// UnmarshalJSON accepts only a bare JSON number for amount. Strings and
// other values are kept out of Amount and rejected by validation.
func (in *AddInput) UnmarshalJSON(data []byte) error {
	type plain AddInput
	aux := struct {
		*plain
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	in.Amount = nil
	in.amountNotNumber = false

	raw := bytes.TrimSpace(aux.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
		in.amountNotNumber = true
		return nil
	}

	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		in.amountNotNumber = true
		return nil
	}
	in.Amount = &d
	return nil
}

// Filter selects which rows List and Totals look at. The zero value
// means the trailing 30 days.
type Filter struct {
	All  bool
	From *time.Time
	To   *time.Time
}

// DateRange bounds a query on the date column. Since is inclusive,
// Until exclusive, an empty string leaves that side open.
type DateRange struct {
	Since string
	Until string
}

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Bucket is one row of a period summary.
type Bucket struct {
	PeriodGroup  string          `json:"period_group"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

type Totals struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
}
