package transaction

import (
	"strings"
	"time"

	"bookkeeping/internal/db"

	"github.com/shopspring/decimal"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"

	// amounts fit NUMERIC(14, 2)
	amountScale = 2
)

var maxAmount = decimal.RequireFromString("999999999999.99")

// check runs the rules in order and returns the row to store.
func (in AddInput) check() (*Transaction, error) {
	txType := strings.TrimSpace(in.Type)
	description := strings.TrimSpace(in.Description)
	date := strings.TrimSpace(in.Date)

	switch {
	case txType == "":
		return nil, required("type")
	case description == "":
		return nil, required("description")
	case in.Amount == nil && !in.amountNotNumber:
		return nil, required("amount")
	case date == "":
		return nil, required("date")
	}

	if txType != TypeIncome && txType != TypeExpense {
		return nil, &ValidationError{Field: "type", Message: "Type must be 'income' or 'expense'"}
	}

	if in.amountNotNumber || !in.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "Amount must be a positive number"}
	}
	if in.Amount.GreaterThan(maxAmount) {
		return nil, &ValidationError{Field: "amount", Message: "Amount must not exceed 999999999999.99"}
	}
	if !in.Amount.Equal(in.Amount.Truncate(amountScale)) {
		return nil, &ValidationError{Field: "amount", Message: "Amount must have at most 2 decimal places"}
	}

	normalized, err := normalizeDate(date)
	if err != nil {
		return nil, &ValidationError{Field: "date", Message: "Date must be YYYY-MM-DD or YYYY-MM-DD HH:MM:SS"}
	}

	return &Transaction{
		Type:        txType,
		Description: description,
		Amount:      *in.Amount,
		Date:        normalized,
	}, nil
}

func required(field string) error {
	return &ValidationError{Field: field, Message: "Type, description, amount and date are required"}
}

// normalizeDate keeps a bare date as is and renders anything with a
// time of day as UTC "YYYY-MM-DD HH:MM:SS".
func normalizeDate(s string) (string, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.Format(dateLayout), nil
	}
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return t.Format(dateTimeLayout), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(dateTimeLayout), nil
}

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// window returns the bucket size and the first date included for p.
func (p Period) window(today time.Time) (db.Granularity, string) {
	switch p {
	case PeriodWeekly:
		return db.Week, today.AddDate(0, 0, -28).Format(dateLayout)
	case PeriodMonthly:
		return db.Month, today.AddDate(0, -12, 0).Format(dateLayout)
	default:
		return db.Day, today.AddDate(0, 0, -7).Format(dateLayout)
	}
}

// ParseFilter reads the all, from and to query values. Bounds are
// inclusive calendar dates.
func ParseFilter(all, from, to string) (Filter, error) {
	var f Filter
	if strings.EqualFold(strings.TrimSpace(all), "true") {
		f.All = true
		return f, nil
	}

	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return Filter{}, ErrInvalidDate
		}
		f.From = &t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return Filter{}, ErrInvalidDate
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return Filter{}, ErrInvalidDate
	}

	return f, nil
}

// isDefault reports whether f is the trailing-window view.
func (f Filter) isDefault() bool {
	return !f.All && f.From == nil && f.To == nil
}

func (f Filter) dateRange(today time.Time) DateRange {
	switch {
	case f.All:
		return DateRange{}
	case f.isDefault():
		return DateRange{Since: today.AddDate(0, 0, -30).Format(dateLayout)}
	}

	var r DateRange
	if f.From != nil {
		r.Since = f.From.Format(dateLayout)
	}
	if f.To != nil {
		r.Until = f.To.AddDate(0, 0, 1).Format(dateLayout)
	}
	return r
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
