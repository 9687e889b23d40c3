package transaction

import "errors"

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrForbidden     = errors.New("transaction belongs to another user")
	ErrInvalidPeriod = errors.New("invalid period, choose 'daily', 'weekly' or 'monthly'")
	ErrInvalidDate   = errors.New("invalid date filter")
)

// ValidationError reports the first rule a new transaction broke.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
