package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientBalance = errors.New("insufficient points")
	ErrUserNotFound        = errors.New("user not found")
	ErrRewardNotFound      = errors.New("reward not found")
)

// ValidationError reports a bad operation argument.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MaxPoints caps a single balance change so sums stay inside SQLite's
// integer range.
const MaxPoints = 1_000_000

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
