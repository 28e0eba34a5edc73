package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrPerformanceNotFound = errors.New("performance not found")
	ErrNotOnSale           = errors.New("performance is not on sale")
	ErrSoldOut             = errors.New("not enough seats remaining")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidTransition   = errors.New("order is not awaiting payment")
	ErrCodeConflict        = errors.New("exchange code was redeemed by another order")
	ErrTooManyRequests     = errors.New("too many requests")
)

// ValidationError reports a rejected request field before any state changes.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// InvalidCodeError names the exchange code that failed validation.
type InvalidCodeError struct {
	Code   string
	Reason string
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("exchange code %q: %s", e.Code, e.Reason)
}
