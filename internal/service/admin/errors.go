package admin

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrPerformanceNotFound = errors.New("performance not found")
	ErrInvalidStatus       = errors.New("unknown order status")
	ErrForbiddenTransition = errors.New("transition not allowed")
	ErrConcurrentChange    = errors.New("order changed concurrently, retry with fresh state")
)
