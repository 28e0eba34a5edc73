package query

import "errors"

var (
	ErrPerformanceNotFound = errors.New("performance not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrTicketNotFound      = errors.New("ticket not found")
)
