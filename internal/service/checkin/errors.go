package checkin

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrAlreadyUsed    = errors.New("ticket already used")
	ErrInadmissible   = errors.New("ticket does not admit: order is not paid")
)
