package repository

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrSoldOut           = errors.New("not enough seats remaining")
	ErrAlreadyUsed       = errors.New("ticket already used")
	ErrInadmissible      = errors.New("ticket order is not paid")
	ErrCodeRedeemed      = errors.New("exchange code already redeemed")
	ErrInvalidTransition = errors.New("illegal order status transition")
)
