package exchange

import "errors"

var (
	ErrEmptyCode     = errors.New("exchange code is empty")
	ErrUnknownCode   = errors.New("exchange code does not exist")
	ErrCodeRedeemed  = errors.New("exchange code already redeemed")
	ErrDuplicateCode = errors.New("exchange code already exists")
)
