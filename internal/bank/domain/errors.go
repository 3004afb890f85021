package domain

import "errors"

var (
	ErrUnknownBank        = errors.New("unknown bank code")
	ErrInvalidProfile     = errors.New("invalid bank profile")
	ErrMethodNotSupported = errors.New("method not supported by bank")
	ErrAmountOutOfRange   = errors.New("amount outside bank limits")
	ErrClientNotFound     = errors.New("bank client not registered")
)
