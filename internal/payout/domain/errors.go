package domain

import "errors"

var (
	ErrNotFound         = errors.New("payout not found")
	ErrAlreadyExists    = errors.New("payout already exists")
	ErrInvalidRequest   = errors.New("invalid payout request")
	ErrInvalidStatus    = errors.New("payout status does not allow this operation")
	ErrMerchantInactive = errors.New("merchant is not active")
	ErrRetriesExhausted = errors.New("max retries exceeded")
	ErrInvalidID        = errors.New("invalid payout id")
)
