package model

import "errors"

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrValidation        = errors.New("validation failed")
	ErrRateUnavailable   = errors.New("rate unavailable")
	ErrQuoteNotFound     = errors.New("quote not found")
	ErrAlreadyRedeemed   = errors.New("quote already redeemed")
	ErrInvalidExpiration = errors.New("expiration cannot move backwards")
	ErrStorageConflict   = errors.New("storage conflict")
	ErrNotFound          = errors.New("not found")
)
