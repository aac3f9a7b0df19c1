package model

import "errors"

// Typed failures surfaced to callers so upstream layers can map them to
// precise responses instead of a generic 500.
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInstrumentNotFound   = errors.New("instrument not found")
	ErrPriceUnavailable     = errors.New("price unavailable")
	ErrUnsupportedAlertKind = errors.New("unsupported alert kind")
	ErrInvalidAlertParams   = errors.New("invalid alert parameters")
	ErrUnauthorized         = errors.New("unauthorized action")
	ErrAlertNotFound        = errors.New("alert not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrHoldingNotFound      = errors.New("holding not found")
	ErrInvalidArgument      = errors.New("invalid argument")
)
