package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountNotUsable    = errors.New("account is inactive or deleted")
	ErrInsufficientBalance = errors.New("insufficient balance on source account")
	ErrInsufficientLimit   = errors.New("insufficient limit on this account")
	ErrInvalidAccountKind  = errors.New("unknown account kind")
	ErrMissingAccountName  = errors.New("account name is required")
	ErrMissingOwner        = errors.New("account owner is required")

	// Event errors
	ErrEventNotFound             = errors.New("event not found")
	ErrInvalidEventKind          = errors.New("unknown event kind")
	ErrInvalidAmount             = errors.New("amount must be positive")
	ErrMissingSourceAccount      = errors.New("event kind requires a source account")
	ErrMissingDestinationAccount = errors.New("event kind requires a destination account")
	ErrSameAccount               = errors.New("cannot transfer to same account")
	ErrInstallmentNeedsCard      = errors.New("installment purchase requires a credit card source")

	// Conversion errors
	ErrRateUnavailable = errors.New("no exchange rate available for currency")

	// Integrity errors
	ErrStaleSnapshot = errors.New("reversal snapshot is invalid or already consumed")
)
