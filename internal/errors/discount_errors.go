package errors

import "errors"

var (
	ErrCodeNotFound      = errors.New("discount code not found")
	ErrCodeExists        = errors.New("discount code already exists for this event")
	ErrCodeNotApplicable = errors.New("discount code does not apply to this tier")
	ErrMaxUsesReached    = errors.New("discount code has reached maximum usage")
	ErrNotYetActive      = errors.New("discount code is not yet active")
	ErrCodeExpired       = errors.New("discount code has expired")
	ErrAlreadyLinked     = errors.New("discount hold is already linked to a ticket hold")
	ErrInvalidWindow     = errors.New("validity window end must be after start")
	ErrInvalidDiscount   = errors.New("invalid discount kind or value")
)
