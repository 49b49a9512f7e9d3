package errors

import "errors"

var (
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrInvalidID             = errors.New("invalid id")
	ErrTierNotFound          = errors.New("tier not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")

	ErrHoldNotFound  = errors.New("hold not found")
	ErrHoldForbidden = errors.New("hold belongs to another holder")
	ErrHoldExpired   = errors.New("hold is expired or no longer pending")

	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotRefundable = errors.New("order is not in a refundable state")
	ErrOrderForbidden     = errors.New("order belongs to another holder")
)
