package http

import (
	"errors"
	"net/http"

	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	pkgErrors "github.com/vogiaan1904/ticketbottle-reservation/pkg/errors"
)

var (
	errInvalidQuantity = pkgErrors.NewHTTPError(40001, http.StatusBadRequest, "Quantity must be greater than zero")
	errInvalidID       = pkgErrors.NewHTTPError(40002, http.StatusBadRequest, "Invalid id")
	errInvalidWindow   = pkgErrors.NewHTTPError(40003, http.StatusBadRequest, "Validity window end must be after start")
	errInvalidDiscount = pkgErrors.NewHTTPError(40004, http.StatusBadRequest, "Invalid discount kind or value")
	errInvalidBody     = pkgErrors.NewHTTPError(40005, http.StatusBadRequest, "Invalid request body")

	errUnauthorized   = pkgErrors.NewHTTPError(40101, http.StatusUnauthorized, "Unauthorized")
	errHoldForbidden  = pkgErrors.NewHTTPError(40301, http.StatusForbidden, "Hold belongs to another holder")
	errOrderForbidden = pkgErrors.NewHTTPError(40302, http.StatusForbidden, "Order belongs to another holder")

	errTierNotFound  = pkgErrors.NewHTTPError(40401, http.StatusNotFound, "Tier not found")
	errHoldNotFound  = pkgErrors.NewHTTPError(40402, http.StatusNotFound, "Hold not found")
	errOrderNotFound = pkgErrors.NewHTTPError(40403, http.StatusNotFound, "Order not found")
	errCodeNotFound  = pkgErrors.NewHTTPError(40404, http.StatusNotFound, "Discount code not found")

	errInsufficientInventory = pkgErrors.NewHTTPError(40901, http.StatusConflict, "Insufficient inventory")
	errMaxUsesReached        = pkgErrors.NewHTTPError(40902, http.StatusConflict, "Discount code has reached maximum usage")
	errAlreadyLinked         = pkgErrors.NewHTTPError(40903, http.StatusConflict, "Discount hold is already linked")
	errCodeExists            = pkgErrors.NewHTTPError(40904, http.StatusConflict, "Discount code already exists")
	errTicketsAvailable      = pkgErrors.NewHTTPError(40905, http.StatusConflict, "Tickets are available")
	errSweepInProgress       = pkgErrors.NewHTTPError(40906, http.StatusConflict, "Another sweep is in progress")
	errOrderNotRefundable    = pkgErrors.NewHTTPError(40907, http.StatusConflict, "Order is not refundable")
	errWaitlistNotWaiting    = pkgErrors.NewHTTPError(40908, http.StatusConflict, "Waitlist entry is no longer waiting")

	errHoldExpired  = pkgErrors.NewHTTPError(41001, http.StatusGone, "Hold is expired or no longer pending")
	errCodeExpired  = pkgErrors.NewHTTPError(41002, http.StatusGone, "Discount code has expired")
	errNotYetActive = pkgErrors.NewHTTPError(42201, http.StatusUnprocessableEntity, "Discount code is not yet active")

	errCodeNotApplicable = pkgErrors.NewHTTPError(42202, http.StatusUnprocessableEntity, "Discount code does not apply to this tier")
)

var httpErrors = []struct {
	target error
	mapped *pkgErrors.HTTPError
}{
	{errs.ErrInvalidQuantity, errInvalidQuantity},
	{errs.ErrInvalidID, errInvalidID},
	{errs.ErrInvalidWindow, errInvalidWindow},
	{errs.ErrInvalidDiscount, errInvalidDiscount},
	{errs.ErrHoldForbidden, errHoldForbidden},
	{errs.ErrOrderForbidden, errOrderForbidden},
	{errs.ErrTierNotFound, errTierNotFound},
	{errs.ErrHoldNotFound, errHoldNotFound},
	{errs.ErrOrderNotFound, errOrderNotFound},
	{errs.ErrCodeNotFound, errCodeNotFound},
	{errs.ErrInsufficientInventory, errInsufficientInventory},
	{errs.ErrMaxUsesReached, errMaxUsesReached},
	{errs.ErrAlreadyLinked, errAlreadyLinked},
	{errs.ErrCodeExists, errCodeExists},
	{errs.ErrTicketsAvailable, errTicketsAvailable},
	{errs.ErrSweepInProgress, errSweepInProgress},
	{errs.ErrOrderNotRefundable, errOrderNotRefundable},
	{errs.ErrWaitlistNotWaiting, errWaitlistNotWaiting},
	{errs.ErrHoldExpired, errHoldExpired},
	{errs.ErrCodeExpired, errCodeExpired},
	{errs.ErrNotYetActive, errNotYetActive},
	{errs.ErrCodeNotApplicable, errCodeNotApplicable},
	{auth.ErrTokenEmpty, errUnauthorized},
	{auth.ErrTokenInvalid, errUnauthorized},
	{auth.ErrTokenInvalidClaims, errUnauthorized},
}

// mapHTTPError translates domain errors. ok is false for errors with no
// mapping, which render as 500.
func mapHTTPError(err error) (mapped error, ok bool) {
	for _, e := range httpErrors {
		if errors.Is(err, e.target) {
			return e.mapped, true
		}
	}
	return err, false
}
