package grpc

import (
	"errors"

	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	pkgErrors "github.com/vogiaan1904/ticketbottle-reservation/pkg/errors"
	"google.golang.org/grpc/codes"
)

var (
	errInsufficientInventory = pkgErrors.NewGRPCError("RSV001", codes.FailedPrecondition, "Insufficient inventory")
	errMaxUsesReached        = pkgErrors.NewGRPCError("RSV002", codes.ResourceExhausted, "Discount code has reached maximum usage")
	errNotYetActive          = pkgErrors.NewGRPCError("RSV003", codes.FailedPrecondition, "Discount code is not yet active")
	errCodeExpired           = pkgErrors.NewGRPCError("RSV004", codes.FailedPrecondition, "Discount code has expired")
	errHoldNotFound          = pkgErrors.NewGRPCError("RSV005", codes.NotFound, "Hold not found")
	errHoldForbidden         = pkgErrors.NewGRPCError("RSV006", codes.PermissionDenied, "Hold belongs to another holder")
	errHoldExpired           = pkgErrors.NewGRPCError("RSV007", codes.FailedPrecondition, "Hold is expired or no longer pending")
	errAlreadyLinked         = pkgErrors.NewGRPCError("RSV008", codes.AlreadyExists, "Discount hold is already linked")
	errInvalidQuantity       = pkgErrors.NewGRPCError("RSV009", codes.InvalidArgument, "Quantity must be greater than zero")
	errInvalidWindow         = pkgErrors.NewGRPCError("RSV010", codes.InvalidArgument, "Validity window end must be after start")

	errTierNotFound       = pkgErrors.NewGRPCError("RSV011", codes.NotFound, "Tier not found")
	errOrderNotFound      = pkgErrors.NewGRPCError("RSV012", codes.NotFound, "Order not found")
	errOrderNotRefundable = pkgErrors.NewGRPCError("RSV013", codes.FailedPrecondition, "Order is not refundable")
	errCodeNotFound       = pkgErrors.NewGRPCError("RSV014", codes.NotFound, "Discount code not found")
	errCodeNotApplicable  = pkgErrors.NewGRPCError("RSV015", codes.FailedPrecondition, "Discount code does not apply to this tier")
	errCodeExists         = pkgErrors.NewGRPCError("RSV016", codes.AlreadyExists, "Discount code already exists")
	errTicketsAvailable   = pkgErrors.NewGRPCError("RSV017", codes.FailedPrecondition, "Tickets are available")
	errInvalidDiscount    = pkgErrors.NewGRPCError("RSV018", codes.InvalidArgument, "Invalid discount kind or value")
	errInvalidID          = pkgErrors.NewGRPCError("RSV019", codes.InvalidArgument, "Invalid id")
	errSweepInProgress    = pkgErrors.NewGRPCError("RSV020", codes.Aborted, "Another sweep is in progress")
	errWaitlistNotWaiting = pkgErrors.NewGRPCError("RSV021", codes.FailedPrecondition, "Waitlist entry is no longer waiting")
	errInvalidRequest     = pkgErrors.NewGRPCError("RSV022", codes.InvalidArgument, "Invalid request")
	errUnauthenticated    = pkgErrors.NewGRPCError("RSV023", codes.Unauthenticated, "Unauthenticated")
	errOrderForbidden     = pkgErrors.NewGRPCError("RSV024", codes.PermissionDenied, "Order belongs to another holder")
)

var grpcErrors = []struct {
	target error
	mapped *pkgErrors.GRPCError
}{
	{errs.ErrInsufficientInventory, errInsufficientInventory},
	{errs.ErrMaxUsesReached, errMaxUsesReached},
	{errs.ErrNotYetActive, errNotYetActive},
	{errs.ErrCodeExpired, errCodeExpired},
	{errs.ErrHoldNotFound, errHoldNotFound},
	{errs.ErrHoldForbidden, errHoldForbidden},
	{errs.ErrHoldExpired, errHoldExpired},
	{errs.ErrAlreadyLinked, errAlreadyLinked},
	{errs.ErrInvalidQuantity, errInvalidQuantity},
	{errs.ErrInvalidWindow, errInvalidWindow},
	{errs.ErrTierNotFound, errTierNotFound},
	{errs.ErrOrderNotFound, errOrderNotFound},
	{errs.ErrOrderNotRefundable, errOrderNotRefundable},
	{errs.ErrCodeNotFound, errCodeNotFound},
	{errs.ErrCodeNotApplicable, errCodeNotApplicable},
	{errs.ErrCodeExists, errCodeExists},
	{errs.ErrTicketsAvailable, errTicketsAvailable},
	{errs.ErrInvalidDiscount, errInvalidDiscount},
	{errs.ErrInvalidID, errInvalidID},
	{errs.ErrSweepInProgress, errSweepInProgress},
	{errs.ErrWaitlistNotWaiting, errWaitlistNotWaiting},
	{errs.ErrOrderForbidden, errOrderForbidden},
	{auth.ErrTokenEmpty, errUnauthenticated},
	{auth.ErrTokenInvalid, errUnauthenticated},
	{auth.ErrTokenInvalidClaims, errUnauthenticated},
}

func mapGRPCError(err error) error {
	for _, e := range grpcErrors {
		if errors.Is(err, e.target) {
			return e.mapped
		}
	}
	return err
}
