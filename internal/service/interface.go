package service

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

// Engine is the operation set exposed to transports: HTTP, gRPC and the
// payment event consumer.
type Engine interface {
	CreateTier(ctx context.Context, in CreateTierInput) (*models.Tier, error)
	GetAvailability(ctx context.Context, tierID string) (*AvailabilityOutput, error)

	CreateTicketHold(ctx context.Context, in CreateTicketHoldInput) (*models.TicketHold, error)
	CancelTicketHold(ctx context.Context, holdID, holderID string) error
	FinalizeTicketHold(ctx context.Context, holdID, holderID string) (*models.Order, error)
	// RefundOrder is the holder-facing refund. The order must belong to holderID.
	RefundOrder(ctx context.Context, orderID, holderID string) (*models.Order, error)
	// ForceRefundOrder refunds without an ownership check. It serves the
	// refund.requested event and admin tooling only.
	ForceRefundOrder(ctx context.Context, orderID string) (*models.Order, error)

	CreateDiscountCode(ctx context.Context, in CreateDiscountCodeInput) (*models.DiscountCode, error)
	ValidateDiscountCode(ctx context.Context, in ValidateDiscountCodeInput) (*DiscountCodeValidation, error)
	CreateDiscountHold(ctx context.Context, codeID, holderID string) (*models.DiscountHold, error)
	LinkDiscountHold(ctx context.Context, discountHoldID, ticketHoldID, holderID string) (*models.DiscountHold, error)
	CancelDiscountHold(ctx context.Context, discountHoldID, holderID string) error
	CheckDiscountHold(ctx context.Context, codeID, holderID string) (*models.DiscountHold, error)

	JoinWaitlist(ctx context.Context, in JoinWaitlistInput) (*models.WaitlistEntry, error)
	IsWaiting(ctx context.Context, tierID, holderID string) (bool, error)

	SweepExpired(ctx context.Context) (int, error)
	SweeperStatus() SweeperStatus
}
