package service

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
	pkgLog "github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

type engine struct {
	resSvc  ReservationService
	discSvc DiscountService
	wlSvc   WaitlistService
	sweeper ExpirySweeper
}

// Components bundles the managers behind an Engine so callers can start the
// sweeper or reach a manager directly.
type Components struct {
	Reservation ReservationService
	Discount    DiscountService
	Waitlist    WaitlistService
	Sweeper     ExpirySweeper
}

// NewComponents wires the managers over one store. locker may be nil.
func NewComponents(
	store repository.Store,
	notifier NotificationPort,
	locker Locker,
	clk clock.Clock,
	cfg config.ReservationConfig,
	l pkgLog.Logger,
) Components {
	discSvc := NewDiscountService(store, clk, cfg, l)
	wlSvc := NewWaitlistService(store, notifier, clk, cfg, l)
	resSvc := NewReservationService(store, discSvc, wlSvc, notifier, clk, cfg, l)
	sweeper := NewExpirySweeper(store, wlSvc, locker, clk, l, cfg)

	return Components{
		Reservation: resSvc,
		Discount:    discSvc,
		Waitlist:    wlSvc,
		Sweeper:     sweeper,
	}
}

func NewEngine(c Components) Engine {
	return &engine{
		resSvc:  c.Reservation,
		discSvc: c.Discount,
		wlSvc:   c.Waitlist,
		sweeper: c.Sweeper,
	}
}

func (e *engine) CreateTier(ctx context.Context, in CreateTierInput) (*models.Tier, error) {
	return e.resSvc.CreateTier(ctx, in)
}

func (e *engine) GetAvailability(ctx context.Context, tierID string) (*AvailabilityOutput, error) {
	return e.resSvc.GetAvailability(ctx, tierID)
}

func (e *engine) CreateTicketHold(ctx context.Context, in CreateTicketHoldInput) (*models.TicketHold, error) {
	return e.resSvc.CreateHold(ctx, in.TierID, in.HolderID, in.Quantity)
}

func (e *engine) CancelTicketHold(ctx context.Context, holdID, holderID string) error {
	return e.resSvc.CancelHold(ctx, holdID, holderID)
}

func (e *engine) FinalizeTicketHold(ctx context.Context, holdID, holderID string) (*models.Order, error) {
	return e.resSvc.Finalize(ctx, holdID, holderID)
}

func (e *engine) RefundOrder(ctx context.Context, orderID, holderID string) (*models.Order, error) {
	if err := validateIDs(holderID); err != nil {
		return nil, err
	}
	return e.resSvc.Refund(ctx, orderID, holderID)
}

func (e *engine) ForceRefundOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return e.resSvc.Refund(ctx, orderID, "")
}

func (e *engine) CreateDiscountCode(ctx context.Context, in CreateDiscountCodeInput) (*models.DiscountCode, error) {
	return e.discSvc.CreateDiscountCode(ctx, in)
}

func (e *engine) ValidateDiscountCode(ctx context.Context, in ValidateDiscountCodeInput) (*DiscountCodeValidation, error) {
	return e.discSvc.ValidateCode(ctx, in)
}

func (e *engine) CreateDiscountHold(ctx context.Context, codeID, holderID string) (*models.DiscountHold, error) {
	return e.discSvc.CreateHold(ctx, codeID, holderID)
}

func (e *engine) LinkDiscountHold(ctx context.Context, discountHoldID, ticketHoldID, holderID string) (*models.DiscountHold, error) {
	return e.discSvc.LinkToTicketHold(ctx, discountHoldID, ticketHoldID, holderID)
}

func (e *engine) CancelDiscountHold(ctx context.Context, discountHoldID, holderID string) error {
	return e.discSvc.Cancel(ctx, discountHoldID, holderID)
}

func (e *engine) CheckDiscountHold(ctx context.Context, codeID, holderID string) (*models.DiscountHold, error) {
	return e.discSvc.GetActiveHold(ctx, codeID, holderID)
}

func (e *engine) JoinWaitlist(ctx context.Context, in JoinWaitlistInput) (*models.WaitlistEntry, error) {
	return e.wlSvc.Join(ctx, in.TierID, in.HolderID, in.Quantity)
}

func (e *engine) IsWaiting(ctx context.Context, tierID, holderID string) (bool, error) {
	return e.wlSvc.IsWaiting(ctx, tierID, holderID)
}

func (e *engine) SweepExpired(ctx context.Context) (int, error) {
	return e.sweeper.SweepExpired(ctx)
}

func (e *engine) SweeperStatus() SweeperStatus {
	return e.sweeper.GetStatus()
}
