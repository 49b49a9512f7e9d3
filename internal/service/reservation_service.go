package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
	pkgLog "github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

type ReservationService interface {
	CreateTier(ctx context.Context, in CreateTierInput) (*models.Tier, error)
	GetAvailability(ctx context.Context, tierID string) (*AvailabilityOutput, error)
	ComputeAvailable(ctx context.Context, tierID string) (int, error)
	CreateHold(ctx context.Context, tierID, holderID string, qty int) (*models.TicketHold, error)
	CancelHold(ctx context.Context, holdID, holderID string) error
	Finalize(ctx context.Context, holdID, holderID string) (*models.Order, error)
	// Refund cancels a CONFIRMED order. A non-empty holderID must own the
	// order; an empty one skips the ownership check for payment events and
	// admin tooling.
	Refund(ctx context.Context, orderID, holderID string) (*models.Order, error)
}

type reservationService struct {
	store    repository.Store
	discSvc  DiscountService
	wlSvc    WaitlistService
	notifier NotificationPort
	clk      clock.Clock
	ttl      time.Duration
	l        pkgLog.Logger
}

func NewReservationService(
	store repository.Store,
	discSvc DiscountService,
	wlSvc WaitlistService,
	notifier NotificationPort,
	clk clock.Clock,
	cfg config.ReservationConfig,
	l pkgLog.Logger,
) ReservationService {
	return &reservationService{
		store:    store,
		discSvc:  discSvc,
		wlSvc:    wlSvc,
		notifier: notifier,
		clk:      clk,
		ttl:      cfg.TicketHoldTTL,
		l:        l,
	}
}

func (s *reservationService) CreateTier(ctx context.Context, in CreateTierInput) (*models.Tier, error) {
	if err := validateIDs(in.EventID, in.Name); err != nil {
		return nil, err
	}
	if in.Capacity < 0 || in.Price < 0 {
		return nil, errs.ErrInvalidQuantity
	}

	now := s.clk.Now()
	t := &models.Tier{
		ID:        uuid.NewString(),
		EventID:   in.EventID,
		Name:      in.Name,
		Capacity:  in.Capacity,
		Price:     in.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTier(ctx, t); err != nil {
		s.l.Errorf(ctx, "service.reservationService.CreateTier: %v", err)
		return nil, err
	}
	return t, nil
}

func (s *reservationService) GetAvailability(ctx context.Context, tierID string) (*AvailabilityOutput, error) {
	if err := validateIDs(tierID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	tier, err := s.store.GetTier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	reserved, available, err := reservedAndAvailable(ctx, s.store, tier, now)
	if err != nil {
		s.l.Errorf(ctx, "service.reservationService.GetAvailability: %v", err)
		return nil, err
	}

	return &AvailabilityOutput{
		TierID:        tier.ID,
		EventID:       tier.EventID,
		Capacity:      tier.Capacity,
		ConfirmedSold: tier.ConfirmedSold,
		Reserved:      reserved,
		Available:     max(available, 0),
		At:            now,
	}, nil
}

func (s *reservationService) ComputeAvailable(ctx context.Context, tierID string) (int, error) {
	out, err := s.GetAvailability(ctx, tierID)
	if err != nil {
		return 0, err
	}
	return out.Available, nil
}

func (s *reservationService) CreateHold(ctx context.Context, tierID, holderID string, qty int) (*models.TicketHold, error) {
	if qty <= 0 {
		return nil, errs.ErrInvalidQuantity
	}
	if err := validateIDs(tierID, holderID); err != nil {
		return nil, err
	}

	hold, err := createTicketHold(ctx, s.store, s.clk.Now(), tierID, holderID, qty, s.ttl)
	if err != nil {
		return nil, err
	}

	s.l.Debugf(ctx, "created hold %s on tier %s for %d units", hold.ID, tierID, qty)
	return hold, nil
}

func (s *reservationService) CancelHold(ctx context.Context, holdID, holderID string) error {
	if err := validateIDs(holdID, holderID); err != nil {
		return err
	}

	now := s.clk.Now()
	var (
		tierID    string
		cancelled bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		h, err := s.store.GetTicketHoldForUpdate(ctx, holdID)
		if err != nil {
			return err
		}
		if h.HolderID != holderID {
			return errs.ErrHoldForbidden
		}
		if h.Status.IsTerminal() {
			return nil
		}

		ok, err := releaseTicketHold(ctx, s.store, h.ID, models.HoldStatusCancelled, now)
		if err != nil || !ok {
			return err
		}
		tierID, cancelled = h.TierID, true

		// A waiter that gives up its offer loses its place.
		e, err := s.store.FindWaitlistEntryByTicketHold(ctx, h.ID)
		if err != nil {
			return err
		}
		if e != nil {
			if _, err := s.store.TransitionWaitlistEntry(ctx, e.ID, models.WaitlistStatusNotified, models.WaitlistStatusExpired, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if cancelled {
		s.promote(ctx, tierID)
	}
	return nil
}

func (s *reservationService) Finalize(ctx context.Context, holdID, holderID string) (*models.Order, error) {
	if err := validateIDs(holdID, holderID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	var order *models.Order
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		h, err := s.store.GetTicketHoldForUpdate(ctx, holdID)
		if err != nil {
			return err
		}
		if h.HolderID != holderID {
			return errs.ErrHoldForbidden
		}
		if !h.IsActive(now) {
			return errs.ErrHoldExpired
		}

		tier, err := s.store.GetTierForUpdate(ctx, h.TierID)
		if err != nil {
			return err
		}
		if err := s.store.AddConfirmedSold(ctx, tier.ID, h.Quantity, now); err != nil {
			return err
		}
		ok, err := s.store.TransitionTicketHold(ctx, h.ID, models.HoldStatusPending, models.HoldStatusCompleted, now)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrHoldExpired
		}

		order = &models.Order{
			ID:           uuid.NewString(),
			HolderID:     h.HolderID,
			TierID:       tier.ID,
			TicketHoldID: h.ID,
			Quantity:     h.Quantity,
			Amount:       tier.Price * int64(h.Quantity),
			Status:       models.OrderStatusConfirmed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		dh, err := s.store.FindPendingDiscountHoldByTicketHold(ctx, h.ID)
		if err != nil {
			return err
		}
		if dh != nil && dh.IsActive(now) {
			code, err := s.discSvc.Finalize(ctx, dh.ID)
			if err != nil {
				return err
			}
			order.Amount = code.Apply(order.Amount)
			codeID, dhID := code.ID, dh.ID
			order.DiscountCodeID = &codeID
			order.DiscountHoldID = &dhID
		}

		if err := s.store.CreateOrder(ctx, order); err != nil {
			return err
		}

		e, err := s.store.FindWaitlistEntryByTicketHold(ctx, h.ID)
		if err != nil {
			return err
		}
		if e != nil {
			if _, err := s.store.TransitionWaitlistEntry(ctx, e.ID, models.WaitlistStatusNotified, models.WaitlistStatusPurchased, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.l.Infof(ctx, "finalized hold %s into order %s", holdID, order.ID)
	notify(ctx, s.notifier, s.l, order.HolderID, TemplateOrderConfirmed, orderData(order))
	return order, nil
}

func (s *reservationService) Refund(ctx context.Context, orderID, holderID string) (*models.Order, error) {
	if err := validateIDs(orderID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	var order *models.Order
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		o, err := s.store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if holderID != "" && o.HolderID != holderID {
			return errs.ErrOrderForbidden
		}
		if o.Status != models.OrderStatusConfirmed {
			return errs.ErrOrderNotRefundable
		}

		if _, err := s.store.GetTierForUpdate(ctx, o.TierID); err != nil {
			return err
		}
		if err := s.store.AddConfirmedSold(ctx, o.TierID, -o.Quantity, now); err != nil {
			return err
		}
		if err := s.store.UpdateOrderStatus(ctx, o.ID, models.OrderStatusCancelled, now); err != nil {
			return err
		}
		if o.DiscountHoldID != nil {
			if err := s.discSvc.Reverse(ctx, *o.DiscountHoldID); err != nil {
				return err
			}
		}

		o.Status = models.OrderStatusCancelled
		o.UpdatedAt = now
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.l.Infof(ctx, "refunded order %s", order.ID)
	notify(ctx, s.notifier, s.l, order.HolderID, TemplateOrderRefunded, orderData(order))
	s.promote(ctx, order.TierID)
	return order, nil
}

// promote runs after a commit that freed capacity. Its failure does not undo
// the caller's operation; the next sweep retries.
func (s *reservationService) promote(ctx context.Context, tierID string) {
	if s.wlSvc == nil {
		return
	}
	if _, err := s.wlSvc.Promote(ctx, tierID); err != nil {
		s.l.Errorf(ctx, "service.reservationService.promote: tier %s: %v", tierID, err)
	}
}

func orderData(o *models.Order) map[string]any {
	data := map[string]any{
		"order_id":       o.ID,
		"tier_id":        o.TierID,
		"ticket_hold_id": o.TicketHoldID,
		"quantity":       o.Quantity,
		"amount":         o.Amount,
		"status":         o.Status,
	}
	if o.DiscountCodeID != nil {
		data["discount_code_id"] = *o.DiscountCodeID
	}
	return data
}
