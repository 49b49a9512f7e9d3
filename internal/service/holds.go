package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
)

// reservedAndAvailable reads the tier's active reservations at now. Callers
// that act on the result must hold the tier row lock.
func reservedAndAvailable(ctx context.Context, store repository.Store, tier *models.Tier, now time.Time) (int, int, error) {
	reserved, err := store.SumActiveTicketHolds(ctx, tier.ID, now)
	if err != nil {
		return 0, 0, err
	}
	return reserved, tier.Available(reserved), nil
}

// createTicketHold checks capacity and inserts a PENDING hold in one
// transaction on the locked tier row.
func createTicketHold(ctx context.Context, store repository.Store, now time.Time, tierID, holderID string, qty int, ttl time.Duration) (*models.TicketHold, error) {
	var hold *models.TicketHold
	err := store.WithTx(ctx, func(ctx context.Context) error {
		tier, err := store.GetTierForUpdate(ctx, tierID)
		if err != nil {
			return err
		}

		_, available, err := reservedAndAvailable(ctx, store, tier, now)
		if err != nil {
			return err
		}
		if qty > available {
			return errs.ErrInsufficientInventory
		}

		hold = &models.TicketHold{
			ID:        uuid.NewString(),
			TierID:    tierID,
			HolderID:  holderID,
			Quantity:  qty,
			Status:    models.HoldStatusPending,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
			UpdatedAt: now,
		}
		return store.CreateTicketHold(ctx, hold)
	})
	if err != nil {
		return nil, err
	}
	return hold, nil
}

// releaseTicketHold moves a PENDING ticket hold to status and cancels the
// discount hold linked to it. It reports false when the hold was not pending.
func releaseTicketHold(ctx context.Context, store repository.Store, holdID string, status models.HoldStatus, now time.Time) (bool, error) {
	ok, err := store.TransitionTicketHold(ctx, holdID, models.HoldStatusPending, status, now)
	if err != nil || !ok {
		return false, err
	}

	dh, err := store.FindPendingDiscountHoldByTicketHold(ctx, holdID)
	if err != nil {
		return false, err
	}
	if dh != nil {
		if _, err := store.TransitionDiscountHold(ctx, dh.ID, models.HoldStatusPending, models.HoldStatusCancelled, now); err != nil {
			return false, err
		}
	}
	return true, nil
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return errs.ErrInvalidID
		}
	}
	return nil
}
