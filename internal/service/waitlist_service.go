package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
	pkgLog "github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/util"
)

type WaitlistService interface {
	Join(ctx context.Context, tierID, holderID string, qty int) (*models.WaitlistEntry, error)
	IsWaiting(ctx context.Context, tierID, holderID string) (bool, error)
	// Promote offers freed capacity to WAITING entries strictly in FIFO
	// order and returns how many were notified.
	Promote(ctx context.Context, tierID string) (int, error)
	// ExpireNotified expires up to limit overdue NOTIFIED entries without
	// promoting. It returns the tiers that gained capacity.
	ExpireNotified(ctx context.Context, limit int) (int, []string, error)
	// ExpireWaitlistNotifications is ExpireNotified followed by one Promote per tier.
	ExpireWaitlistNotifications(ctx context.Context) (int, error)
}

type waitlistService struct {
	store     repository.Store
	notifier  NotificationPort
	clk       clock.Clock
	notifyTTL time.Duration
	l         pkgLog.Logger
}

func NewWaitlistService(
	store repository.Store,
	notifier NotificationPort,
	clk clock.Clock,
	cfg config.ReservationConfig,
	l pkgLog.Logger,
) WaitlistService {
	return &waitlistService{
		store:     store,
		notifier:  notifier,
		clk:       clk,
		notifyTTL: cfg.NotifyTTL,
		l:         l,
	}
}

func (s *waitlistService) Join(ctx context.Context, tierID, holderID string, qty int) (*models.WaitlistEntry, error) {
	if qty <= 0 {
		return nil, errs.ErrInvalidQuantity
	}
	if err := validateIDs(tierID, holderID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	var entry *models.WaitlistEntry
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		tier, err := s.store.GetTierForUpdate(ctx, tierID)
		if err != nil {
			return err
		}

		existing, err := s.store.FindOpenWaitlistEntry(ctx, tierID, holderID)
		if err != nil {
			return err
		}
		if existing != nil {
			entry = existing
			return nil
		}

		_, available, err := reservedAndAvailable(ctx, s.store, tier, now)
		if err != nil {
			return err
		}
		if available >= qty {
			return errs.ErrTicketsAvailable
		}

		entry = &models.WaitlistEntry{
			ID:        uuid.NewString(),
			TierID:    tierID,
			EventID:   tier.EventID,
			HolderID:  holderID,
			Quantity:  qty,
			Status:    models.WaitlistStatusWaiting,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.store.CreateWaitlistEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *waitlistService) IsWaiting(ctx context.Context, tierID, holderID string) (bool, error) {
	if err := validateIDs(tierID, holderID); err != nil {
		return false, err
	}

	e, err := s.store.FindOpenWaitlistEntry(ctx, tierID, holderID)
	if err != nil {
		s.l.Errorf(ctx, "service.waitlistService.IsWaiting: %v", err)
		return false, err
	}
	return e != nil && e.Status == models.WaitlistStatusWaiting, nil
}

func (s *waitlistService) Promote(ctx context.Context, tierID string) (int, error) {
	now := s.clk.Now()

	tier, err := s.store.GetTier(ctx, tierID)
	if err != nil {
		return 0, err
	}
	_, available, err := reservedAndAvailable(ctx, s.store, tier, now)
	if err != nil {
		return 0, err
	}
	if available <= 0 {
		return 0, nil
	}

	entries, err := s.store.ListWaitingEntries(ctx, tierID)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, e := range entries {
		// Strict FIFO: a head entry that does not fit blocks everyone behind it.
		if available < e.Quantity {
			break
		}

		hold, expiresAt, err := s.promoteEntry(ctx, e, now)
		if err != nil {
			if errors.Is(err, errs.ErrInsufficientInventory) || errors.Is(err, errs.ErrWaitlistNotWaiting) {
				s.l.Warnf(ctx, "service.waitlistService.Promote: skipping entry %s: %v", e.ID, err)
				continue
			}
			s.l.Errorf(ctx, "service.waitlistService.Promote: %v", err)
			return promoted, err
		}

		available -= e.Quantity
		promoted++

		notify(ctx, s.notifier, s.l, e.HolderID, TemplateWaitlistAvailable, map[string]any{
			"waitlist_entry_id": e.ID,
			"tier_id":           e.TierID,
			"event_id":          e.EventID,
			"quantity":          e.Quantity,
			"ticket_hold_id":    hold.ID,
			"expires_at":        util.TimeToISO8601Str(expiresAt),
		})
	}

	if promoted > 0 {
		s.l.Infof(ctx, "promoted %d waitlist entries on tier %s", promoted, tierID)
	}
	return promoted, nil
}

// promoteEntry creates the entry's hold and marks it NOTIFIED in one
// transaction. Either both land or neither does.
func (s *waitlistService) promoteEntry(ctx context.Context, e *models.WaitlistEntry, now time.Time) (*models.TicketHold, time.Time, error) {
	expiresAt := now.Add(s.notifyTTL)
	var hold *models.TicketHold
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		hold, err = createTicketHold(ctx, s.store, now, e.TierID, e.HolderID, e.Quantity, s.notifyTTL)
		if err != nil {
			return err
		}

		ok, err := s.store.MarkWaitlistNotified(ctx, e.ID, hold.ID, now, expiresAt)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrWaitlistNotWaiting
		}
		return nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	return hold, expiresAt, nil
}

func (s *waitlistService) ExpireNotified(ctx context.Context, limit int) (int, []string, error) {
	now := s.clk.Now()

	entries, err := s.store.ListExpiredNotifiedEntries(ctx, now, limit)
	if err != nil {
		return 0, nil, err
	}

	var (
		expired int
		tiers   []string
		seen    = map[string]bool{}
		rowErrs []error
	)
	for _, e := range entries {
		ok, err := s.expireEntry(ctx, e, now)
		if err != nil {
			s.l.Errorf(ctx, "service.waitlistService.ExpireNotified: entry %s: %v", e.ID, err)
			rowErrs = append(rowErrs, err)
			continue
		}
		if !ok {
			continue
		}
		expired++
		if !seen[e.TierID] {
			seen[e.TierID] = true
			tiers = append(tiers, e.TierID)
		}
	}

	return expired, tiers, errors.Join(rowErrs...)
}

func (s *waitlistService) expireEntry(ctx context.Context, e *models.WaitlistEntry, now time.Time) (bool, error) {
	var expired bool
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.store.TransitionWaitlistEntry(ctx, e.ID, models.WaitlistStatusNotified, models.WaitlistStatusExpired, now)
		if err != nil || !ok {
			return err
		}
		expired = true

		if e.TicketHoldID == nil {
			return nil
		}
		_, err = releaseTicketHold(ctx, s.store, *e.TicketHoldID, models.HoldStatusCancelled, now)
		return err
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

func (s *waitlistService) ExpireWaitlistNotifications(ctx context.Context) (int, error) {
	expired, tiers, err := s.ExpireNotified(ctx, 0)
	for _, tierID := range tiers {
		if _, perr := s.Promote(ctx, tierID); perr != nil {
			err = errors.Join(err, perr)
		}
	}
	return expired, err
}
