package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
	pkgLog "github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

type DiscountService interface {
	CreateDiscountCode(ctx context.Context, in CreateDiscountCodeInput) (*models.DiscountCode, error)
	// ValidateCode resolves a typed code to its terms. It reserves nothing.
	ValidateCode(ctx context.Context, in ValidateDiscountCodeInput) (*DiscountCodeValidation, error)
	CreateHold(ctx context.Context, codeID, holderID string) (*models.DiscountHold, error)
	LinkToTicketHold(ctx context.Context, discountHoldID, ticketHoldID, holderID string) (*models.DiscountHold, error)
	// Finalize consumes one use of the code and returns the code so the
	// caller can price the order.
	Finalize(ctx context.Context, discountHoldID string) (*models.DiscountCode, error)
	Cancel(ctx context.Context, discountHoldID, holderID string) error
	// Reverse gives back the use taken by a COMPLETED hold. Other statuses are a no-op.
	Reverse(ctx context.Context, discountHoldID string) error
	GetActiveHold(ctx context.Context, codeID, holderID string) (*models.DiscountHold, error)
}

type discountService struct {
	store repository.Store
	clk   clock.Clock
	ttl   time.Duration
	l     pkgLog.Logger
}

func NewDiscountService(store repository.Store, clk clock.Clock, cfg config.ReservationConfig, l pkgLog.Logger) DiscountService {
	return &discountService{
		store: store,
		clk:   clk,
		ttl:   cfg.DiscountHoldTTL,
		l:     l,
	}
}

func (s *discountService) CreateDiscountCode(ctx context.Context, in CreateDiscountCodeInput) (*models.DiscountCode, error) {
	in.Code = strings.TrimSpace(in.Code)
	if err := validateIDs(in.EventID, in.Code); err != nil {
		return nil, err
	}
	if !in.Kind.IsValid() || in.Value < 0 || (in.Kind == models.DiscountKindPercentage && in.Value > 100) {
		return nil, errs.ErrInvalidDiscount
	}
	if in.MaxUses != nil && *in.MaxUses < 0 {
		return nil, errs.ErrInvalidDiscount
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return nil, errs.ErrInvalidWindow
	}

	now := s.clk.Now()
	code := &models.DiscountCode{
		ID:        uuid.NewString(),
		EventID:   in.EventID,
		Code:      in.Code,
		Kind:      in.Kind,
		Value:     in.Value,
		MaxUses:   in.MaxUses,
		StartsAt:  in.StartsAt,
		EndsAt:    in.EndsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateDiscountCode(ctx, code); err != nil {
		if !errors.Is(err, errs.ErrCodeExists) {
			s.l.Errorf(ctx, "service.discountService.CreateDiscountCode: %v", err)
		}
		return nil, err
	}

	return code, nil
}

func (s *discountService) ValidateCode(ctx context.Context, in ValidateDiscountCodeInput) (*DiscountCodeValidation, error) {
	in.Code = strings.TrimSpace(in.Code)
	if err := validateIDs(in.EventID, in.Code); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	code, err := s.store.GetDiscountCodeByCode(ctx, in.EventID, in.Code)
	if err != nil {
		if !errors.Is(err, errs.ErrCodeNotFound) {
			s.l.Errorf(ctx, "service.discountService.ValidateCode: %v", err)
		}
		return nil, err
	}
	if err := checkWindow(code, now); err != nil {
		return nil, err
	}

	out := &DiscountCodeValidation{
		CodeID:  code.ID,
		EventID: code.EventID,
		Code:    code.Code,
		Kind:    code.Kind,
		Value:   code.Value,
	}
	if code.Unlimited() {
		return out, nil
	}

	active, err := s.store.CountActiveDiscountHolds(ctx, code.ID, now)
	if err != nil {
		s.l.Errorf(ctx, "service.discountService.ValidateCode: %v", err)
		return nil, err
	}
	// The holder's own hold is superseded by the next CreateHold, so it
	// does not count against them.
	if in.HolderID != "" {
		own, err := s.store.FindActiveDiscountHold(ctx, code.ID, in.HolderID, now)
		if err != nil {
			s.l.Errorf(ctx, "service.discountService.ValidateCode: %v", err)
			return nil, err
		}
		if own != nil {
			active--
		}
	}

	remaining := *code.MaxUses - code.ConfirmedUses - active
	if remaining < 1 {
		return nil, errs.ErrMaxUsesReached
	}
	out.Remaining = &remaining
	return out, nil
}

func checkWindow(code *models.DiscountCode, now time.Time) error {
	if code.StartsAt != nil && now.Before(*code.StartsAt) {
		return errs.ErrNotYetActive
	}
	if code.EndsAt != nil && !now.Before(*code.EndsAt) {
		return errs.ErrCodeExpired
	}
	return nil
}

func (s *discountService) CreateHold(ctx context.Context, codeID, holderID string) (*models.DiscountHold, error) {
	if err := validateIDs(codeID, holderID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	var hold *models.DiscountHold
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		code, err := s.store.GetDiscountCodeForUpdate(ctx, codeID)
		if err != nil {
			return err
		}
		if err := checkWindow(code, now); err != nil {
			return err
		}

		// A new hold supersedes the holder's previous one on this code.
		prior, err := s.store.ListPendingDiscountHoldsForHolder(ctx, codeID, holderID)
		if err != nil {
			return err
		}
		for _, p := range prior {
			to := models.HoldStatusCancelled
			if !p.IsActive(now) {
				to = models.HoldStatusExpired
			}
			if _, err := s.store.TransitionDiscountHold(ctx, p.ID, models.HoldStatusPending, to, now); err != nil {
				return err
			}
		}

		if !code.Unlimited() {
			active, err := s.store.CountActiveDiscountHolds(ctx, codeID, now)
			if err != nil {
				return err
			}
			if *code.MaxUses-code.ConfirmedUses-active < 1 {
				return errs.ErrMaxUsesReached
			}
		}

		hold = &models.DiscountHold{
			ID:             uuid.NewString(),
			DiscountCodeID: codeID,
			HolderID:       holderID,
			Status:         models.HoldStatusPending,
			CreatedAt:      now,
			ExpiresAt:      now.Add(s.ttl),
			UpdatedAt:      now,
		}
		return s.store.CreateDiscountHold(ctx, hold)
	})
	if err != nil {
		return nil, err
	}

	return hold, nil
}

func (s *discountService) LinkToTicketHold(ctx context.Context, discountHoldID, ticketHoldID, holderID string) (*models.DiscountHold, error) {
	if err := validateIDs(discountHoldID, ticketHoldID, holderID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	var linked *models.DiscountHold
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		// Ticket hold before discount hold, the same order Finalize and
		// CancelHold take them in.
		th, err := s.store.GetTicketHoldForUpdate(ctx, ticketHoldID)
		if err != nil {
			return err
		}
		dh, err := s.store.GetDiscountHoldForUpdate(ctx, discountHoldID)
		if err != nil {
			return err
		}

		if dh.HolderID != holderID {
			return errs.ErrHoldForbidden
		}
		if dh.IsLinked() {
			return errs.ErrAlreadyLinked
		}
		if !dh.IsActive(now) {
			return errs.ErrHoldExpired
		}
		if th.HolderID != holderID {
			return errs.ErrHoldForbidden
		}
		if !th.IsActive(now) {
			return errs.ErrHoldExpired
		}

		existing, err := s.store.FindPendingDiscountHoldByTicketHold(ctx, ticketHoldID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.ErrAlreadyLinked
		}

		code, err := s.store.GetDiscountCode(ctx, dh.DiscountCodeID)
		if err != nil {
			return err
		}
		tier, err := s.store.GetTier(ctx, th.TierID)
		if err != nil {
			return err
		}
		if code.EventID != tier.EventID {
			return errs.ErrCodeNotApplicable
		}

		// The discount hold never outlives the ticket hold it rides on.
		expiresAt := dh.ExpiresAt
		if th.ExpiresAt.Before(expiresAt) {
			expiresAt = th.ExpiresAt
		}
		if err := s.store.LinkDiscountHold(ctx, dh.ID, th.ID, expiresAt, now); err != nil {
			return err
		}

		link := th.ID
		dh.TicketHoldID = &link
		dh.ExpiresAt = expiresAt
		dh.UpdatedAt = now
		linked = dh
		return nil
	})
	if err != nil {
		return nil, err
	}

	return linked, nil
}

func (s *discountService) Finalize(ctx context.Context, discountHoldID string) (*models.DiscountCode, error) {
	if err := validateIDs(discountHoldID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	var code *models.DiscountCode
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		dh, err := s.store.GetDiscountHoldForUpdate(ctx, discountHoldID)
		if err != nil {
			return err
		}
		if !dh.IsActive(now) {
			return errs.ErrHoldExpired
		}

		code, err = s.store.GetDiscountCodeForUpdate(ctx, dh.DiscountCodeID)
		if err != nil {
			return err
		}
		if !code.Unlimited() && code.ConfirmedUses >= *code.MaxUses {
			return errs.ErrMaxUsesReached
		}

		if err := s.store.AddConfirmedUses(ctx, code.ID, 1, now); err != nil {
			return err
		}
		ok, err := s.store.TransitionDiscountHold(ctx, dh.ID, models.HoldStatusPending, models.HoldStatusCompleted, now)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrHoldExpired
		}
		code.ConfirmedUses++
		return nil
	})
	if err != nil {
		return nil, err
	}

	return code, nil
}

func (s *discountService) Cancel(ctx context.Context, discountHoldID, holderID string) error {
	if err := validateIDs(discountHoldID, holderID); err != nil {
		return err
	}

	now := s.clk.Now()
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		dh, err := s.store.GetDiscountHoldForUpdate(ctx, discountHoldID)
		if err != nil {
			return err
		}
		if dh.HolderID != holderID {
			return errs.ErrHoldForbidden
		}
		if dh.Status.IsTerminal() {
			return nil
		}
		_, err = s.store.TransitionDiscountHold(ctx, dh.ID, models.HoldStatusPending, models.HoldStatusCancelled, now)
		return err
	})
}

func (s *discountService) Reverse(ctx context.Context, discountHoldID string) error {
	if err := validateIDs(discountHoldID); err != nil {
		return err
	}

	now := s.clk.Now()
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		dh, err := s.store.GetDiscountHoldForUpdate(ctx, discountHoldID)
		if err != nil {
			return err
		}
		if dh.Status != models.HoldStatusCompleted {
			return nil
		}

		if _, err := s.store.GetDiscountCodeForUpdate(ctx, dh.DiscountCodeID); err != nil {
			return err
		}
		if err := s.store.AddConfirmedUses(ctx, dh.DiscountCodeID, -1, now); err != nil {
			return err
		}
		_, err = s.store.TransitionDiscountHold(ctx, dh.ID, models.HoldStatusCompleted, models.HoldStatusCancelled, now)
		return err
	})
}

func (s *discountService) GetActiveHold(ctx context.Context, codeID, holderID string) (*models.DiscountHold, error) {
	if err := validateIDs(codeID, holderID); err != nil {
		return nil, err
	}

	dh, err := s.store.FindActiveDiscountHold(ctx, codeID, holderID, s.clk.Now())
	if err != nil {
		s.l.Errorf(ctx, "service.discountService.GetActiveHold: %v", err)
		return nil, err
	}
	if dh == nil {
		return nil, errs.ErrHoldNotFound
	}
	return dh, nil
}
