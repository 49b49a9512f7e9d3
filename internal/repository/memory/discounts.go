package memory

import (
	"context"
	"sort"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

type (
	codeRow         = models.DiscountCode
	discountHoldRow = models.DiscountHold
)

func (s *Store) CreateDiscountCode(ctx context.Context, c *models.DiscountCode) error {
	defer s.lock(ctx)()
	for _, existing := range s.st.codes {
		if existing.EventID == c.EventID && existing.Code == c.Code {
			return errDuplicateCode
		}
	}
	s.st.codes[c.ID] = *c
	return nil
}

func (s *Store) GetDiscountCode(ctx context.Context, id string) (*models.DiscountCode, error) {
	defer s.lock(ctx)()
	c, ok := s.st.codes[id]
	if !ok {
		return nil, errs.ErrCodeNotFound
	}
	return &c, nil
}

func (s *Store) GetDiscountCodeByCode(ctx context.Context, eventID, code string) (*models.DiscountCode, error) {
	defer s.lock(ctx)()
	for _, c := range s.st.codes {
		if c.EventID == eventID && c.Code == code {
			return &c, nil
		}
	}
	return nil, errs.ErrCodeNotFound
}

func (s *Store) GetDiscountCodeForUpdate(ctx context.Context, id string) (*models.DiscountCode, error) {
	return s.GetDiscountCode(ctx, id)
}

func (s *Store) AddConfirmedUses(ctx context.Context, id string, delta int, now time.Time) error {
	defer s.lock(ctx)()
	c, ok := s.st.codes[id]
	if !ok {
		return errs.ErrCodeNotFound
	}
	if c.ConfirmedUses+delta < 0 {
		return errNegativeUses
	}
	c.ConfirmedUses += delta
	c.UpdatedAt = now
	s.st.codes[id] = c
	return nil
}

func (s *Store) CreateDiscountHold(ctx context.Context, h *models.DiscountHold) error {
	defer s.lock(ctx)()
	if _, ok := s.st.codes[h.DiscountCodeID]; !ok {
		return errs.ErrCodeNotFound
	}
	if h.Status == models.HoldStatusPending {
		for _, existing := range s.st.discountHolds {
			if existing.Status == models.HoldStatusPending &&
				existing.DiscountCodeID == h.DiscountCodeID &&
				existing.HolderID == h.HolderID {
				return errDuplicatePendingHold
			}
		}
	}
	s.st.discountHolds[h.ID] = *h
	return nil
}

func (s *Store) GetDiscountHold(ctx context.Context, id string) (*models.DiscountHold, error) {
	defer s.lock(ctx)()
	h, ok := s.st.discountHolds[id]
	if !ok {
		return nil, errs.ErrHoldNotFound
	}
	return &h, nil
}

func (s *Store) GetDiscountHoldForUpdate(ctx context.Context, id string) (*models.DiscountHold, error) {
	return s.GetDiscountHold(ctx, id)
}

func (s *Store) FindPendingDiscountHoldByTicketHold(ctx context.Context, ticketHoldID string) (*models.DiscountHold, error) {
	defer s.lock(ctx)()
	for _, h := range s.st.discountHolds {
		if h.Status == models.HoldStatusPending && h.IsLinked() && *h.TicketHoldID == ticketHoldID {
			return &h, nil
		}
	}
	return nil, nil
}

func (s *Store) FindActiveDiscountHold(ctx context.Context, codeID, holderID string, now time.Time) (*models.DiscountHold, error) {
	defer s.lock(ctx)()
	for _, h := range s.st.discountHolds {
		if h.DiscountCodeID == codeID && h.HolderID == holderID && h.IsActive(now) {
			return &h, nil
		}
	}
	return nil, nil
}

func (s *Store) ListPendingDiscountHoldsForHolder(ctx context.Context, codeID, holderID string) ([]*models.DiscountHold, error) {
	defer s.lock(ctx)()
	var out []*models.DiscountHold
	for _, h := range s.st.discountHolds {
		if h.DiscountCodeID == codeID && h.HolderID == holderID && h.Status == models.HoldStatusPending {
			out = append(out, &h)
		}
	}
	return out, nil
}

func (s *Store) CountActiveDiscountHolds(ctx context.Context, codeID string, now time.Time) (int, error) {
	defer s.lock(ctx)()
	n := 0
	for _, h := range s.st.discountHolds {
		if h.DiscountCodeID == codeID && h.IsActive(now) {
			n++
		}
	}
	return n, nil
}

func (s *Store) TransitionDiscountHold(ctx context.Context, id string, from, to models.HoldStatus, now time.Time) (bool, error) {
	defer s.lock(ctx)()
	if err := s.failure("TransitionDiscountHold", id); err != nil {
		return false, err
	}
	h, ok := s.st.discountHolds[id]
	if !ok {
		return false, errs.ErrHoldNotFound
	}
	if h.Status != from {
		return false, nil
	}
	h.Status = to
	h.UpdatedAt = now
	s.st.discountHolds[id] = h
	return true, nil
}

func (s *Store) LinkDiscountHold(ctx context.Context, id, ticketHoldID string, expiresAt, now time.Time) error {
	defer s.lock(ctx)()
	h, ok := s.st.discountHolds[id]
	if !ok {
		return errs.ErrHoldNotFound
	}
	if h.IsLinked() {
		return errs.ErrAlreadyLinked
	}
	link := ticketHoldID
	h.TicketHoldID = &link
	h.ExpiresAt = expiresAt
	h.UpdatedAt = now
	s.st.discountHolds[id] = h
	return nil
}

func (s *Store) ListExpiredDiscountHolds(ctx context.Context, now time.Time, limit int) ([]*models.DiscountHold, error) {
	defer s.lock(ctx)()
	var out []*models.DiscountHold
	for _, h := range s.st.discountHolds {
		if h.Status == models.HoldStatusPending && !h.ExpiresAt.After(now) {
			out = append(out, &h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
