package memory

import (
	"context"
	"sort"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

type ticketHoldRow = models.TicketHold

func (s *Store) CreateTicketHold(ctx context.Context, h *models.TicketHold) error {
	defer s.lock(ctx)()
	if _, ok := s.st.tiers[h.TierID]; !ok {
		return errs.ErrTierNotFound
	}
	s.st.ticketHolds[h.ID] = *h
	return nil
}

func (s *Store) GetTicketHold(ctx context.Context, id string) (*models.TicketHold, error) {
	defer s.lock(ctx)()
	h, ok := s.st.ticketHolds[id]
	if !ok {
		return nil, errs.ErrHoldNotFound
	}
	return &h, nil
}

func (s *Store) GetTicketHoldForUpdate(ctx context.Context, id string) (*models.TicketHold, error) {
	return s.GetTicketHold(ctx, id)
}

func (s *Store) SumActiveTicketHolds(ctx context.Context, tierID string, now time.Time) (int, error) {
	defer s.lock(ctx)()
	total := 0
	for _, h := range s.st.ticketHolds {
		if h.TierID == tierID && h.IsActive(now) {
			total += h.Quantity
		}
	}
	return total, nil
}

func (s *Store) TransitionTicketHold(ctx context.Context, id string, from, to models.HoldStatus, now time.Time) (bool, error) {
	defer s.lock(ctx)()
	if err := s.failure("TransitionTicketHold", id); err != nil {
		return false, err
	}
	h, ok := s.st.ticketHolds[id]
	if !ok {
		return false, errs.ErrHoldNotFound
	}
	if h.Status != from {
		return false, nil
	}
	h.Status = to
	h.UpdatedAt = now
	s.st.ticketHolds[id] = h
	return true, nil
}

func (s *Store) ListExpiredTicketHolds(ctx context.Context, now time.Time, limit int) ([]*models.TicketHold, error) {
	defer s.lock(ctx)()
	var out []*models.TicketHold
	for _, h := range s.st.ticketHolds {
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
