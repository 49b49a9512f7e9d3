package memory

import (
	"context"
	"fmt"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

type tierRow = models.Tier

func (s *Store) CreateTier(ctx context.Context, t *models.Tier) error {
	defer s.lock(ctx)()
	s.st.tiers[t.ID] = *t
	return nil
}

func (s *Store) GetTier(ctx context.Context, id string) (*models.Tier, error) {
	defer s.lock(ctx)()
	t, ok := s.st.tiers[id]
	if !ok {
		return nil, errs.ErrTierNotFound
	}
	return &t, nil
}

func (s *Store) GetTierForUpdate(ctx context.Context, id string) (*models.Tier, error) {
	return s.GetTier(ctx, id)
}

func (s *Store) AddConfirmedSold(ctx context.Context, id string, delta int, now time.Time) error {
	defer s.lock(ctx)()
	t, ok := s.st.tiers[id]
	if !ok {
		return errs.ErrTierNotFound
	}
	sold := t.ConfirmedSold + delta
	if sold < 0 || sold > t.Capacity {
		return fmt.Errorf("memory: confirmed_sold %d out of range [0,%d]", sold, t.Capacity)
	}
	t.ConfirmedSold = sold
	t.UpdatedAt = now
	s.st.tiers[id] = t
	return nil
}
