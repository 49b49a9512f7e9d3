package postgres

import (
	"context"
	"fmt"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

const tierColumns = `id, event_id, name, capacity, confirmed_sold, price, created_at, updated_at`

func scanTier(row rowScanner) (*models.Tier, error) {
	var t models.Tier
	if err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.Capacity, &t.ConfirmedSold, &t.Price, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateTier(ctx context.Context, t *models.Tier) error {
	const stmt = `
INSERT INTO tiers (id, event_id, name, capacity, confirmed_sold, price, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.exec(ctx, stmt, t.ID, t.EventID, t.Name, t.Capacity, t.ConfirmedSold, t.Price, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		s.l.Errorf(ctx, "postgres.Store.CreateTier: %v", err)
		return fmt.Errorf("create tier: %w", err)
	}
	return nil
}

func (s *Store) GetTier(ctx context.Context, id string) (*models.Tier, error) {
	return s.getTier(ctx, `SELECT `+tierColumns+` FROM tiers WHERE id = $1`, id)
}

func (s *Store) GetTierForUpdate(ctx context.Context, id string) (*models.Tier, error) {
	return s.getTier(ctx, `SELECT `+tierColumns+` FROM tiers WHERE id = $1 FOR UPDATE`, id)
}

func (s *Store) getTier(ctx context.Context, query, id string) (*models.Tier, error) {
	t, err := scanTier(s.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		if isNoRows(err) {
			return nil, errs.ErrTierNotFound
		}
		return nil, fmt.Errorf("get tier: %w", err)
	}
	return t, nil
}

// AddConfirmedSold shifts confirmed_sold by delta. The table CHECK keeps the
// counter within [0, capacity].
func (s *Store) AddConfirmedSold(ctx context.Context, id string, delta int, now time.Time) error {
	const stmt = `UPDATE tiers SET confirmed_sold = confirmed_sold + $2, updated_at = $3 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, id, delta, now)
	if err != nil {
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		if isCheckViolation(err) {
			return fmt.Errorf("add confirmed sold %d to tier %s: %w", delta, id, errs.ErrInsufficientInventory)
		}
		return fmt.Errorf("add confirmed sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrTierNotFound
	}
	return nil
}
