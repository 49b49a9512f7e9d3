package postgres

import (
	"context"
	"fmt"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

const ticketHoldColumns = `id, tier_id, holder_id, quantity, status, created_at, expires_at, updated_at`

func scanTicketHold(row rowScanner) (*models.TicketHold, error) {
	var h models.TicketHold
	if err := row.Scan(&h.ID, &h.TierID, &h.HolderID, &h.Quantity, &h.Status, &h.CreatedAt, &h.ExpiresAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) CreateTicketHold(ctx context.Context, h *models.TicketHold) error {
	const stmt = `
INSERT INTO ticket_holds (id, tier_id, holder_id, quantity, status, created_at, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.exec(ctx, stmt, h.ID, h.TierID, h.HolderID, h.Quantity, h.Status, h.CreatedAt, h.ExpiresAt, h.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return errs.ErrTierNotFound
		}
		s.l.Errorf(ctx, "postgres.Store.CreateTicketHold: %v", err)
		return fmt.Errorf("create ticket hold: %w", err)
	}
	return nil
}

func (s *Store) GetTicketHold(ctx context.Context, id string) (*models.TicketHold, error) {
	return s.getTicketHold(ctx, `SELECT `+ticketHoldColumns+` FROM ticket_holds WHERE id = $1`, id)
}

func (s *Store) GetTicketHoldForUpdate(ctx context.Context, id string) (*models.TicketHold, error) {
	return s.getTicketHold(ctx, `SELECT `+ticketHoldColumns+` FROM ticket_holds WHERE id = $1 FOR UPDATE`, id)
}

func (s *Store) getTicketHold(ctx context.Context, query, id string) (*models.TicketHold, error) {
	h, err := scanTicketHold(s.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		if isNoRows(err) {
			return nil, errs.ErrHoldNotFound
		}
		return nil, fmt.Errorf("get ticket hold: %w", err)
	}
	return h, nil
}

func (s *Store) SumActiveTicketHolds(ctx context.Context, tierID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM ticket_holds
WHERE tier_id = $1 AND status = 'PENDING' AND expires_at > $2`

	var total int
	if err := s.queryRow(ctx, query, tierID, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, errs.ErrInvalidID
		}
		return 0, fmt.Errorf("sum active ticket holds: %w", err)
	}
	return total, nil
}

func (s *Store) TransitionTicketHold(ctx context.Context, id string, from, to models.HoldStatus, now time.Time) (bool, error) {
	const stmt = `UPDATE ticket_holds SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	tag, err := s.exec(ctx, stmt, id, from, to, now)
	if err != nil {
		if isInvalidUUID(err) {
			return false, errs.ErrInvalidID
		}
		return false, fmt.Errorf("transition ticket hold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListExpiredTicketHolds(ctx context.Context, now time.Time, limit int) ([]*models.TicketHold, error) {
	const query = `
SELECT ` + ticketHoldColumns + `
FROM ticket_holds
WHERE status = 'PENDING' AND expires_at <= $1
ORDER BY expires_at, id
LIMIT $2`

	rows, err := s.query(ctx, query, now, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list expired ticket holds: %w", err)
	}
	defer rows.Close()

	var out []*models.TicketHold
	for rows.Next() {
		h, err := scanTicketHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket hold: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired ticket holds: %w", err)
	}
	return out, nil
}
