package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

var errDuplicatePendingHold = errors.New("postgres: holder already has a pending hold on this code")

const (
	discountCodeColumns = `id, event_id, code, kind, value, max_uses, confirmed_uses, starts_at, ends_at, created_at, updated_at`
	discountHoldColumns = `id, discount_code_id, holder_id, status, ticket_hold_id, created_at, expires_at, updated_at`
)

func scanDiscountCode(row rowScanner) (*models.DiscountCode, error) {
	var c models.DiscountCode
	err := row.Scan(&c.ID, &c.EventID, &c.Code, &c.Kind, &c.Value, &c.MaxUses, &c.ConfirmedUses,
		&c.StartsAt, &c.EndsAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanDiscountHold(row rowScanner) (*models.DiscountHold, error) {
	var h models.DiscountHold
	err := row.Scan(&h.ID, &h.DiscountCodeID, &h.HolderID, &h.Status, &h.TicketHoldID, &h.CreatedAt, &h.ExpiresAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) CreateDiscountCode(ctx context.Context, c *models.DiscountCode) error {
	const stmt = `
INSERT INTO discount_codes (id, event_id, code, kind, value, max_uses, confirmed_uses, starts_at, ends_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.exec(ctx, stmt, c.ID, c.EventID, c.Code, c.Kind, c.Value, c.MaxUses, c.ConfirmedUses,
		c.StartsAt, c.EndsAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrCodeExists
		}
		if isCheckViolation(err) {
			return errs.ErrInvalidWindow
		}
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		s.l.Errorf(ctx, "postgres.Store.CreateDiscountCode: %v", err)
		return fmt.Errorf("create discount code: %w", err)
	}
	return nil
}

func (s *Store) GetDiscountCode(ctx context.Context, id string) (*models.DiscountCode, error) {
	return s.getDiscountCode(ctx, `SELECT `+discountCodeColumns+` FROM discount_codes WHERE id = $1`, id)
}

func (s *Store) GetDiscountCodeForUpdate(ctx context.Context, id string) (*models.DiscountCode, error) {
	return s.getDiscountCode(ctx, `SELECT `+discountCodeColumns+` FROM discount_codes WHERE id = $1 FOR UPDATE`, id)
}

// GetDiscountCodeByCode looks the code up on the (event_id, code) unique key.
func (s *Store) GetDiscountCodeByCode(ctx context.Context, eventID, code string) (*models.DiscountCode, error) {
	return s.getDiscountCode(ctx, `SELECT `+discountCodeColumns+` FROM discount_codes WHERE event_id = $1 AND code = $2`, eventID, code)
}

func (s *Store) getDiscountCode(ctx context.Context, query string, args ...any) (*models.DiscountCode, error) {
	c, err := scanDiscountCode(s.queryRow(ctx, query, args...))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		if isNoRows(err) {
			return nil, errs.ErrCodeNotFound
		}
		return nil, fmt.Errorf("get discount code: %w", err)
	}
	return c, nil
}

func (s *Store) AddConfirmedUses(ctx context.Context, id string, delta int, now time.Time) error {
	const stmt = `UPDATE discount_codes SET confirmed_uses = confirmed_uses + $2, updated_at = $3 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, id, delta, now)
	if err != nil {
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		return fmt.Errorf("add confirmed uses: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrCodeNotFound
	}
	return nil
}

func (s *Store) CreateDiscountHold(ctx context.Context, h *models.DiscountHold) error {
	const stmt = `
INSERT INTO discount_holds (id, discount_code_id, holder_id, status, ticket_hold_id, created_at, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.exec(ctx, stmt, h.ID, h.DiscountCodeID, h.HolderID, h.Status, h.TicketHoldID, h.CreatedAt, h.ExpiresAt, h.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errDuplicatePendingHold
		}
		if isForeignKeyViolation(err) {
			return errs.ErrCodeNotFound
		}
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		s.l.Errorf(ctx, "postgres.Store.CreateDiscountHold: %v", err)
		return fmt.Errorf("create discount hold: %w", err)
	}
	return nil
}

func (s *Store) GetDiscountHold(ctx context.Context, id string) (*models.DiscountHold, error) {
	return s.getDiscountHold(ctx, `SELECT `+discountHoldColumns+` FROM discount_holds WHERE id = $1`, id)
}

func (s *Store) GetDiscountHoldForUpdate(ctx context.Context, id string) (*models.DiscountHold, error) {
	return s.getDiscountHold(ctx, `SELECT `+discountHoldColumns+` FROM discount_holds WHERE id = $1 FOR UPDATE`, id)
}

func (s *Store) getDiscountHold(ctx context.Context, query string, args ...any) (*models.DiscountHold, error) {
	h, err := scanDiscountHold(s.queryRow(ctx, query, args...))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		if isNoRows(err) {
			return nil, errs.ErrHoldNotFound
		}
		return nil, fmt.Errorf("get discount hold: %w", err)
	}
	return h, nil
}

// findDiscountHold is getDiscountHold with "no row" reported as nil, nil.
func (s *Store) findDiscountHold(ctx context.Context, query string, args ...any) (*models.DiscountHold, error) {
	h, err := s.getDiscountHold(ctx, query, args...)
	if errors.Is(err, errs.ErrHoldNotFound) {
		return nil, nil
	}
	return h, err
}

func (s *Store) FindPendingDiscountHoldByTicketHold(ctx context.Context, ticketHoldID string) (*models.DiscountHold, error) {
	const query = `
SELECT ` + discountHoldColumns + `
FROM discount_holds
WHERE ticket_hold_id = $1 AND status = 'PENDING'
LIMIT 1
FOR UPDATE`
	return s.findDiscountHold(ctx, query, ticketHoldID)
}

func (s *Store) FindActiveDiscountHold(ctx context.Context, codeID, holderID string, now time.Time) (*models.DiscountHold, error) {
	const query = `
SELECT ` + discountHoldColumns + `
FROM discount_holds
WHERE discount_code_id = $1 AND holder_id = $2 AND status = 'PENDING' AND expires_at > $3
LIMIT 1`
	return s.findDiscountHold(ctx, query, codeID, holderID, now)
}

func (s *Store) ListPendingDiscountHoldsForHolder(ctx context.Context, codeID, holderID string) ([]*models.DiscountHold, error) {
	const query = `
SELECT ` + discountHoldColumns + `
FROM discount_holds
WHERE discount_code_id = $1 AND holder_id = $2 AND status = 'PENDING'
ORDER BY created_at`
	return s.listDiscountHolds(ctx, query, codeID, holderID)
}

func (s *Store) CountActiveDiscountHolds(ctx context.Context, codeID string, now time.Time) (int, error) {
	const query = `
SELECT COUNT(*)
FROM discount_holds
WHERE discount_code_id = $1 AND status = 'PENDING' AND expires_at > $2`

	var n int
	if err := s.queryRow(ctx, query, codeID, now).Scan(&n); err != nil {
		if isInvalidUUID(err) {
			return 0, errs.ErrInvalidID
		}
		return 0, fmt.Errorf("count active discount holds: %w", err)
	}
	return n, nil
}

func (s *Store) TransitionDiscountHold(ctx context.Context, id string, from, to models.HoldStatus, now time.Time) (bool, error) {
	const stmt = `UPDATE discount_holds SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	tag, err := s.exec(ctx, stmt, id, from, to, now)
	if err != nil {
		if isInvalidUUID(err) {
			return false, errs.ErrInvalidID
		}
		return false, fmt.Errorf("transition discount hold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) LinkDiscountHold(ctx context.Context, id, ticketHoldID string, expiresAt, now time.Time) error {
	const stmt = `
UPDATE discount_holds
SET ticket_hold_id = $2, expires_at = $3, updated_at = $4
WHERE id = $1 AND ticket_hold_id IS NULL`

	tag, err := s.exec(ctx, stmt, id, ticketHoldID, expiresAt, now)
	if err != nil {
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return errs.ErrHoldNotFound
		}
		return fmt.Errorf("link discount hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrAlreadyLinked
	}
	return nil
}

func (s *Store) ListExpiredDiscountHolds(ctx context.Context, now time.Time, limit int) ([]*models.DiscountHold, error) {
	const query = `
SELECT ` + discountHoldColumns + `
FROM discount_holds
WHERE status = 'PENDING' AND expires_at <= $1
ORDER BY expires_at, id
LIMIT $2`
	return s.listDiscountHolds(ctx, query, now, limitArg(limit))
}

func (s *Store) listDiscountHolds(ctx context.Context, query string, args ...any) ([]*models.DiscountHold, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		return nil, fmt.Errorf("list discount holds: %w", err)
	}
	defer rows.Close()

	var out []*models.DiscountHold
	for rows.Next() {
		h, err := scanDiscountHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount hold: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		return nil, fmt.Errorf("list discount holds: %w", err)
	}
	return out, nil
}
