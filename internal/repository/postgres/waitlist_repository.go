package postgres

import (
	"context"
	"fmt"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

const waitlistColumns = `id, tier_id, event_id, holder_id, quantity, status, created_at, notified_at, expires_at, ticket_hold_id, updated_at`

func scanWaitlistEntry(row rowScanner) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	err := row.Scan(&e.ID, &e.TierID, &e.EventID, &e.HolderID, &e.Quantity, &e.Status, &e.CreatedAt,
		&e.NotifiedAt, &e.ExpiresAt, &e.TicketHoldID, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error {
	const stmt = `
INSERT INTO waitlist_entries (id, tier_id, event_id, holder_id, quantity, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.exec(ctx, stmt, e.ID, e.TierID, e.EventID, e.HolderID, e.Quantity, e.Status, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return errs.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return errs.ErrTierNotFound
		}
		s.l.Errorf(ctx, "postgres.Store.CreateWaitlistEntry: %v", err)
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

func (s *Store) findWaitlistEntry(ctx context.Context, query string, args ...any) (*models.WaitlistEntry, error) {
	e, err := scanWaitlistEntry(s.queryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		return nil, fmt.Errorf("find waitlist entry: %w", err)
	}
	return e, nil
}

func (s *Store) FindOpenWaitlistEntry(ctx context.Context, tierID, holderID string) (*models.WaitlistEntry, error) {
	const query = `
SELECT ` + waitlistColumns + `
FROM waitlist_entries
WHERE tier_id = $1 AND holder_id = $2 AND status IN ('WAITING', 'NOTIFIED')
ORDER BY seq
LIMIT 1`
	return s.findWaitlistEntry(ctx, query, tierID, holderID)
}

func (s *Store) ListWaitingEntries(ctx context.Context, tierID string) ([]*models.WaitlistEntry, error) {
	const query = `
SELECT ` + waitlistColumns + `
FROM waitlist_entries
WHERE tier_id = $1 AND status = 'WAITING'
ORDER BY created_at, seq`
	return s.listWaitlistEntries(ctx, query, tierID)
}

func (s *Store) MarkWaitlistNotified(ctx context.Context, id, ticketHoldID string, notifiedAt, expiresAt time.Time) (bool, error) {
	const stmt = `
UPDATE waitlist_entries
SET status = 'NOTIFIED', ticket_hold_id = $2, notified_at = $3, expires_at = $4, updated_at = $3
WHERE id = $1 AND status = 'WAITING'`

	tag, err := s.exec(ctx, stmt, id, ticketHoldID, notifiedAt, expiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return false, errs.ErrInvalidID
		}
		return false, fmt.Errorf("mark waitlist notified: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) TransitionWaitlistEntry(ctx context.Context, id string, from, to models.WaitlistStatus, now time.Time) (bool, error) {
	const stmt = `UPDATE waitlist_entries SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	tag, err := s.exec(ctx, stmt, id, from, to, now)
	if err != nil {
		if isInvalidUUID(err) {
			return false, errs.ErrInvalidID
		}
		return false, fmt.Errorf("transition waitlist entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) FindWaitlistEntryByTicketHold(ctx context.Context, ticketHoldID string) (*models.WaitlistEntry, error) {
	const query = `
SELECT ` + waitlistColumns + `
FROM waitlist_entries
WHERE ticket_hold_id = $1
LIMIT 1`
	return s.findWaitlistEntry(ctx, query, ticketHoldID)
}

func (s *Store) ListExpiredNotifiedEntries(ctx context.Context, now time.Time, limit int) ([]*models.WaitlistEntry, error) {
	const query = `
SELECT ` + waitlistColumns + `
FROM waitlist_entries
WHERE status = 'NOTIFIED' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2`
	return s.listWaitlistEntries(ctx, query, now, limitArg(limit))
}

func (s *Store) listWaitlistEntries(ctx context.Context, query string, args ...any) ([]*models.WaitlistEntry, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	defer rows.Close()

	var out []*models.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, errs.ErrInvalidID
		}
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	return out, nil
}
