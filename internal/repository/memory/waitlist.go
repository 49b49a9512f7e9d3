package memory

import (
	"context"
	"sort"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-reservation/internal/errors"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

// waitlistRow keeps an insertion sequence so entries created at the same
// instant still come back in arrival order.
type waitlistRow struct {
	entry models.WaitlistEntry
	seq   int64
}

func (s *Store) CreateWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error {
	defer s.lock(ctx)()
	if _, ok := s.st.tiers[e.TierID]; !ok {
		return errs.ErrTierNotFound
	}
	s.st.waitlist[e.ID] = waitlistRow{entry: *e, seq: s.nextSeq()}
	return nil
}

func (s *Store) FindOpenWaitlistEntry(ctx context.Context, tierID, holderID string) (*models.WaitlistEntry, error) {
	defer s.lock(ctx)()
	for _, row := range s.st.waitlist {
		e := row.entry
		if e.TierID == tierID && e.HolderID == holderID && e.IsOpen() {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) ListWaitingEntries(ctx context.Context, tierID string) ([]*models.WaitlistEntry, error) {
	defer s.lock(ctx)()
	var rows []waitlistRow
	for _, row := range s.st.waitlist {
		if row.entry.TierID == tierID && row.entry.Status == models.WaitlistStatusWaiting {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].entry.CreatedAt.Equal(rows[j].entry.CreatedAt) {
			return rows[i].entry.CreatedAt.Before(rows[j].entry.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]*models.WaitlistEntry, 0, len(rows))
	for _, row := range rows {
		e := row.entry
		out = append(out, &e)
	}
	return out, nil
}

func (s *Store) MarkWaitlistNotified(ctx context.Context, id, ticketHoldID string, notifiedAt, expiresAt time.Time) (bool, error) {
	defer s.lock(ctx)()
	row, ok := s.st.waitlist[id]
	if !ok {
		return false, nil
	}
	if row.entry.Status != models.WaitlistStatusWaiting {
		return false, nil
	}
	link := ticketHoldID
	row.entry.Status = models.WaitlistStatusNotified
	row.entry.NotifiedAt = &notifiedAt
	row.entry.ExpiresAt = &expiresAt
	row.entry.TicketHoldID = &link
	row.entry.UpdatedAt = notifiedAt
	s.st.waitlist[id] = row
	return true, nil
}

func (s *Store) TransitionWaitlistEntry(ctx context.Context, id string, from, to models.WaitlistStatus, now time.Time) (bool, error) {
	defer s.lock(ctx)()
	if err := s.failure("TransitionWaitlistEntry", id); err != nil {
		return false, err
	}
	row, ok := s.st.waitlist[id]
	if !ok || row.entry.Status != from {
		return false, nil
	}
	row.entry.Status = to
	row.entry.UpdatedAt = now
	s.st.waitlist[id] = row
	return true, nil
}

func (s *Store) FindWaitlistEntryByTicketHold(ctx context.Context, ticketHoldID string) (*models.WaitlistEntry, error) {
	defer s.lock(ctx)()
	for _, row := range s.st.waitlist {
		e := row.entry
		if e.TicketHoldID != nil && *e.TicketHoldID == ticketHoldID {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) ListExpiredNotifiedEntries(ctx context.Context, now time.Time, limit int) ([]*models.WaitlistEntry, error) {
	defer s.lock(ctx)()
	var out []*models.WaitlistEntry
	for _, row := range s.st.waitlist {
		e := row.entry
		if e.Status == models.WaitlistStatusNotified && e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Waitlist returns a copy of every entry for a tier in FIFO order,
// regardless of status.
func (s *Store) Waitlist(tierID string) []models.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []waitlistRow
	for _, row := range s.st.waitlist {
		if row.entry.TierID == tierID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]models.WaitlistEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry)
	}
	return out
}
