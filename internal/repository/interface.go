package repository

import (
	"context"
	"time"

	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

// TxManager runs fn inside a single atomic unit. Repositories called with
// the ctx passed to fn take part in the same transaction; nested calls reuse
// the outer one.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TierRepository is the inventory ledger.
type TierRepository interface {
	CreateTier(ctx context.Context, t *models.Tier) error
	GetTier(ctx context.Context, id string) (*models.Tier, error)
	// GetTierForUpdate locks the tier row until the surrounding transaction ends.
	GetTierForUpdate(ctx context.Context, id string) (*models.Tier, error)
	AddConfirmedSold(ctx context.Context, id string, delta int, now time.Time) error
}

type TicketHoldRepository interface {
	CreateTicketHold(ctx context.Context, h *models.TicketHold) error
	GetTicketHold(ctx context.Context, id string) (*models.TicketHold, error)
	GetTicketHoldForUpdate(ctx context.Context, id string) (*models.TicketHold, error)
	// SumActiveTicketHolds sums PENDING holds with expires_at > now.
	SumActiveTicketHolds(ctx context.Context, tierID string, now time.Time) (int, error)
	// TransitionTicketHold moves the hold from one status to another and
	// reports false if it was not in the from status.
	TransitionTicketHold(ctx context.Context, id string, from, to models.HoldStatus, now time.Time) (bool, error)
	ListExpiredTicketHolds(ctx context.Context, now time.Time, limit int) ([]*models.TicketHold, error)
}

type DiscountRepository interface {
	CreateDiscountCode(ctx context.Context, c *models.DiscountCode) error
	GetDiscountCode(ctx context.Context, id string) (*models.DiscountCode, error)
	// GetDiscountCodeByCode finds the code a buyer typed for an event.
	GetDiscountCodeByCode(ctx context.Context, eventID, code string) (*models.DiscountCode, error)
	GetDiscountCodeForUpdate(ctx context.Context, id string) (*models.DiscountCode, error)
	AddConfirmedUses(ctx context.Context, id string, delta int, now time.Time) error

	CreateDiscountHold(ctx context.Context, h *models.DiscountHold) error
	GetDiscountHold(ctx context.Context, id string) (*models.DiscountHold, error)
	GetDiscountHoldForUpdate(ctx context.Context, id string) (*models.DiscountHold, error)
	// FindPendingDiscountHoldByTicketHold returns nil when no PENDING hold is linked.
	FindPendingDiscountHoldByTicketHold(ctx context.Context, ticketHoldID string) (*models.DiscountHold, error)
	// FindActiveDiscountHold returns nil when the holder has no active hold on the code.
	FindActiveDiscountHold(ctx context.Context, codeID, holderID string, now time.Time) (*models.DiscountHold, error)
	ListPendingDiscountHoldsForHolder(ctx context.Context, codeID, holderID string) ([]*models.DiscountHold, error)
	CountActiveDiscountHolds(ctx context.Context, codeID string, now time.Time) (int, error)
	TransitionDiscountHold(ctx context.Context, id string, from, to models.HoldStatus, now time.Time) (bool, error)
	// LinkDiscountHold sets ticket_hold_id once and rewrites expires_at.
	LinkDiscountHold(ctx context.Context, id, ticketHoldID string, expiresAt, now time.Time) error
	ListExpiredDiscountHolds(ctx context.Context, now time.Time, limit int) ([]*models.DiscountHold, error)
}

type WaitlistRepository interface {
	CreateWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error
	// FindOpenWaitlistEntry returns nil when the holder has no WAITING or NOTIFIED entry.
	FindOpenWaitlistEntry(ctx context.Context, tierID, holderID string) (*models.WaitlistEntry, error)
	// ListWaitingEntries returns WAITING entries oldest first.
	ListWaitingEntries(ctx context.Context, tierID string) ([]*models.WaitlistEntry, error)
	MarkWaitlistNotified(ctx context.Context, id, ticketHoldID string, notifiedAt, expiresAt time.Time) (bool, error)
	TransitionWaitlistEntry(ctx context.Context, id string, from, to models.WaitlistStatus, now time.Time) (bool, error)
	// FindWaitlistEntryByTicketHold returns nil when no entry links the hold.
	FindWaitlistEntryByTicketHold(ctx context.Context, ticketHoldID string) (*models.WaitlistEntry, error)
	ListExpiredNotifiedEntries(ctx context.Context, now time.Time, limit int) ([]*models.WaitlistEntry, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderForUpdate(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, now time.Time) error
}

// Store is the full persistence surface used by the services.
type Store interface {
	TxManager
	TierRepository
	TicketHoldRepository
	DiscountRepository
	WaitlistRepository
	OrderRepository
}
