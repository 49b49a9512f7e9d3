package service

import (
	"time"

	"github.com/vogiaan1904/ticketbottle-reservation/internal/models"
)

type CreateTierInput struct {
	EventID  string `json:"event_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"gte=0"`
	Price    int64  `json:"price" validate:"gte=0"`
}

type CreateTicketHoldInput struct {
	TierID   string `json:"tier_id" validate:"required"`
	HolderID string `json:"-"`
	Quantity int    `json:"quantity" validate:"required"`
}

type CreateDiscountCodeInput struct {
	EventID  string              `json:"event_id" validate:"required"`
	Code     string              `json:"code" validate:"required"`
	Kind     models.DiscountKind `json:"kind" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	Value    int64               `json:"value" validate:"gte=0"`
	MaxUses  *int                `json:"max_uses,omitempty" validate:"omitempty,gte=0"`
	StartsAt *time.Time          `json:"starts_at,omitempty"`
	EndsAt   *time.Time          `json:"ends_at,omitempty"`
}

type ValidateDiscountCodeInput struct {
	EventID  string `json:"event_id" validate:"required"`
	Code     string `json:"code" validate:"required"`
	HolderID string `json:"-"`
}

// DiscountCodeValidation is what a buyer sees after typing a code. CodeID
// feeds CreateDiscountHold.
type DiscountCodeValidation struct {
	CodeID  string              `json:"code_id"`
	EventID string              `json:"event_id"`
	Code    string              `json:"code"`
	Kind    models.DiscountKind `json:"kind"`
	Value   int64               `json:"value"`
	// Remaining is nil for unlimited codes.
	Remaining *int `json:"remaining,omitempty"`
}

type JoinWaitlistInput struct {
	TierID   string `json:"tier_id" validate:"required"`
	HolderID string `json:"-"`
	Quantity int    `json:"quantity" validate:"required"`
}

type AvailabilityOutput struct {
	TierID        string    `json:"tier_id"`
	EventID       string    `json:"event_id"`
	Capacity      int       `json:"capacity"`
	ConfirmedSold int       `json:"confirmed_sold"`
	Reserved      int       `json:"reserved"`
	Available     int       `json:"available"`
	At            time.Time `json:"at"`
}

type SweeperStatus struct {
	IsRunning    bool      `json:"is_running"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	LastSwept    time.Time `json:"last_swept,omitempty"`
	TotalExpired int64     `json:"total_expired"`
	ErrorCount   int64     `json:"error_count"`
}
