package models

import "time"

type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "WAITING"
	WaitlistStatusNotified  WaitlistStatus = "NOTIFIED"
	WaitlistStatusPurchased WaitlistStatus = "PURCHASED"
	WaitlistStatusExpired   WaitlistStatus = "EXPIRED"
)

// WaitlistEntry is queued demand for a sold-out tier, ordered by CreatedAt.
type WaitlistEntry struct {
	ID           string         `json:"id"`
	TierID       string         `json:"tier_id"`
	EventID      string         `json:"event_id"`
	HolderID     string         `json:"holder_id"`
	Quantity     int            `json:"quantity"`
	Status       WaitlistStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	NotifiedAt   *time.Time     `json:"notified_at,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	TicketHoldID *string        `json:"ticket_hold_id,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (e *WaitlistEntry) IsOpen() bool {
	return e.Status == WaitlistStatusWaiting || e.Status == WaitlistStatusNotified
}
