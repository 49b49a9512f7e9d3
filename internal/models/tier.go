package models

import "time"

// Tier is the inventory ledger row for a purchasable ticket category.
type Tier struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Name          string    `json:"name"`
	Capacity      int       `json:"capacity"`
	ConfirmedSold int       `json:"confirmed_sold"`
	Price         int64     `json:"price"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available returns the units left once confirmed sales and the given
// reserved quantity are subtracted. It can go negative if a caller passes a
// reservation figure that was computed outside the tier lock.
func (t *Tier) Available(reserved int) int {
	return t.Capacity - t.ConfirmedSold - reserved
}
