package types

import "time"

// Customer represents a client of the house.
type Customer struct {
	// ID is the string GUID of the customer.
	ID string `json:"id"`

	// Name is the customer's display name.
	Name string `json:"name"`

	// Email and Phone are the customer's contact details.
	Email *string `json:"email"`
	Phone *string `json:"phone"`

	// Notes is an append-only log: the notes endpoint concatenates new
	// entries, it never replaces existing text.
	Notes string `json:"notes"`

	// CustomerSince is the relationship start date.
	CustomerSince *time.Time `json:"customerSince"`

	// CreatedAt and UpdatedAt are audit timestamps.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CustomerActivityEntry is one row of a customer's activity feed, derived
// from the manufacturing projects linked to the customer.
type CustomerActivityEntry struct {
	ProjectID         int64      `json:"projectId"`
	ManufacturingCode string     `json:"manufacturingCode"`
	PieceName         string     `json:"pieceName"`
	Status            string     `json:"status"`
	SoldAt            *time.Time `json:"soldAt"`
	OccurredAt        time.Time  `json:"occurredAt"`
}
