package models

import "time"

// TicketTypeStatus represents the sale status of a ticket type
type TicketTypeStatus string

const (
	TicketTypeActive   TicketTypeStatus = "active"
	TicketTypeInactive TicketTypeStatus = "inactive"
)

// TicketType represents the inventory unit for a single admission class.
// Quotas are mutable running counters guarded by row locks inside the
// order transaction; reads outside that transaction are best-effort
// snapshots and must be revalidated under lock.
type TicketType struct {
	ID            int              `json:"id" db:"id"`
	EventID       int              `json:"event_id" db:"event_id"`
	OrganizerID   int              `json:"organizer_id" db:"organizer_id"`
	MarketplaceID int              `json:"marketplace_id" db:"marketplace_id"`
	Name          string           `json:"name" db:"name"`
	Price         int              `json:"price" db:"price"` // minor currency units
	QuotaTotal    int              `json:"quota_total" db:"quota_total"`
	QuotaSold     int              `json:"quota_sold" db:"quota_sold"`
	QuotaReserved int              `json:"quota_reserved" db:"quota_reserved"`
	MaxPerOrder   int              `json:"max_per_order" db:"max_per_order"`
	Status        TicketTypeStatus `json:"status" db:"status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// Available returns the live sellable capacity. Never negative.
func (tt *TicketType) Available() int {
	available := tt.QuotaTotal - tt.QuotaSold - tt.QuotaReserved
	if available < 0 {
		return 0
	}
	return available
}

// IsActive returns true if the ticket type is on sale
func (tt *TicketType) IsActive() bool {
	return tt.Status == TicketTypeActive
}

// CheckQuotaInvariant verifies quota_sold + quota_reserved <= quota_total.
func (tt *TicketType) CheckQuotaInvariant() bool {
	return tt.QuotaSold+tt.QuotaReserved <= tt.QuotaTotal
}

// Validate validates the ticket type data
func (tt *TicketType) Validate() error {
	if tt.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if tt.Price < 0 {
		return &ValidationError{Field: "price", Message: "price cannot be negative"}
	}
	if tt.QuotaTotal < 0 {
		return &ValidationError{Field: "quota_total", Message: "quota cannot be negative"}
	}
	if !tt.CheckQuotaInvariant() {
		return &ValidationError{Field: "quota_sold", Message: "sold and reserved quota exceed total"}
	}
	switch tt.Status {
	case TicketTypeActive, TicketTypeInactive:
	default:
		return &ValidationError{Field: "status", Message: "invalid ticket type status"}
	}
	return nil
}

// Event represents the catalog entry a ticket type belongs to. Only the
// fields the checkout core needs are carried here; browsing data lives in
// the catalog read-model.
type Event struct {
	ID             int        `json:"id" db:"id"`
	MarketplaceID  int        `json:"marketplace_id" db:"marketplace_id"`
	OrganizerID    int        `json:"organizer_id" db:"organizer_id"`
	Title          string     `json:"title" db:"title"`
	StartsAt       time.Time  `json:"starts_at" db:"starts_at"`
	Status         string     `json:"status" db:"status"`
	CommissionRate *float64   `json:"commission_rate,omitempty" db:"commission_rate"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
