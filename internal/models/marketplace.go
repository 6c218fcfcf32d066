package models

import "time"

// CommissionMode controls whether the marketplace commission is added on
// top of the displayed price or already included in it.
type CommissionMode string

const (
	CommissionIncluded CommissionMode = "included"
	CommissionOnTop    CommissionMode = "on_top"
)

// Marketplace represents a tenant selling through its own storefront.
// Payment processor selection and the commission default/mode live here.
type Marketplace struct {
	ID               int            `json:"id" db:"id"`
	Slug             string         `json:"slug" db:"slug"`
	Name             string         `json:"name" db:"name"`
	Currency         string         `json:"currency" db:"currency"`
	CommissionRate   float64        `json:"commission_rate" db:"commission_rate"`
	CommissionMode   CommissionMode `json:"commission_mode" db:"commission_mode"`
	PaymentProcessor string         `json:"payment_processor" db:"payment_processor"`
	// PaymentConfig holds the processor credentials as stored key/value
	// settings; its shape is owned by the gateway implementation.
	PaymentConfig map[string]string `json:"-" db:"payment_config"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// Organizer represents a seller publishing events on a marketplace. A nil
// CommissionRate means the marketplace default applies.
type Organizer struct {
	ID             int       `json:"id" db:"id"`
	MarketplaceID  int       `json:"marketplace_id" db:"marketplace_id"`
	Name           string    `json:"name" db:"name"`
	CommissionRate *float64  `json:"commission_rate,omitempty" db:"commission_rate"`
	TotalOrders    int       `json:"total_orders" db:"total_orders"`
	TotalGross     int       `json:"total_gross" db:"total_gross"`
	TotalNet       int       `json:"total_net" db:"total_net"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// EffectiveCommissionRate resolves the rate to apply for a sale: event
// override, then organizer override, then the marketplace default.
func EffectiveCommissionRate(event *Event, organizer *Organizer, marketplace *Marketplace) float64 {
	if event != nil && event.CommissionRate != nil {
		return *event.CommissionRate
	}
	if organizer != nil && organizer.CommissionRate != nil {
		return *organizer.CommissionRate
	}
	return marketplace.CommissionRate
}

// CommissionEntry is one row of the payout ledger, recorded when a payment
// callback confirms an order.
type CommissionEntry struct {
	ID            int       `json:"id" db:"id"`
	MarketplaceID int       `json:"marketplace_id" db:"marketplace_id"`
	OrganizerID   int       `json:"organizer_id" db:"organizer_id"`
	OrderID       int       `json:"order_id" db:"order_id"`
	GrossAmount   int       `json:"gross_amount" db:"gross_amount"`
	Commission    int       `json:"commission" db:"commission"`
	NetAmount     int       `json:"net_amount" db:"net_amount"`
	Currency      string    `json:"currency" db:"currency"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
