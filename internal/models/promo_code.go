package models

import "time"

// DiscountType represents how a promo code computes its discount
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// PromoCode represents a discount code scoped to a marketplace and
// optionally to a single event.
type PromoCode struct {
	ID            int          `json:"id" db:"id"`
	MarketplaceID int          `json:"marketplace_id" db:"marketplace_id"`
	EventID       *int         `json:"event_id,omitempty" db:"event_id"`
	Code          string       `json:"code" db:"code"`
	DiscountType  DiscountType `json:"discount_type" db:"discount_type"`
	// DiscountValue is a whole percentage for percent codes, or minor
	// currency units for fixed codes.
	DiscountValue int        `json:"discount_value" db:"discount_value"`
	MaxDiscount   int        `json:"max_discount" db:"max_discount"` // 0 = uncapped
	MinPurchase   int        `json:"min_purchase" db:"min_purchase"` // minor units
	MinTickets    int        `json:"min_tickets" db:"min_tickets"`
	MaxUses       int        `json:"max_uses" db:"max_uses"` // 0 = unlimited
	TimesUsed     int        `json:"times_used" db:"times_used"`
	Active        bool       `json:"active" db:"active"`
	ValidFrom     *time.Time `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until,omitempty" db:"valid_until"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// IsExhausted returns true if the usage cap has been reached
func (p *PromoCode) IsExhausted() bool {
	return p.MaxUses > 0 && p.TimesUsed >= p.MaxUses
}

// IsWithinWindow checks the validity window at the given instant.
func (p *PromoCode) IsWithinWindow(now time.Time) bool {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	return true
}

// AppliesToEvents returns true if the code is unscoped or its event is
// among the given event ids.
func (p *PromoCode) AppliesToEvents(eventIDs []int) bool {
	if p.EventID == nil {
		return true
	}
	for _, id := range eventIDs {
		if id == *p.EventID {
			return true
		}
	}
	return false
}

// Validate validates the promo code data
func (p *PromoCode) Validate() error {
	if p.Code == "" {
		return &ValidationError{Field: "code", Message: "code is required"}
	}
	switch p.DiscountType {
	case DiscountPercent:
		if p.DiscountValue < 0 || p.DiscountValue > 100 {
			return &ValidationError{Field: "discount_value", Message: "percent value must be between 0 and 100"}
		}
	case DiscountFixed:
		if p.DiscountValue < 0 {
			return &ValidationError{Field: "discount_value", Message: "fixed value cannot be negative"}
		}
	default:
		return &ValidationError{Field: "discount_type", Message: "invalid discount type"}
	}
	return nil
}
