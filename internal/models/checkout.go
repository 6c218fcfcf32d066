package models

import "time"

// CheckoutTTL is how long a checkout session stays completable. It also
// bounds the reservation hold on any orders it produces.
const CheckoutTTL = 15 * time.Minute

// CheckoutSession freezes a validated cart into a short-lived, single-use
// token with locked totals. It is consumed exactly once by completion or
// silently expires.
type CheckoutSession struct {
	ID             string     `json:"id"`
	CartToken      string     `json:"cart_token"`
	MarketplaceID  int        `json:"marketplace_id"`
	Items          []CartItem `json:"items"`
	Promo          *CartPromo `json:"promo,omitempty"`
	Subtotal       int        `json:"subtotal"`
	DiscountAmount int        `json:"discount_amount"`
	Total          int        `json:"total"`
	Currency       string     `json:"currency"`
	PaymentMethods []string   `json:"payment_methods"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
}

// IsExpired checks the wall-clock deadline. The store's TTL usually fires
// first; this guards against clock skew between store and process.
func (cs *CheckoutSession) IsExpired(now time.Time) bool {
	return now.After(cs.ExpiresAt)
}

// CustomerInfo is the buyer identity submitted at checkout completion.
type CustomerInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	// Password is optional; when present an account is created for the
	// customer alongside the order.
	Password string `json:"password,omitempty"`
}

// FullName returns the customer's display name.
func (ci *CustomerInfo) FullName() string {
	if ci.LastName == "" {
		return ci.FirstName
	}
	return ci.FirstName + " " + ci.LastName
}

// Beneficiary names the attendee a specific ticket is issued to.
type Beneficiary struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
