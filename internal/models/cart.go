package models

import "time"

const (
	// CartTTL is how long an untouched cart survives. Every mutation
	// rewrites the full cart blob and resets this window.
	CartTTL = 2 * time.Hour

	// CartMaxQuantity caps a single add operation.
	CartMaxQuantity = 10
)

// Cart represents a buyer's provisional selections, keyed by an opaque
// bearer token. Whoever holds the token owns the cart; concurrent writers
// are last-write-wins.
type Cart struct {
	Token         string     `json:"token"`
	MarketplaceID int        `json:"marketplace_id"`
	Items         []CartItem `json:"items"`
	Promo         *CartPromo `json:"promo,omitempty"`
	Currency      string     `json:"currency"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CartItem represents one ticket-type line. UnitPrice is snapshotted when
// the line is added; checkout revalidates against the live price.
type CartItem struct {
	TicketTypeID int       `json:"ticket_type_id"`
	EventID      int       `json:"event_id"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int       `json:"unit_price"` // minor currency units
	AddedAt      time.Time `json:"added_at"`
}

// CartPromo is the applied promo code snapshot carried on the cart.
type CartPromo struct {
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int          `json:"discount_value"`
	MaxDiscount   int          `json:"max_discount,omitempty"`
}

// IsEmpty returns true if the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Subtotal returns the sum of line totals in minor units.
func (c *Cart) Subtotal() int {
	total := 0
	for _, item := range c.Items {
		total += item.UnitPrice * item.Quantity
	}
	return total
}

// TicketCount returns the total number of tickets across all lines.
func (c *Cart) TicketCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItem returns the line for a ticket type, or nil.
func (c *Cart) FindItem(ticketTypeID int) *CartItem {
	for i := range c.Items {
		if c.Items[i].TicketTypeID == ticketTypeID {
			return &c.Items[i]
		}
	}
	return nil
}

// UpsertItem replaces the line for the item's ticket type or appends it,
// preserving line order.
func (c *Cart) UpsertItem(item CartItem) {
	for i := range c.Items {
		if c.Items[i].TicketTypeID == item.TicketTypeID {
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// RemoveItem drops the line for a ticket type. Removing a line that is not
// present is a no-op.
func (c *Cart) RemoveItem(ticketTypeID int) {
	for i := range c.Items {
		if c.Items[i].TicketTypeID == ticketTypeID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// EventIDs returns the distinct events represented in the cart.
func (c *Cart) EventIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, item := range c.Items {
		if !seen[item.EventID] {
			seen[item.EventID] = true
			ids = append(ids, item.EventID)
		}
	}
	return ids
}
