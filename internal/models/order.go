package models

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Order represents one seller group of a checkout. A cart spanning N
// sellers yields N orders sharing one customer and one checkout id. The
// order outlives the perishable cart and checkout sessions that produced
// it.
type Order struct {
	ID               int           `json:"id" db:"id"`
	OrderNumber      string        `json:"order_number" db:"order_number"`
	MarketplaceID    int           `json:"marketplace_id" db:"marketplace_id"`
	OrganizerID      int           `json:"organizer_id" db:"organizer_id"`
	CustomerID       int           `json:"customer_id" db:"customer_id"`
	CheckoutID       string        `json:"checkout_id" db:"checkout_id"`
	Status           OrderStatus   `json:"status" db:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	Subtotal         int           `json:"subtotal" db:"subtotal"`
	DiscountAmount   int           `json:"discount_amount" db:"discount_amount"`
	CommissionRate   float64       `json:"commission_rate" db:"commission_rate"`
	CommissionAmount int           `json:"commission_amount" db:"commission_amount"`
	Total            int           `json:"total" db:"total"`
	Currency         string        `json:"currency" db:"currency"`
	PaymentReference string        `json:"payment_reference" db:"payment_reference"`
	FailureReason    string        `json:"failure_reason,omitempty" db:"failure_reason"`
	ExpiresAt        time.Time     `json:"expires_at" db:"expires_at"`
	PaidAt           *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// OrderItem represents one ticket-type line of an order.
type OrderItem struct {
	ID           int    `json:"id" db:"id"`
	OrderID      int    `json:"order_id" db:"order_id"`
	TicketTypeID int    `json:"ticket_type_id" db:"ticket_type_id"`
	Name         string `json:"name" db:"name"`
	Quantity     int    `json:"quantity" db:"quantity"`
	UnitPrice    int    `json:"unit_price" db:"unit_price"`
	Total        int    `json:"total" db:"total"`
}

// Order number format: MKT-XXXXXXXX (8 uppercase alphanumerics)
var orderNumberRegex = regexp.MustCompile(`^MKT-[A-Z0-9]{8}$`)

// Validate validates the order data
func (o *Order) Validate() error {
	if o.OrderNumber == "" {
		return &ValidationError{Field: "order_number", Message: "order number is required"}
	}
	if !orderNumberRegex.MatchString(o.OrderNumber) {
		return &ValidationError{Field: "order_number", Message: "order number format is invalid"}
	}
	if o.Subtotal < 0 || o.Total < 0 {
		return &ValidationError{Field: "total", Message: "amounts cannot be negative"}
	}
	switch o.Status {
	case OrderPending, OrderCompleted, OrderCancelled:
	default:
		return &ValidationError{Field: "status", Message: "invalid order status"}
	}
	switch o.PaymentStatus {
	case PaymentPending, PaymentPaid, PaymentFailed:
	default:
		return &ValidationError{Field: "payment_status", Message: "invalid payment status"}
	}
	return nil
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ0123456789"

// GenerateOrderNumber generates a unique, non-sequential order number.
func GenerateOrderNumber() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a timestamp so order creation still proceeds.
		return fmt.Sprintf("MKT-%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	var sb strings.Builder
	sb.WriteString("MKT-")
	for _, b := range buf {
		sb.WriteByte(orderNumberAlphabet[int(b)%len(orderNumberAlphabet)])
	}
	return sb.String()
}

// IsPending returns true if the order is awaiting payment
func (o *Order) IsPending() bool {
	return o.Status == OrderPending
}

// IsPaid returns true if the order has been paid
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// IsExpired returns true if a pending order's reservation hold has lapsed.
func (o *Order) IsExpired(now time.Time) bool {
	return o.Status == OrderPending && now.After(o.ExpiresAt)
}

// CanBeCancelled returns true if the order can still be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderPending
}

// TotalInCurrency returns the total in main currency units.
func (o *Order) TotalInCurrency() float64 {
	return float64(o.Total) / 100.0
}
