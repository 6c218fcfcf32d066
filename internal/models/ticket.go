package models

import "time"

// TicketStatus represents the status of an issued ticket
type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketValid     TicketStatus = "valid"
	TicketCancelled TicketStatus = "cancelled"
)

// Ticket represents one admission unit. Tickets are created pending inside
// the order transaction and become valid only when the payment callback
// confirms the order.
type Ticket struct {
	ID            int          `json:"id" db:"id"`
	OrderID       int          `json:"order_id" db:"order_id"`
	OrderItemID   int          `json:"order_item_id" db:"order_item_id"`
	TicketTypeID  int          `json:"ticket_type_id" db:"ticket_type_id"`
	Code          string       `json:"code" db:"code"`
	Barcode       string       `json:"barcode" db:"barcode"`
	Status        TicketStatus `json:"status" db:"status"`
	Price         int          `json:"price" db:"price"`
	AttendeeName  string       `json:"attendee_name,omitempty" db:"attendee_name"`
	AttendeeEmail string       `json:"attendee_email,omitempty" db:"attendee_email"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// Validate validates the ticket data
func (t *Ticket) Validate() error {
	if t.Code == "" {
		return &ValidationError{Field: "code", Message: "ticket code is required"}
	}
	if t.Barcode == "" {
		return &ValidationError{Field: "barcode", Message: "ticket barcode is required"}
	}
	switch t.Status {
	case TicketPending, TicketValid, TicketCancelled:
	default:
		return &ValidationError{Field: "status", Message: "invalid ticket status"}
	}
	return nil
}

// IsValid returns true if the ticket grants entry
func (t *Ticket) IsValid() bool {
	return t.Status == TicketValid
}
