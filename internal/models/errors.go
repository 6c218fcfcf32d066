package models

import (
	"errors"
	"fmt"
)

// Common sentinel errors used throughout the application
var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCheckoutNotFound = errors.New("checkout session not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPromoNotFound    = errors.New("promo code not found")
)

// ValidationError indicates malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// Code returns the machine-readable reason code.
func (e *ValidationError) Code() string { return "validation_error" }

// NotFoundError indicates a missing cart, checkout, order or ticket type.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Code() string { return "not_found" }

// AvailabilityError indicates insufficient quota detected at a
// pre-transaction check. Available carries the live count so callers can
// shrink the requested quantity and retry.
type AvailabilityError struct {
	TicketTypeID int
	Requested    int
	Available    int
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("ticket type %d: only %d of %d requested tickets available",
		e.TicketTypeID, e.Available, e.Requested)
}

func (e *AvailabilityError) Code() string { return "insufficient_availability" }

// LimitError indicates a per-order quantity cap was exceeded.
type LimitError struct {
	TicketTypeID int
	MaxPerOrder  int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("ticket type %d: maximum %d tickets per order", e.TicketTypeID, e.MaxPerOrder)
}

func (e *LimitError) Code() string { return "limit_exceeded" }

// AuthorizationError indicates a seller or marketplace scope mismatch.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func (e *AuthorizationError) Code() string { return "unauthorized" }

// ExpiredError indicates the checkout or reservation TTL elapsed, or the
// session was already consumed by a prior completion.
type ExpiredError struct {
	Resource string
	ID       string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("%s %s has expired or was already used", e.Resource, e.ID)
}

func (e *ExpiredError) Code() string { return "expired" }

// OversoldError indicates a lost race detected inside the order
// transaction: another buyer consumed the capacity between the
// checkout-init validation and the row lock.
type OversoldError struct {
	TicketTypeID int
	Requested    int
	Available    int
}

func (e *OversoldError) Error() string {
	return fmt.Sprintf("ticket type %d oversold: %d requested, %d available under lock",
		e.TicketTypeID, e.Requested, e.Available)
}

func (e *OversoldError) Code() string { return "oversold" }

// PaymentError indicates the payment processor rejected the request or is
// misconfigured for the marketplace.
type PaymentError struct {
	Processor string
	Message   string
}

func (e *PaymentError) Error() string {
	if e.Processor != "" {
		return fmt.Sprintf("payment via %s failed: %s", e.Processor, e.Message)
	}
	return "payment failed: " + e.Message
}

func (e *PaymentError) Code() string { return "payment_error" }

// InternalError wraps an unexpected failure that forced a rollback.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return "internal error: " + e.Err.Error() }

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Code() string { return "internal_error" }
