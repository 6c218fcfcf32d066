package models

import (
	"regexp"
	"strings"
	"time"
)

var customerEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Customer represents a buyer scoped to one marketplace. Customers are
// upserted by (marketplace, email) inside the order transaction.
type Customer struct {
	ID            int       `json:"id" db:"id"`
	MarketplaceID int       `json:"marketplace_id" db:"marketplace_id"`
	Email         string    `json:"email" db:"email"`
	FirstName     string    `json:"first_name" db:"first_name"`
	LastName      string    `json:"last_name" db:"last_name"`
	Phone         string    `json:"phone" db:"phone"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the customer's display name
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ValidateCustomerInfo validates buyer identity submitted at checkout.
func ValidateCustomerInfo(info *CustomerInfo) error {
	if info.Email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if len(info.Email) > 255 || !customerEmailRegex.MatchString(info.Email) {
		return &ValidationError{Field: "email", Message: "email format is invalid"}
	}
	if strings.TrimSpace(info.FirstName) == "" {
		return &ValidationError{Field: "first_name", Message: "first name is required"}
	}
	if strings.TrimSpace(info.LastName) == "" {
		return &ValidationError{Field: "last_name", Message: "last name is required"}
	}
	if info.Password != "" && len(info.Password) < 8 {
		return &ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}
