package notify

import (
	"fmt"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"tixmarket/internal/config"
	"tixmarket/internal/models"
)

// EmailSender delivers order confirmation emails over SMTP
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailSender creates a new email sender from SMTP settings
func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.SMTPUser,
	}
}

// SendOrderConfirmation emails the buyer their settled order with ticket
// codes. Delivery is best effort; callers log failures and move on.
func (s *EmailSender) SendOrderConfirmation(order *models.Order, email, name string, tickets []models.Ticket) error {
	if s.from == "" {
		return fmt.Errorf("smtp sender is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("Your order %s is confirmed", order.OrderNumber))
	m.SetBody("text/plain", confirmationBody(order, name, tickets))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

func confirmationBody(order *models.Order, name string, tickets []models.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your payment for order %s was received.\n", order.OrderNumber)
	fmt.Fprintf(&b, "Total: %.2f %s\n\n", float64(order.Total)/100, order.Currency)
	if len(tickets) > 0 {
		b.WriteString("Your tickets:\n")
		for _, t := range tickets {
			fmt.Fprintf(&b, "  %s\n", t.Code)
		}
		b.WriteString("\n")
	}
	b.WriteString("See you at the event!\n")
	return b.String()
}
