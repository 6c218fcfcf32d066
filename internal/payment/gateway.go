// Package payment abstracts the external payment processors a marketplace
// can configure. Gateway resolution happens exactly once per request via
// the factory; nothing downstream branches on processor identity.
package payment

import (
	"context"
	"net/http"

	"tixmarket/internal/models"
)

// PaymentContext carries everything a processor needs to start a payment.
type PaymentContext struct {
	OrderID       int
	OrderNumber   string
	Amount        int // minor currency units
	Currency      string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	Description   string
	ReturnURL     string
	CancelURL     string
	CallbackURL   string
	Metadata      map[string]string
}

// PaymentIntent is the processor's answer to a payment initiation.
type PaymentIntent struct {
	Reference   string
	RedirectURL string
}

// CallbackResult normalizes a processor notification. Everything beyond
// these fields stays opaque to the rest of the system.
type CallbackResult struct {
	Success   bool
	Message   string
	Reference string
}

// Gateway is the uniform interface over heterogeneous payment processors.
// Each implementation owns its own signature or HMAC verification.
type Gateway interface {
	Name() string
	IsConfigured() bool
	CreatePayment(ctx context.Context, pc *PaymentContext) (*PaymentIntent, error)
	HandleCallback(payload []byte, headers http.Header) (*CallbackResult, error)
}

// Resolve builds the gateway for a marketplace's stored processor
// configuration. This is the single point of processor dispatch.
func Resolve(marketplace *models.Marketplace) (Gateway, error) {
	cfg := marketplace.PaymentConfig
	if cfg == nil {
		cfg = map[string]string{}
	}

	var gw Gateway
	switch marketplace.PaymentProcessor {
	case "paystack":
		gw = NewPaystackGateway(PaystackConfig{
			SecretKey:   cfg["secret_key"],
			PublicKey:   cfg["public_key"],
			Environment: cfg["environment"],
		})
	case "pesapal":
		gw = NewPesapalGateway(PesapalConfig{
			ConsumerKey:    cfg["consumer_key"],
			ConsumerSecret: cfg["consumer_secret"],
			Environment:    cfg["environment"],
			NotificationID: cfg["notification_id"],
		})
	case "sms":
		fallback, err := resolveFallback(cfg)
		if err != nil {
			return nil, err
		}
		gw = NewSMSGateway(SMSConfig{
			APIKey:  cfg["sms_api_key"],
			Sender:  cfg["sms_sender"],
			BaseURL: cfg["sms_base_url"],
		}, fallback)
	case "mock", "":
		gw = NewMockGateway()
	default:
		return nil, &models.PaymentError{
			Processor: marketplace.PaymentProcessor,
			Message:   "unsupported payment processor",
		}
	}

	if !gw.IsConfigured() {
		return nil, &models.PaymentError{
			Processor: gw.Name(),
			Message:   "payment processor is not configured",
		}
	}
	return gw, nil
}

// resolveFallback builds the processor that actually collects money for
// SMS-initiated flows, from the same settings map under fallback_* keys.
func resolveFallback(cfg map[string]string) (Gateway, error) {
	switch cfg["sms_fallback_processor"] {
	case "paystack":
		return NewPaystackGateway(PaystackConfig{
			SecretKey:   cfg["secret_key"],
			PublicKey:   cfg["public_key"],
			Environment: cfg["environment"],
		}), nil
	case "pesapal":
		return NewPesapalGateway(PesapalConfig{
			ConsumerKey:    cfg["consumer_key"],
			ConsumerSecret: cfg["consumer_secret"],
			Environment:    cfg["environment"],
			NotificationID: cfg["notification_id"],
		}), nil
	case "mock", "":
		return NewMockGateway(), nil
	default:
		return nil, &models.PaymentError{
			Processor: cfg["sms_fallback_processor"],
			Message:   "unsupported SMS fallback processor",
		}
	}
}
