package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// SMSConfig represents the text-message delivery settings for
// SMS-initiated payments.
type SMSConfig struct {
	APIKey  string
	Sender  string
	BaseURL string
}

// SMSGateway initiates payments by texting the buyer a payment link.
// Money collection and callbacks are delegated to the configured fallback
// processor; only link delivery is handled here.
type SMSGateway struct {
	config   SMSConfig
	fallback Gateway
	client   *http.Client
}

func NewSMSGateway(config SMSConfig, fallback Gateway) *SMSGateway {
	return &SMSGateway{
		config:   config,
		fallback: fallback,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *SMSGateway) Name() string { return "sms" }

func (g *SMSGateway) IsConfigured() bool {
	return g.config.APIKey != "" && g.fallback != nil && g.fallback.IsConfigured()
}

func (g *SMSGateway) CreatePayment(ctx context.Context, pc *PaymentContext) (*PaymentIntent, error) {
	if pc.CustomerPhone == "" {
		return nil, fmt.Errorf("sms payment requires a customer phone number")
	}

	intent, err := g.fallback.CreatePayment(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("fallback processor failed: %w", err)
	}

	text := fmt.Sprintf("Complete your order %s (%.2f %s): %s",
		pc.OrderNumber, float64(pc.Amount)/100, pc.Currency, intent.RedirectURL)
	if err := g.sendText(ctx, pc.CustomerPhone, text); err != nil {
		// The payment link is already live; surface the delivery failure
		// but keep the intent so the caller can still show the URL.
		log.Printf("SMS delivery failed for order %s: %v", pc.OrderNumber, err)
	}

	return intent, nil
}

// HandleCallback delegates to the fallback processor, which owns the
// verification of its own notifications.
func (g *SMSGateway) HandleCallback(payload []byte, headers http.Header) (*CallbackResult, error) {
	return g.fallback.HandleCallback(payload, headers)
}

func (g *SMSGateway) sendText(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(map[string]string{
		"to":      phone,
		"from":    g.config.Sender,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.config.BaseURL+"/messages", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
