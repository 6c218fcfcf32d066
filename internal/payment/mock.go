package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// MockGateway simulates a processor for development and tests. Payments
// "redirect" to the return URL directly and callbacks are trusted as-is.
type MockGateway struct{}

func NewMockGateway() *MockGateway { return &MockGateway{} }

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) IsConfigured() bool { return true }

func (g *MockGateway) CreatePayment(_ context.Context, pc *PaymentContext) (*PaymentIntent, error) {
	reference := fmt.Sprintf("mock_pay_%d_%d", time.Now().Unix(), pc.OrderID)
	log.Printf("Mock payment: %s for %.2f %s (%s)",
		reference, float64(pc.Amount)/100, pc.Currency, pc.CustomerEmail)
	return &PaymentIntent{
		Reference:   reference,
		RedirectURL: pc.ReturnURL,
	}, nil
}

type mockCallbackPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

func (g *MockGateway) HandleCallback(payload []byte, _ http.Header) (*CallbackResult, error) {
	var body mockCallbackPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to decode mock callback: %w", err)
	}
	if body.Reference == "" {
		return nil, fmt.Errorf("mock callback missing reference")
	}

	if body.Status == "success" {
		return &CallbackResult{Success: true, Message: "payment successful", Reference: body.Reference}, nil
	}
	message := body.Message
	if message == "" {
		message = "payment declined"
	}
	return &CallbackResult{Success: false, Message: message, Reference: body.Reference}, nil
}
