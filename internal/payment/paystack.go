package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PaystackConfig represents Paystack gateway configuration
type PaystackConfig struct {
	SecretKey   string
	PublicKey   string
	Environment string // "test" or "live"
}

// PaystackGateway collects card payments via the Paystack API.
type PaystackGateway struct {
	config  PaystackConfig
	client  *http.Client
	baseURL string
}

func NewPaystackGateway(config PaystackConfig) *PaystackGateway {
	return &PaystackGateway{
		config:  config,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.paystack.co",
	}
}

func (g *PaystackGateway) Name() string { return "paystack" }

func (g *PaystackGateway) IsConfigured() bool {
	return g.config.SecretKey != "" && g.config.PublicKey != ""
}

type paystackInitRequest struct {
	Email       string            `json:"email"`
	Amount      int               `json:"amount"` // minor units
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type paystackWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int    `json:"amount"`
		Currency        string `json:"currency"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

// CreatePayment initializes a Paystack transaction and returns the hosted
// authorization URL the buyer is redirected to.
func (g *PaystackGateway) CreatePayment(ctx context.Context, pc *PaymentContext) (*PaymentIntent, error) {
	req := paystackInitRequest{
		Email:       pc.CustomerEmail,
		Amount:      pc.Amount,
		Currency:    pc.Currency,
		Reference:   pc.OrderNumber,
		CallbackURL: pc.CallbackURL,
		Metadata:    pc.Metadata,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/transaction/initialize", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack API error (status %d): %s", resp.StatusCode, string(body))
	}

	var initResp paystackInitResponse
	if err := json.Unmarshal(body, &initResp); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}
	if !initResp.Status {
		return nil, fmt.Errorf("transaction initialization failed: %s", initResp.Message)
	}

	return &PaymentIntent{
		Reference:   initResp.Data.Reference,
		RedirectURL: initResp.Data.AuthorizationURL,
	}, nil
}

// HandleCallback verifies the webhook HMAC and normalizes the event.
func (g *PaystackGateway) HandleCallback(payload []byte, headers http.Header) (*CallbackResult, error) {
	signature := headers.Get("X-Paystack-Signature")
	if !g.verifySignature(payload, signature) {
		return nil, fmt.Errorf("invalid paystack webhook signature")
	}

	var event paystackWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	switch event.Event {
	case "charge.success":
		return &CallbackResult{
			Success:   true,
			Message:   "payment successful",
			Reference: event.Data.Reference,
		}, nil
	case "charge.failed":
		message := event.Data.GatewayResponse
		if message == "" {
			message = "payment failed"
		}
		return &CallbackResult{
			Success:   false,
			Message:   message,
			Reference: event.Data.Reference,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported paystack event: %s", event.Event)
	}
}

// verifySignature checks the HMAC-SHA512 of the raw payload against the
// X-Paystack-Signature header.
func (g *PaystackGateway) verifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(g.config.SecretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
