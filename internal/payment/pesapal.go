package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PesapalConfig represents Pesapal gateway configuration
type PesapalConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Environment    string // "sandbox" or "production"
	NotificationID string // registered IPN id
}

// PesapalGateway collects wallet and mobile-money payments via the
// Pesapal v3 API. Authentication is a short-lived bearer token fetched
// per request.
type PesapalGateway struct {
	config  PesapalConfig
	client  *http.Client
	baseURL string
}

func NewPesapalGateway(config PesapalConfig) *PesapalGateway {
	baseURL := "https://pay.pesapal.com/v3"
	if config.Environment == "sandbox" {
		baseURL = "https://cybqa.pesapal.com/pesapalv3"
	}
	return &PesapalGateway{
		config:  config,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

func (g *PesapalGateway) Name() string { return "pesapal" }

func (g *PesapalGateway) IsConfigured() bool {
	return g.config.ConsumerKey != "" && g.config.ConsumerSecret != ""
}

type pesapalAuthResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

type pesapalSubmitOrderRequest struct {
	ID             string                `json:"id"`
	Currency       string                `json:"currency"`
	Amount         float64               `json:"amount"`
	Description    string                `json:"description"`
	CallbackURL    string                `json:"callback_url"`
	CancelURL      string                `json:"cancellation_url,omitempty"`
	NotificationID string                `json:"notification_id"`
	BillingAddress pesapalBillingAddress `json:"billing_address"`
}

type pesapalBillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

type pesapalSubmitOrderResponse struct {
	OrderTrackingID   string      `json:"order_tracking_id"`
	MerchantReference string      `json:"merchant_reference"`
	RedirectURL       string      `json:"redirect_url"`
	Error             interface{} `json:"error,omitempty"`
	Message           string      `json:"message,omitempty"`
}

type pesapalTransactionStatus struct {
	PaymentStatusDescription string `json:"payment_status_description"`
	MerchantReference        string `json:"merchant_reference"`
	Description              string `json:"description"`
	StatusCode               int    `json:"status_code"`
}

// pesapalIPN is the notification body Pesapal posts to the callback URL.
type pesapalIPN struct {
	OrderTrackingID        string `json:"OrderTrackingId"`
	OrderMerchantReference string `json:"OrderMerchantReference"`
}

// CreatePayment submits the order to Pesapal and returns its hosted
// payment page URL.
func (g *PesapalGateway) CreatePayment(ctx context.Context, pc *PaymentContext) (*PaymentIntent, error) {
	token, err := g.authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("pesapal authentication failed: %w", err)
	}

	firstName := pc.CustomerName
	lastName := ""
	if parts := strings.SplitN(pc.CustomerName, " ", 2); len(parts) == 2 {
		firstName, lastName = parts[0], parts[1]
	}

	req := pesapalSubmitOrderRequest{
		ID:             pc.OrderNumber,
		Currency:       pc.Currency,
		Amount:         float64(pc.Amount) / 100,
		Description:    pc.Description,
		CallbackURL:    pc.CallbackURL,
		CancelURL:      pc.CancelURL,
		NotificationID: g.config.NotificationID,
		BillingAddress: pesapalBillingAddress{
			EmailAddress: pc.CustomerEmail,
			PhoneNumber:  pc.CustomerPhone,
			FirstName:    firstName,
			LastName:     lastName,
		},
	}

	var resp pesapalSubmitOrderResponse
	if err := g.post(ctx, token, "/api/Transactions/SubmitOrderRequest", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to submit pesapal order: %w", err)
	}
	if resp.Error != nil || resp.RedirectURL == "" {
		return nil, fmt.Errorf("pesapal order submission failed: %s", resp.Message)
	}

	return &PaymentIntent{
		Reference:   resp.OrderTrackingID,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// HandleCallback verifies an IPN by querying the transaction status back
// from Pesapal; the IPN body itself is unsigned and untrusted.
func (g *PesapalGateway) HandleCallback(payload []byte, _ http.Header) (*CallbackResult, error) {
	var ipn pesapalIPN
	if err := json.Unmarshal(payload, &ipn); err != nil {
		return nil, fmt.Errorf("failed to decode pesapal IPN: %w", err)
	}
	if ipn.OrderTrackingID == "" {
		return nil, fmt.Errorf("pesapal IPN missing order tracking id")
	}

	token, err := g.authenticate(context.Background())
	if err != nil {
		return nil, fmt.Errorf("pesapal authentication failed: %w", err)
	}

	status, err := g.transactionStatus(context.Background(), token, ipn.OrderTrackingID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify pesapal transaction: %w", err)
	}

	// Status code 1 is COMPLETED; 2 is FAILED; 0 is INVALID; 3 is REVERSED.
	if status.StatusCode == 1 {
		return &CallbackResult{
			Success:   true,
			Message:   "payment successful",
			Reference: status.MerchantReference,
		}, nil
	}
	return &CallbackResult{
		Success:   false,
		Message:   status.PaymentStatusDescription,
		Reference: status.MerchantReference,
	}, nil
}

// authenticate fetches a short-lived API token.
func (g *PesapalGateway) authenticate(ctx context.Context) (string, error) {
	body := map[string]string{
		"consumer_key":    g.config.ConsumerKey,
		"consumer_secret": g.config.ConsumerSecret,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/api/Auth/RequestToken", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}

	var authResp pesapalAuthResponse
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if authResp.Token == "" {
		return "", fmt.Errorf("authentication rejected: %s", authResp.Message)
	}
	return authResp.Token, nil
}

func (g *PesapalGateway) transactionStatus(ctx context.Context, token, trackingID string) (*pesapalTransactionStatus, error) {
	url := fmt.Sprintf("%s/api/Transactions/GetTransactionStatus?orderTrackingId=%s", g.baseURL, trackingID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send status request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	var status pesapalTransactionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &status, nil
}

func (g *PesapalGateway) post(ctx context.Context, token, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pesapal API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}
