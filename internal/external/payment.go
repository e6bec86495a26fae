package external

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// PaymentClient talks to the hosted checkout gateway. Requests are
// authenticated with a SHA-256 token over the sorted request parameters plus
// the merchant secret; webhooks with an HMAC over the raw body.
type PaymentClient struct {
	baseURL       string
	merchantID    string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
}

type PaymentConfig struct {
	BaseURL       string
	MerchantID    string
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

type CheckoutSessionRequest struct {
	Amount      int64  // minor units
	Currency    string
	Description string
	Reference   string // caller-supplied booking reference
	Email       string
	SuccessURL  string
	CancelURL   string
}

type checkoutSessionBody struct {
	MerchantID  string `json:"merchantId"`
	Token       string `json:"token"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	Reference   string `json:"reference"`
	Email       string `json:"email,omitempty"`
	SuccessURL  string `json:"successURL"`
	CancelURL   string `json:"cancelURL"`
}

type CheckoutSessionResponse struct {
	Success     bool   `json:"success"`
	SessionID   string `json:"sessionId"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	CheckoutURL string `json:"checkoutURL"`
	ExpiresAt   string `json:"expiresAt"`
	CreatedAt   string `json:"createdAt"`
}

type SessionStatusResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL:       cfg.BaseURL,
		merchantID:    cfg.MerchantID,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (pc *PaymentClient) generateToken(params map[string]string) string {
	params["MerchantId"] = pc.merchantID
	params["SecretKey"] = pc.secretKey

	// Sort parameters alphabetically
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

// CreateCheckoutSession asks the gateway for a hosted checkout page
func (pc *PaymentClient) CreateCheckoutSession(req CheckoutSessionRequest) (*CheckoutSessionResponse, error) {
	params := map[string]string{
		"Amount":    strconv.FormatInt(req.Amount, 10),
		"Currency":  req.Currency,
		"Reference": req.Reference,
	}
	token := pc.generateToken(params)

	body := checkoutSessionBody{
		MerchantID:  pc.merchantID,
		Token:       token,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Reference:   req.Reference,
		Email:       req.Email,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := pc.httpClient.Post(pc.baseURL+"/api/v1/checkout/sessions", "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	defer resp.Body.Close()

	var result CheckoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success || result.SessionID == "" {
		return nil, fmt.Errorf("checkout session creation failed")
	}

	return &result, nil
}

// CheckSession queries the gateway for the current state of a checkout session
func (pc *PaymentClient) CheckSession(sessionID string) (*SessionStatusResponse, error) {
	params := map[string]string{
		"SessionId": sessionID,
	}
	token := pc.generateToken(params)

	reqData := map[string]interface{}{
		"merchantId": pc.merchantID,
		"token":      token,
		"sessionId":  sessionID,
	}

	jsonBody, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := pc.httpClient.Post(pc.baseURL+"/api/v1/checkout/sessions/status", "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	defer resp.Body.Close()

	var result SessionStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature the gateway sends
// with every event notification. Comparison is constant time.
func (pc *PaymentClient) VerifyWebhookSignature(payload []byte, signature string) bool {
	if pc.webhookSecret == "" || signature == "" {
		return false
	}

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(pc.webhookSecret))
	mac.Write(payload)

	return hmac.Equal(mac.Sum(nil), expected)
}

// SignWebhookPayload produces the signature the gateway would send for
// payload. Used by tests and the local development webhook sender.
func (pc *PaymentClient) SignWebhookPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(pc.webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
