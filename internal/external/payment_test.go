package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClient() *PaymentClient {
	return NewPaymentClient(PaymentConfig{
		BaseURL:       "https://checkout.test",
		MerchantID:    "merchant-1",
		SecretKey:     "secret",
		WebhookSecret: "webhook-secret",
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	pc := newTestClient()
	payload := []byte(`{"event":"checkout.completed","sessionId":"cs_123","reference":"7"}`)

	sig := pc.SignWebhookPayload(payload)
	assert.True(t, pc.VerifyWebhookSignature(payload, sig))
}

func TestVerifyWebhookSignatureRejectsTamperedPayload(t *testing.T) {
	pc := newTestClient()
	payload := []byte(`{"event":"checkout.completed","sessionId":"cs_123","reference":"7"}`)
	sig := pc.SignWebhookPayload(payload)

	tampered := []byte(`{"event":"checkout.completed","sessionId":"cs_123","reference":"8"}`)
	assert.False(t, pc.VerifyWebhookSignature(tampered, sig))
}

func TestVerifyWebhookSignatureRejectsMalformedSignature(t *testing.T) {
	pc := newTestClient()
	payload := []byte(`{}`)

	assert.False(t, pc.VerifyWebhookSignature(payload, ""))
	assert.False(t, pc.VerifyWebhookSignature(payload, "not-hex!"))
	assert.False(t, pc.VerifyWebhookSignature(payload, "deadbeef"))
}

func TestVerifyWebhookSignatureRequiresConfiguredSecret(t *testing.T) {
	pc := NewPaymentClient(PaymentConfig{BaseURL: "https://checkout.test"})
	payload := []byte(`{}`)

	// No shared secret configured means nothing can verify
	assert.False(t, pc.VerifyWebhookSignature(payload, pc.SignWebhookPayload(payload)))
}

func TestGenerateTokenIsDeterministic(t *testing.T) {
	pc := newTestClient()

	a := pc.generateToken(map[string]string{"Amount": "30000", "Currency": "GBP", "Reference": "7"})
	b := pc.generateToken(map[string]string{"Reference": "7", "Currency": "GBP", "Amount": "30000"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
