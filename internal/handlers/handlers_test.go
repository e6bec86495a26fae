package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeletstays/internal/external"
	"safeletstays/internal/models"
	"safeletstays/internal/service"
	"safeletstays/internal/token"
)

// In-memory stores standing in for Postgres so the HTTP surface can be
// exercised end to end.

type stubBookingStore struct {
	bookings map[int64]*models.Booking
	nextID   int64
}

func newStubBookingStore() *stubBookingStore {
	return &stubBookingStore{bookings: make(map[int64]*models.Booking), nextID: 1}
}

func (s *stubBookingStore) Create(ctx context.Context, booking *models.Booking) error {
	booking.ID = s.nextID
	s.nextID++
	s.bookings[booking.ID] = booking
	return nil
}

func (s *stubBookingStore) CreateWithCheckoutSession(ctx context.Context, booking *models.Booking, createSession func(*models.Booking) (string, error)) error {
	booking.ID = s.nextID
	sessionID, err := createSession(booking)
	if err != nil {
		booking.ID = 0
		return err
	}
	s.nextID++
	booking.CheckoutSessionID = &sessionID
	copied := *booking
	s.bookings[booking.ID] = &copied
	return nil
}

func (s *stubBookingStore) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (s *stubBookingStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	for _, booking := range s.bookings {
		if booking.CheckoutSessionID != nil && *booking.CheckoutSessionID == sessionID {
			copied := *booking
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *stubBookingStore) ConfirmPending(ctx context.Context, id int64) (bool, error) {
	booking, ok := s.bookings[id]
	if !ok || booking.Status != models.BookingStatusAwaitingPayment {
		return false, nil
	}
	booking.Status = models.BookingStatusConfirmed
	return true, nil
}

func (s *stubBookingStore) CancelPending(ctx context.Context, id int64) (bool, error) {
	booking, ok := s.bookings[id]
	if !ok || booking.Status != models.BookingStatusAwaitingPayment {
		return false, nil
	}
	booking.Status = models.BookingStatusCanceled
	return true, nil
}

func (s *stubBookingStore) SaveReceipt(ctx context.Context, id int64, pdf []byte, filename string) error {
	booking := s.bookings[id]
	booking.ReceiptPDF = pdf
	booking.ReceiptFilename = &filename
	return nil
}

func (s *stubBookingStore) GetReceipt(ctx context.Context, id int64) ([]byte, string, error) {
	booking, ok := s.bookings[id]
	if !ok || booking.ReceiptFilename == nil {
		return nil, "", nil
	}
	return booking.ReceiptPDF, *booking.ReceiptFilename, nil
}

func (s *stubBookingStore) SetChannelReservation(ctx context.Context, id int64, reservationID string) error {
	s.bookings[id].ChannelReservationID = &reservationID
	return nil
}

func (s *stubBookingStore) ListForAccount(ctx context.Context, userID int64, email string) ([]models.Booking, error) {
	var result []models.Booking
	for _, booking := range s.bookings {
		if booking.Status == models.BookingStatusAwaitingPayment {
			continue
		}
		if (booking.UserID != nil && *booking.UserID == userID) || booking.GuestEmail == email {
			result = append(result, *booking)
		}
	}
	return result, nil
}

type stubPropertyStore struct {
	properties map[int64]*models.Property
}

func (s *stubPropertyStore) Create(ctx context.Context, property *models.Property) error {
	return nil
}

func (s *stubPropertyStore) GetByID(ctx context.Context, id int64) (*models.Property, error) {
	property, ok := s.properties[id]
	if !ok {
		return nil, nil
	}
	return property, nil
}

func (s *stubPropertyStore) GetBySlug(ctx context.Context, slug string) (*models.Property, error) {
	for _, property := range s.properties {
		if property.Slug == slug {
			return property, nil
		}
	}
	return nil, nil
}

func (s *stubPropertyStore) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return false, nil
}

func (s *stubPropertyStore) Update(ctx context.Context, property *models.Property) error {
	return nil
}

func (s *stubPropertyStore) Delete(ctx context.Context, id int64) error {
	return nil
}

func (s *stubPropertyStore) List(ctx context.Context, filter models.PropertyFilter) ([]models.Property, error) {
	var result []models.Property
	for _, property := range s.properties {
		result = append(result, *property)
	}
	return result, nil
}

func (s *stubPropertyStore) GetSimilar(ctx context.Context, property *models.Property, limit int) ([]models.Property, error) {
	return nil, nil
}

func (s *stubPropertyStore) ListAll(ctx context.Context) ([]models.Property, error) {
	return s.List(ctx, models.PropertyFilter{})
}

type stubGateway struct {
	webhookSecret string
	sessions      int
}

func (g *stubGateway) CreateCheckoutSession(req external.CheckoutSessionRequest) (*external.CheckoutSessionResponse, error) {
	g.sessions++
	sessionID := fmt.Sprintf("cs_test_%d", g.sessions)
	return &external.CheckoutSessionResponse{
		Success:     true,
		SessionID:   sessionID,
		Reference:   req.Reference,
		Status:      "open",
		CheckoutURL: "https://pay.example.com/" + sessionID,
	}, nil
}

func (g *stubGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(signature))
}

func (g *stubGateway) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type stubPublisher struct{}

func (p *stubPublisher) Publish(subject string, data interface{}) error { return nil }

type testEnv struct {
	router   *gin.Engine
	bookings *stubBookingStore
	gateway  *stubGateway
	signer   *token.Signer
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bookings := newStubBookingStore()
	properties := &stubPropertyStore{properties: map[int64]*models.Property{
		1: {
			ID:        1,
			Title:     "Stadium View Loft",
			Slug:      "stadium-view-loft",
			PriceFrom: 10000,
			Beds:      2,
			Baths:     1,
			Capacity:  4,
		},
	}}
	gateway := &stubGateway{webhookSecret: "whsec_test"}
	signer := token.NewSigner("test-secret", time.Hour)

	bookingService := service.NewBookingService(
		bookings, properties, gateway, nil, nil, &stubPublisher{}, signer,
		service.BookingConfig{PublicBaseURL: "http://localhost:8080", Currency: "GBP"})
	propertyService := service.NewPropertyService(properties, nil)

	h := NewHandlers(&service.Services{
		Properties: propertyService,
		Bookings:   bookingService,
	}, nil)

	r := gin.New()
	api := r.Group("/api")
	{
		api.GET("/properties", h.ListProperties)
		api.GET("/properties/:slug", h.GetProperty)
		api.POST("/checkout/:propertyID", h.Checkout)
		api.GET("/payments/success", h.PaymentSuccess)
		api.GET("/payments/cancel", h.PaymentCancel)
		api.POST("/payments/notifications", h.PaymentNotifications)
	}

	return &testEnv{router: r, bookings: bookings, gateway: gateway, signer: signer}
}

func checkoutBody() []byte {
	body, _ := json.Marshal(models.CheckoutRequest{
		CheckIn:    time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
		CheckOut:   time.Now().AddDate(0, 1, 3).Format("2006-01-02"),
		Guests:     2,
		GuestName:  "Ada Brown",
		GuestEmail: "ada@example.com",
	})
	return body
}

func (e *testEnv) startCheckout(t *testing.T) models.CheckoutResponse {
	t.Helper()
	req, _ := http.NewRequest("POST", "/api/checkout/1", bytes.NewBuffer(checkoutBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCheckoutEndpoint(t *testing.T) {
	env := setupEnv(t)

	resp := env.startCheckout(t)

	assert.NotZero(t, resp.BookingID)
	assert.Contains(t, resp.PaymentURL, "https://pay.example.com/")

	booking, _ := env.bookings.GetByID(context.Background(), resp.BookingID)
	require.NotNil(t, booking)
	assert.Equal(t, models.BookingStatusAwaitingPayment, booking.Status)
}

func TestCheckoutUnknownProperty(t *testing.T) {
	env := setupEnv(t)

	req, _ := http.NewRequest("POST", "/api/checkout/999", bytes.NewBuffer(checkoutBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutValidationError(t *testing.T) {
	env := setupEnv(t)

	body, _ := json.Marshal(models.CheckoutRequest{
		CheckIn:    time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
		CheckOut:   time.Now().AddDate(0, 1, 3).Format("2006-01-02"),
		Guests:     10, // capacity is 4
		GuestName:  "Ada Brown",
		GuestEmail: "ada@example.com",
	})
	req, _ := http.NewRequest("POST", "/api/checkout/1", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "guests", resp["field"])
}

func TestPaymentSuccessEndpoint(t *testing.T) {
	env := setupEnv(t)
	checkout := env.startCheckout(t)

	tok, err := env.signer.Sign(checkout.BookingID, token.ActionSuccess)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/api/payments/success?token="+tok, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.PaymentReturnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.BookingStatusConfirmed, resp.Status)
	assert.Equal(t, checkout.BookingID, resp.BookingID)
}

func TestPaymentSuccessMissingToken(t *testing.T) {
	env := setupEnv(t)

	req, _ := http.NewRequest("GET", "/api/payments/success", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentSuccessForgedToken(t *testing.T) {
	env := setupEnv(t)
	env.startCheckout(t)

	req, _ := http.NewRequest("GET", "/api/payments/success?token=forged", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired link")
}

func TestPaymentCancelEndpoint(t *testing.T) {
	env := setupEnv(t)
	checkout := env.startCheckout(t)

	tok, err := env.signer.Sign(checkout.BookingID, token.ActionCancel)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/api/payments/cancel?token="+tok, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	booking, _ := env.bookings.GetByID(context.Background(), checkout.BookingID)
	assert.Equal(t, models.BookingStatusCanceled, booking.Status)
}

func TestWebhookEndpoint(t *testing.T) {
	env := setupEnv(t)
	checkout := env.startCheckout(t)

	booking, _ := env.bookings.GetByID(context.Background(), checkout.BookingID)
	payload, _ := json.Marshal(models.CheckoutEventPayload{
		Event:     models.CheckoutEventCompleted,
		SessionID: *booking.CheckoutSessionID,
		Reference: fmt.Sprintf("BOOK-%d", booking.ID),
	})

	req, _ := http.NewRequest("POST", "/api/payments/notifications", bytes.NewBuffer(payload))
	req.Header.Set("X-Webhook-Signature", env.gateway.sign(payload))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	updated, _ := env.bookings.GetByID(context.Background(), booking.ID)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)
}

func TestWebhookBadSignature(t *testing.T) {
	env := setupEnv(t)
	checkout := env.startCheckout(t)

	booking, _ := env.bookings.GetByID(context.Background(), checkout.BookingID)
	payload, _ := json.Marshal(models.CheckoutEventPayload{
		Event:     models.CheckoutEventCompleted,
		SessionID: *booking.CheckoutSessionID,
		Reference: fmt.Sprintf("BOOK-%d", booking.ID),
	})

	req, _ := http.NewRequest("POST", "/api/payments/notifications", bytes.NewBuffer(payload))
	req.Header.Set("X-Webhook-Signature", "deadbeef")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	updated, _ := env.bookings.GetByID(context.Background(), booking.ID)
	assert.Equal(t, models.BookingStatusAwaitingPayment, updated.Status)
}

func TestGetPropertyBySlug(t *testing.T) {
	env := setupEnv(t)

	req, _ := http.NewRequest("GET", "/api/properties/stadium-view-loft", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.PropertyDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Stadium View Loft", resp.Property.Title)
}

func TestGetPropertyNotFound(t *testing.T) {
	env := setupEnv(t)

	req, _ := http.NewRequest("GET", "/api/properties/no-such-place", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
