package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "safeletstays/internal/errors"
	"safeletstays/internal/models"
)

func validRequest() *models.CheckoutRequest {
	return &models.CheckoutRequest{
		CheckIn:    "2025-06-01",
		CheckOut:   "2025-06-04",
		Guests:     2,
		GuestName:  "Jordan Smith",
		GuestEmail: "jordan@example.com",
	}
}

func TestValidateCheckoutOK(t *testing.T) {
	input, err := ValidateCheckout(validRequest(), 4)
	assert.NoError(t, err)
	assert.Equal(t, 2, input.Guests)
	assert.Equal(t, "2025-06-01", input.CheckIn.Format("2006-01-02"))
}

func TestValidateCheckoutBadDate(t *testing.T) {
	req := validRequest()
	req.CheckIn = "01/06/2025"

	_, err := ValidateCheckout(req, 4)
	ve, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, "check_in", ve.Field)
}

func TestValidateCheckoutCheckOutNotAfterCheckIn(t *testing.T) {
	req := validRequest()
	req.CheckOut = req.CheckIn

	_, err := ValidateCheckout(req, 4)
	ve, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, "check_out", ve.Field)
}

func TestValidateCheckoutTooLong(t *testing.T) {
	req := validRequest()
	req.CheckIn = "2025-01-01"
	req.CheckOut = "2026-06-01"

	_, err := ValidateCheckout(req, 4)
	_, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
}

func TestValidateCheckoutGuestsOverCapacity(t *testing.T) {
	req := validRequest()
	req.Guests = 5

	_, err := ValidateCheckout(req, 4)
	ve, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, "guests", ve.Field)
}

func TestValidateCheckoutAbsoluteGuestCap(t *testing.T) {
	req := validRequest()
	req.Guests = 17

	// огромная capacity не отменяет абсолютный лимит
	_, err := ValidateCheckout(req, 100)
	ve, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, "guests", ve.Field)
}

func TestValidateCheckoutMissingName(t *testing.T) {
	req := validRequest()
	req.GuestName = "   "

	_, err := ValidateCheckout(req, 4)
	ve, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, "guest_name", ve.Field)
}

func TestValidateCheckoutBadEmail(t *testing.T) {
	req := validRequest()
	req.GuestEmail = "not-an-email"

	_, err := ValidateCheckout(req, 4)
	ve, ok := apperrors.AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, "guest_email", ve.Field)
}
