package validation

import (
	"regexp"
	"strings"
	"time"

	apperrors "safeletstays/internal/errors"
	"safeletstays/internal/models"
)

const (
	// MaxStayNights ограничивает длину бронирования
	MaxStayNights = 365
	// MaxGuestsAbsolute - верхняя граница гостей независимо от объекта
	MaxGuestsAbsolute = 16

	dateLayout = "2006-01-02"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail сообщает, похожа ли строка на адрес почты
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// CheckoutInput - проверенные данные бронирования
type CheckoutInput struct {
	CheckIn  time.Time
	CheckOut time.Time
	Guests   int
}

// ValidateCheckout проверяет данные запроса до любых обращений к БД или шлюзу.
// capacity is the property's guest capacity.
func ValidateCheckout(req *models.CheckoutRequest, capacity int) (*CheckoutInput, error) {
	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		return nil, apperrors.NewValidation("check_in", "must be a date in YYYY-MM-DD format")
	}

	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		return nil, apperrors.NewValidation("check_out", "must be a date in YYYY-MM-DD format")
	}

	if !checkOut.After(checkIn) {
		return nil, apperrors.NewValidation("check_out", "must be after check-in")
	}

	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	if nights > MaxStayNights {
		return nil, apperrors.NewValidation("check_out", "stay cannot exceed one year")
	}

	if req.Guests < 1 {
		return nil, apperrors.NewValidation("guests", "must be at least 1")
	}

	maxGuests := MaxGuestsAbsolute
	if capacity > 0 && capacity < maxGuests {
		maxGuests = capacity
	}
	if req.Guests > maxGuests {
		return nil, apperrors.NewValidation("guests", "exceeds property capacity")
	}

	if strings.TrimSpace(req.GuestName) == "" {
		return nil, apperrors.NewValidation("guest_name", "is required")
	}

	if !emailPattern.MatchString(req.GuestEmail) {
		return nil, apperrors.NewValidation("guest_email", "must be a valid email address")
	}

	return &CheckoutInput{
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   req.Guests,
	}, nil
}
