package errors

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")
var ErrNotFound = errors.New("record not found")
var ErrInvalidToken = errors.New("callback token is invalid or expired")
var ErrSessionMismatch = errors.New("checkout session does not match booking")
var ErrNoCheckoutSession = errors.New("booking has no checkout session")
var ErrPaymentGateway = errors.New("payment gateway request failed")

// ValidationError reports a rejected input field. Validation runs before any
// state mutation or external call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
