package token

import (
	"crypto/sha256"
	"time"

	"github.com/gorilla/securecookie"

	apperrors "safeletstays/internal/errors"
)

// Callback actions a token can authorize
const (
	ActionSuccess = "success"
	ActionCancel  = "cancel"
)

const tokenName = "booking-callback"

// Signer issues and verifies tamper-evident tokens that stand in for raw
// booking ids in externally reachable callback URLs.
type Signer struct {
	sc *securecookie.SecureCookie
}

type callbackClaims struct {
	BookingID int64
	Action    string
}

func NewSigner(secret string, maxAge time.Duration) *Signer {
	// Derive a fixed-length hash key from the configured secret
	hashKey := sha256.Sum256([]byte(secret))

	sc := securecookie.New(hashKey[:], nil)
	sc.MaxAge(int(maxAge.Seconds()))

	return &Signer{sc: sc}
}

// Sign produces an opaque token binding the booking id to one callback action.
func (s *Signer) Sign(bookingID int64, action string) (string, error) {
	return s.sc.Encode(tokenName, callbackClaims{BookingID: bookingID, Action: action})
}

// Unsign verifies the token and returns the booking id. Forged, expired and
// cross-action tokens all fail with ErrInvalidToken so the caller cannot tell
// them apart.
func (s *Signer) Unsign(tok, action string) (int64, error) {
	var claims callbackClaims
	if err := s.sc.Decode(tokenName, tok, &claims); err != nil {
		return 0, apperrors.ErrInvalidToken
	}
	if claims.Action != action {
		return 0, apperrors.ErrInvalidToken
	}
	return claims.BookingID, nil
}
