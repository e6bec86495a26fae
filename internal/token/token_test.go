package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "safeletstays/internal/errors"
)

func TestSignUnsignRoundTrip(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	tok, err := signer.Sign(42, ActionSuccess)
	assert.NoError(t, err)
	assert.NotEmpty(t, tok)

	id, err := signer.Unsign(tok, ActionSuccess)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestUnsignRejectsTamperedToken(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	tok, err := signer.Sign(42, ActionSuccess)
	assert.NoError(t, err)

	tampered := tok[:len(tok)-2] + "xx"
	_, err = signer.Unsign(tampered, ActionSuccess)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestUnsignRejectsWrongAction(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	tok, err := signer.Sign(42, ActionSuccess)
	assert.NoError(t, err)

	// A success token must not authorize a cancel callback
	_, err = signer.Unsign(tok, ActionCancel)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestUnsignRejectsForeignSecret(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	forger := NewSigner("other-secret", time.Hour)

	tok, err := forger.Sign(42, ActionSuccess)
	assert.NoError(t, err)

	_, err = signer.Unsign(tok, ActionSuccess)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestUnsignRejectsGarbage(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	_, err := signer.Unsign("not-a-token", ActionSuccess)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
