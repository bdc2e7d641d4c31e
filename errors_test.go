package medvault

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKeyNotFoundError_WrapsSentinel(t *testing.T) {
	err := NewKeyNotFoundError("decrypt_data", "patient_42")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.ErrorIs(t, err, ErrCrypto)
	assert.Contains(t, err.Error(), "patient_42")
}

func TestNewAccessDeniedError_WrapsSentinel(t *testing.T) {
	err := NewAccessDeniedError("decrypt_data", "not_owner")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(NewAccessDeniedError("op", "not_owner")))
	assert.True(t, IsAuthError(ErrSessionExpired))
	assert.True(t, IsAuthError(ErrSessionRevoked))
	assert.False(t, IsAuthError(NewKeyNotFoundError("op", "id")))
	assert.False(t, IsAuthError(errors.New("unrelated")))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewKeyNotFoundError("op", "id")))
	assert.False(t, IsValidationError(NewAccessDeniedError("op", "detail")))
}

func TestIsOperationError(t *testing.T) {
	assert.True(t, IsOperationError(NewEncryptionError("op", "detail")))
	assert.True(t, IsOperationError(NewDecryptionError("op", "detail")))
	assert.True(t, IsOperationError(NewKeyRotationError("op", "detail")))
	assert.False(t, IsOperationError(NewKeyNotFoundError("op", "id")))
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, IsConfigurationError(ErrInvalidConfiguration))
	assert.True(t, IsConfigurationError(ErrUnsupportedAlgorithm))
	assert.False(t, IsConfigurationError(ErrAccessDenied))
}

func TestCryptoError_Unwrap(t *testing.T) {
	err := NewEncryptionError("encrypt_data", "nonce generation failed")
	var ce *CryptoError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "encrypt_data", ce.Op)
}
