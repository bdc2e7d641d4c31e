package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

var (
	errEmptyPlaintext = errors.New("crypto: plaintext must not be empty")
	errKeyIDMismatch  = errors.New("crypto: blob key id does not match decrypting key")
)

// EncryptedBlob mirrors medvault.EncryptedBlob; see the note on
// MasterKey above for why this package keeps its own shape instead of
// importing the root package.
type EncryptedBlob struct {
	Ciphertext     []byte
	Nonce          []byte
	AdditionalData []byte
	Version        string
	Algorithm      string
	KeyID          string
}

// AlgorithmInfo describes one supported AEAD algorithm.
type AlgorithmInfo struct {
	Name       string
	KeySize    int
	NonceSize  int
}

// SupportedAlgorithms lists the AEAD algorithms this provider accepts,
// keyed by name.
func SupportedAlgorithms() map[string]AlgorithmInfo {
	return map[string]AlgorithmInfo{
		"AES-256-GCM": {Name: "AES-256-GCM", KeySize: 32, NonceSize: 12},
		"AES-128-GCM": {Name: "AES-128-GCM", KeySize: 16, NonceSize: 12},
	}
}

// CryptoProvider performs AEAD encryption/decryption of record payloads
// under a DataKey, binding each blob to whatever additional authenticated
// data the caller passes (DefaultAAD gives the key id and salt
// fingerprint binding) so a ciphertext cannot be silently swapped onto a
// different key's record.
type CryptoProvider struct{}

// NewCryptoProvider constructs a CryptoProvider.
func NewCryptoProvider() *CryptoProvider {
	return &CryptoProvider{}
}

// DefaultAAD canonicalizes the key id and a salt fingerprint into
// additional authenticated data. SecuritySystem.EncryptPatientData passes
// it to Encrypt when its caller supplies no AAD; Encrypt itself uses the
// aad argument as given, and a nil aad binds no additional data.
func DefaultAAD(keyID string, salt []byte) []byte {
	h := sha256.Sum256(salt)
	return []byte(fmt.Sprintf("%s:%x", keyID, h[:8]))
}

// Encrypt seals plaintext under key (32 bytes selects AES-256-GCM, 16
// bytes selects AES-128-GCM) and binds aad into the authentication tag.
func (p *CryptoProvider) Encrypt(plaintext, key []byte, keyID string, aad []byte) (*EncryptedBlob, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("crypto: encrypt: %w", errEmptyPlaintext)
	}

	aead, algo, err := aeadFor(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: encrypt: generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, aad)

	return &EncryptedBlob{
		Ciphertext:     ciphertext,
		Nonce:          nonce,
		AdditionalData: aad,
		Version:        "1.0",
		Algorithm:      algo,
		KeyID:          keyID,
	}, nil
}

// Decrypt opens a blob produced by Encrypt, re-verifying the same aad
// that was bound at encryption time. keyID identifies the key material
// the caller is decrypting with; if blob.KeyID is set and disagrees, the
// call is refused before the ciphertext is ever touched, giving a
// DecryptionError distinguishable from an AEAD tag failure. A mismatched
// aad, nonce, or key all surface as the same authentication failure.
func (p *CryptoProvider) Decrypt(blob *EncryptedBlob, key []byte, keyID string) ([]byte, error) {
	if blob.KeyID != "" && blob.KeyID != keyID {
		return nil, fmt.Errorf("crypto: decrypt: %w", errKeyIDMismatch)
	}

	aead, _, err := aeadFor(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt: %w", err)
	}

	plaintext, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, blob.AdditionalData)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt: authentication failed: %w", err)
	}
	return plaintext, nil
}

func aeadFor(key []byte) (cipher.AEAD, string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, "", fmt.Errorf("invalid key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, "", err
	}
	var algo string
	switch len(key) {
	case 16:
		algo = "AES-128-GCM"
	case 32:
		algo = "AES-256-GCM"
	default:
		algo = fmt.Sprintf("AES-%d-GCM", len(key)*8)
	}
	return aead, algo, nil
}
