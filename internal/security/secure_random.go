package security

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
)

// SecureRandomGenerator provides cryptographically secure random number generation
type SecureRandomGenerator struct {
	reader io.Reader
	mutex  sync.Mutex
}

// NewSecureRandomGenerator creates a new secure random generator
func NewSecureRandomGenerator() *SecureRandomGenerator {
	return &SecureRandomGenerator{
		reader: rand.Reader,
	}
}

// Read generates secure random bytes
func (srg *SecureRandomGenerator) Read(b []byte) (int, error) {
	srg.mutex.Lock()
	defer srg.mutex.Unlock()

	n, err := srg.reader.Read(b)
	if err != nil {
		return n, fmt.Errorf("secure random generation failed: %w", err)
	}

	return n, nil
}

// Generate generates a slice of secure random bytes
func (srg *SecureRandomGenerator) Generate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size: %d", size)
	}

	data := make([]byte, size)
	_, err := srg.Read(data)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// GenerateKey generates a cryptographic key of specified size
func (srg *SecureRandomGenerator) GenerateKey(keySize int) ([]byte, error) {
	validKeySizes := map[int]bool{
		16: true, // AES-128
		24: true, // AES-192
		32: true, // AES-256
		64: true, // HMAC-sized
	}

	if !validKeySizes[keySize] && keySize < 16 {
		return nil, fmt.Errorf("insecure key size: %d bytes (minimum 16 bytes)", keySize)
	}

	return srg.Generate(keySize)
}

// GenerateNonce generates a cryptographically secure nonce
func (srg *SecureRandomGenerator) GenerateNonce(size int) ([]byte, error) {
	if size < 12 {
		return nil, fmt.Errorf("nonce size too small: %d bytes (minimum 12 bytes)", size)
	}

	return srg.Generate(size)
}

// GenerateSalt generates a cryptographically secure salt
func (srg *SecureRandomGenerator) GenerateSalt(size int) ([]byte, error) {
	if size < 16 {
		return nil, fmt.Errorf("salt size too small: %d bytes (minimum 16 bytes)", size)
	}

	return srg.Generate(size)
}

// Global secure random generator
var globalSecureRandom = NewSecureRandomGenerator()

// FillSecureRandom fills a byte slice with cryptographically secure random data
func FillSecureRandom(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	_, err := globalSecureRandom.Read(data)
	return err
}

// GenerateSecureRandom generates cryptographically secure random bytes
func GenerateSecureRandom(size int) ([]byte, error) {
	return globalSecureRandom.Generate(size)
}

// GenerateSecureKey generates a cryptographic key
func GenerateSecureKey(keySize int) ([]byte, error) {
	return globalSecureRandom.GenerateKey(keySize)
}

// GenerateSecureNonce generates a cryptographically secure nonce
func GenerateSecureNonce(size int) ([]byte, error) {
	return globalSecureRandom.GenerateNonce(size)
}

// GenerateSecureSalt generates a cryptographically secure salt
func GenerateSecureSalt(size int) ([]byte, error) {
	return globalSecureRandom.GenerateSalt(size)
}
