package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPBKDF2KDF_ClampsIterations(t *testing.T) {
	tests := []struct {
		name       string
		iterations int
		want       int
	}{
		{"below floor clamps up", 1000, 100000},
		{"zero clamps up", 0, 100000},
		{"at floor stays", 100000, 100000},
		{"above floor stays", 600000, 600000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kdf := NewPBKDF2KDF(tt.iterations)
			assert.Equal(t, tt.want, kdf.Iterations)
		})
	}
}

func TestPBKDF2KDF_DeriveKey(t *testing.T) {
	kdf := NewPBKDF2KDF(100000)
	salt := []byte("a-fixed-salt-value-for-testing!")

	key1, err := kdf.DeriveKey([]byte("correct horse battery staple"), salt, 32)
	require.NoError(t, err)
	assert.Len(t, key1, 32)

	key2, err := kdf.DeriveKey([]byte("correct horse battery staple"), salt, 32)
	require.NoError(t, err)
	assert.Equal(t, key1, key2, "derivation must be deterministic for the same password+salt")

	key3, err := kdf.DeriveKey([]byte("a different password"), salt, 32)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3)
}

func TestPBKDF2KDF_Name(t *testing.T) {
	kdf := NewPBKDF2KDF(100000)
	assert.Equal(t, "PBKDF2-HMAC-SHA256", kdf.Name())
}

func TestArgon2idKDF_DeriveKey(t *testing.T) {
	kdf := NewArgon2idKDF(DefaultArgon2idParams())
	salt := []byte("another-fixed-salt-for-testing!")

	key1, err := kdf.DeriveKey([]byte("hunter2"), salt, 32)
	require.NoError(t, err)
	assert.Len(t, key1, 32)

	key2, err := kdf.DeriveKey([]byte("hunter2"), salt, 32)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}

func TestArgon2idKDF_Name(t *testing.T) {
	kdf := NewArgon2idKDF(DefaultArgon2idParams())
	assert.Equal(t, "Argon2id", kdf.Name())
}
