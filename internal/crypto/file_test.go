package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptFile_Roundtrip(t *testing.T) {
	p := NewCryptoProvider()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"small payload", []byte("a short medical note")},
		{"large payload", bytes.Repeat([]byte("x"), 50000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var encrypted bytes.Buffer
			err := p.EncryptFile(bytes.NewReader(tt.plaintext), &encrypted, key, "key_1_0_deadbeef", []byte("aad"))
			require.NoError(t, err)

			var decrypted bytes.Buffer
			err = p.DecryptFile(&encrypted, &decrypted, key, "key_1_0_deadbeef")
			require.NoError(t, err)

			assert.Equal(t, tt.plaintext, decrypted.Bytes())
		})
	}
}

func TestEncryptFile_RejectsEmptyPayload(t *testing.T) {
	p := NewCryptoProvider()
	key := make([]byte, 32)

	var encrypted bytes.Buffer
	err := p.EncryptFile(bytes.NewReader(nil), &encrypted, key, "key_1_0_deadbeef", []byte("aad"))
	assert.Error(t, err)
}

func TestDecryptFile_WrongKeyFails(t *testing.T) {
	p := NewCryptoProvider()
	key := make([]byte, 32)
	wrongKey := make([]byte, 32)
	wrongKey[0] = 1

	var encrypted bytes.Buffer
	err := p.EncryptFile(bytes.NewReader([]byte("secret")), &encrypted, key, "key_1", nil)
	require.NoError(t, err)

	var decrypted bytes.Buffer
	err = p.DecryptFile(&encrypted, &decrypted, wrongKey, "key_1")
	assert.Error(t, err)
}

func TestDecryptFile_WrongKeyIDFails(t *testing.T) {
	p := NewCryptoProvider()
	key := make([]byte, 32)

	var encrypted bytes.Buffer
	err := p.EncryptFile(bytes.NewReader([]byte("secret")), &encrypted, key, "key_1", nil)
	require.NoError(t, err)

	var decrypted bytes.Buffer
	err = p.DecryptFile(&encrypted, &decrypted, key, "key_2")
	assert.Error(t, err)
}

func TestWriteReadLengthPrefixed_Roundtrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLengthPrefixed(&buf, []byte("hello")))

	got, err := readLengthPrefixed(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}
