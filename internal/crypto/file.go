package crypto

import (
	"fmt"
	"io"
)

// EncryptFile reads all of r, encrypts it as a single blob, and writes
// it to w. Matches the spec's "load-fully-then-encrypt" contract —
// record payloads are bounded in size, so streaming chunked encryption
// (as the teacher's EncryptStream/DecryptStream do) is unnecessary here.
func (p *CryptoProvider) EncryptFile(r io.Reader, w io.Writer, key []byte, keyID string, aad []byte) error {
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("crypto: encrypt file: read: %w", err)
	}
	blob, err := p.Encrypt(plaintext, key, keyID, aad)
	if err != nil {
		return fmt.Errorf("crypto: encrypt file: %w", err)
	}
	if err := writeBlob(w, blob); err != nil {
		return fmt.Errorf("crypto: encrypt file: write: %w", err)
	}
	return nil
}

// DecryptFile reads a blob written by EncryptFile from r and writes the
// recovered plaintext to w. keyID identifies the key material in key,
// checked against the blob's own key id before decryption proceeds.
func (p *CryptoProvider) DecryptFile(r io.Reader, w io.Writer, key []byte, keyID string) error {
	blob, err := readBlob(r)
	if err != nil {
		return fmt.Errorf("crypto: decrypt file: read: %w", err)
	}
	plaintext, err := p.Decrypt(blob, key, keyID)
	if err != nil {
		return fmt.Errorf("crypto: decrypt file: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("crypto: decrypt file: write: %w", err)
	}
	return nil
}

func writeBlob(w io.Writer, blob *EncryptedBlob) error {
	fields := [][]byte{
		[]byte(blob.Algorithm), blob.Nonce, blob.AdditionalData, blob.Ciphertext, []byte(blob.KeyID),
	}
	for _, f := range fields {
		if err := writeLengthPrefixed(w, f); err != nil {
			return err
		}
	}
	return nil
}

func readBlob(r io.Reader) (*EncryptedBlob, error) {
	algo, err := readLengthPrefixed(r)
	if err != nil {
		return nil, err
	}
	nonce, err := readLengthPrefixed(r)
	if err != nil {
		return nil, err
	}
	aad, err := readLengthPrefixed(r)
	if err != nil {
		return nil, err
	}
	ciphertext, err := readLengthPrefixed(r)
	if err != nil {
		return nil, err
	}
	keyID, err := readLengthPrefixed(r)
	if err != nil {
		return nil, err
	}
	return &EncryptedBlob{
		Ciphertext:     ciphertext,
		Nonce:          nonce,
		AdditionalData: aad,
		Version:        "1.0",
		Algorithm:      string(algo),
		KeyID:          string(keyID),
	}, nil
}

func writeLengthPrefixed(w io.Writer, b []byte) error {
	length := uint32(len(b))
	header := []byte{byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length)}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := uint32(header[0])<<24 | uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
