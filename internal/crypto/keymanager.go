package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/silverleaf/medvault/internal/security"
)

var errEmptyPassword = errors.New("crypto: password must not be empty")

// MasterKey mirrors the root package's medvault.MasterKey shape without
// importing it, so this package stays free of an import cycle; the root
// package's SecuritySystem hands this type to its callers directly.
type MasterKey struct {
	Secret     []byte
	Salt       []byte
	Algorithm  string
	Iterations int
	CreatedAt  time.Time
}

// DataKey mirrors medvault.DataKey.
type DataKey struct {
	KeyID     string
	Secret    []byte
	Salt      []byte
	Algorithm string
	CreatedAt time.Time
	RotatedAt *time.Time
}

// KeyManagerConfig configures derivation parameters and the DataKey cache.
type KeyManagerConfig struct {
	KDF        KDF
	KeyLength  int
	NowFunc    func() time.Time
}

// KeyManager performs password-derived master-key management and
// DEK generate/wrap/unwrap/rotate, as spec.md §4.1. All cache state sits
// behind one RWMutex; readers (GetCurrentKey, history lookups) take a
// read lock, writers (rotation, generation) take a write lock, and the
// KDF itself is always invoked with no lock held.
type KeyManager struct {
	kdf       KDF
	keyLength int
	now       func() time.Time

	mu          sync.RWMutex
	masterKeys  map[int64]*MasterKey
	dataKeys    map[int64]*DataKey
	history     map[int64][]*DataKey
}

// NewKeyManager constructs a KeyManager. A nil KDF defaults to PBKDF2
// with the authoritative 600,000-iteration count.
func NewKeyManager(cfg KeyManagerConfig) *KeyManager {
	kdf := cfg.KDF
	if kdf == nil {
		kdf = NewPBKDF2KDF(600000)
	}
	keyLen := cfg.KeyLength
	if keyLen < 32 {
		keyLen = 32
	}
	now := cfg.NowFunc
	if now == nil {
		now = time.Now
	}
	return &KeyManager{
		kdf:        kdf,
		keyLength:  keyLen,
		now:        now,
		masterKeys: make(map[int64]*MasterKey),
		dataKeys:   make(map[int64]*DataKey),
		history:    make(map[int64][]*DataKey),
	}
}

// DeriveMasterKey derives a doctor's MasterKey from their password and a
// salt (freshly generated on setup, loaded from Persistence on login).
// It never holds the component lock while calling the KDF.
func (m *KeyManager) DeriveMasterKey(password, salt []byte) (*MasterKey, error) {
	if len(password) == 0 {
		return nil, errEmptyPassword
	}
	secret, err := m.kdf.DeriveKey(password, salt, m.keyLength)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive master key: %w", err)
	}
	iterations := 0
	if p, ok := m.kdf.(*PBKDF2KDF); ok {
		iterations = p.Iterations
	}
	return &MasterKey{
		Secret:     secret,
		Salt:       salt,
		Algorithm:  m.kdf.Name(),
		Iterations: iterations,
		CreatedAt:  m.now(),
	}, nil
}

// VerifyPassword re-derives the master key from password+salt and
// constant-time compares it against the expected secret, the same
// re-derive-and-compare shape as the original's verify_password.
func (m *KeyManager) VerifyPassword(password, salt, expectedSecret []byte) (bool, error) {
	candidate, err := m.DeriveMasterKey(password, salt)
	if err != nil {
		return false, err
	}
	defer security.ZeroBytes(candidate.Secret)
	return security.ConstantTimeEq(candidate.Secret, expectedSecret), nil
}

// CacheMasterKey stores a doctor's derived master key for reuse within a
// login session. Callers are responsible for evicting it on logout.
func (m *KeyManager) CacheMasterKey(doctorID int64, key *MasterKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masterKeys[doctorID] = key
}

// CachedMasterKey returns a doctor's cached master key, if present.
func (m *KeyManager) CachedMasterKey(doctorID int64) (*MasterKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.masterKeys[doctorID]
	return k, ok
}

// EvictMasterKey zeroes and removes a cached master key.
func (m *KeyManager) EvictMasterKey(doctorID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.masterKeys[doctorID]; ok {
		security.ZeroBytes(k.Secret)
		delete(m.masterKeys, doctorID)
	}
}

// GenerateDataKey creates a fresh per-patient DataKey, formatted
// key_<patient_id>_<unix_seconds>_<8-byte-hex>, and caches it.
func (m *KeyManager) GenerateDataKey(patientID int64) (*DataKey, error) {
	secret := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("crypto: generate data key: %w", err)
	}
	salt := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: generate data key salt: %w", err)
	}
	suffix := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, suffix); err != nil {
		return nil, fmt.Errorf("crypto: generate data key id: %w", err)
	}
	now := m.now()
	keyID := fmt.Sprintf("key_%d_%d_%s", patientID, now.Unix(), hexEncode(suffix))

	dk := &DataKey{
		KeyID:     keyID,
		Secret:    secret,
		Salt:      salt,
		Algorithm: "AES-256-GCM",
		CreatedAt: now,
	}

	m.mu.Lock()
	m.dataKeys[patientID] = dk
	m.history[patientID] = append(m.history[patientID], dk)
	m.mu.Unlock()

	return dk, nil
}

// GetCurrentKey returns the cached current DataKey for a patient, if any.
func (m *KeyManager) GetCurrentKey(patientID int64) (*DataKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dk, ok := m.dataKeys[patientID]
	return dk, ok
}

// SetCurrentKey installs a DataKey as current for a patient without
// appending to history; used when a key is unwrapped from Persistence
// on a cache miss rather than freshly generated.
func (m *KeyManager) SetCurrentKey(patientID int64, dk *DataKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataKeys[patientID] = dk
}

// FindKey returns the DataKey matching keyID for a patient, searching the
// current key and then its full history, so a blob encrypted under any
// prior key remains decryptable after rotation (invariant: old ciphertexts
// stay valid forever).
func (m *KeyManager) FindKey(patientID int64, keyID string) (*DataKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if dk, ok := m.dataKeys[patientID]; ok && dk.KeyID == keyID {
		return dk, true
	}
	for _, dk := range m.history[patientID] {
		if dk.KeyID == keyID {
			return dk, true
		}
	}
	return nil, false
}

// EvictDataKeyCache removes patientID's cached current key and rotation
// history, simulating a cold cache (a process restart, or a plain cache
// eviction) so a later lookup must fall back to Persistence.
func (m *KeyManager) EvictDataKeyCache(patientID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dataKeys, patientID)
	delete(m.history, patientID)
}

// KeyHistory returns every DataKey ever issued for a patient, oldest first.
func (m *KeyManager) KeyHistory(patientID int64) []*DataKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hist := m.history[patientID]
	out := make([]*DataKey, len(hist))
	copy(out, hist)
	return out
}

// RotateDataKey replaces a patient's current DataKey with a freshly
// generated one, atomically with respect to other callers: the
// lookup-mark-generate-insert sequence runs under one write path so two
// concurrent rotations for the same patient never interleave.
func (m *KeyManager) RotateDataKey(patientID int64) (*DataKey, error) {
	m.mu.Lock()
	current, ok := m.dataKeys[patientID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("crypto: rotate data key: no current key for patient")
	}
	rotatedAt := m.now()
	current.RotatedAt = &rotatedAt
	m.mu.Unlock()

	return m.GenerateDataKey(patientID)
}

// WrapDataKey encrypts a DataKey's secret+salt+id under a MasterKey,
// producing nonce||ciphertext suitable for Persistence storage. The
// plaintext layout (key_bytes || salt || key_id) matches the original
// key-wrapping format so length validation on unwrap can catch
// corruption early.
func (m *KeyManager) WrapDataKey(master *MasterKey, dk *DataKey) ([]byte, error) {
	aead, err := newAEAD(master.Secret)
	if err != nil {
		return nil, fmt.Errorf("crypto: wrap data key: %w", err)
	}
	plaintext := make([]byte, 0, len(dk.Secret)+len(dk.Salt)+len(dk.KeyID))
	plaintext = append(plaintext, dk.Secret...)
	plaintext = append(plaintext, dk.Salt...)
	plaintext = append(plaintext, []byte(dk.KeyID)...)

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: wrap data key nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return sealed, nil
}

// UnwrapDataKey reverses WrapDataKey, validating the decrypted plaintext
// is at least long enough to contain a 32-byte secret and 32-byte salt.
func (m *KeyManager) UnwrapDataKey(master *MasterKey, wrapped []byte, keyID string) (*DataKey, error) {
	aead, err := newAEAD(master.Secret)
	if err != nil {
		return nil, fmt.Errorf("crypto: unwrap data key: %w", err)
	}
	nonceSize := aead.NonceSize()
	if len(wrapped) < nonceSize {
		return nil, fmt.Errorf("crypto: unwrap data key: ciphertext too short")
	}
	nonce, ciphertext := wrapped[:nonceSize], wrapped[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: unwrap data key: %w", err)
	}
	if len(plaintext) < 64 {
		return nil, fmt.Errorf("crypto: unwrap data key: plaintext too short")
	}
	secret := append([]byte(nil), plaintext[:32]...)
	salt := append([]byte(nil), plaintext[32:64]...)
	return &DataKey{
		KeyID:     keyID,
		Secret:    secret,
		Salt:      salt,
		Algorithm: "AES-256-GCM",
		CreatedAt: m.now(),
	}, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}
