package medvault

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/silverleaf/medvault/internal/access"
	"github.com/silverleaf/medvault/internal/audit"
	"github.com/silverleaf/medvault/internal/config"
	ecrypto "github.com/silverleaf/medvault/internal/crypto"
	"github.com/silverleaf/medvault/internal/monitoring"
	"github.com/silverleaf/medvault/internal/security"
)

// Stats is a point-in-time snapshot of SecuritySystem's counters,
// recovered from the original's _stats dict and get_cache_stats.
type Stats struct {
	Encryptions     int64
	Decryptions     int64
	SessionsCreated int64
	Errors          int64
	CachedPatients  int
}

// SecuritySystem is the orchestrator: it wires KeyManager, CryptoProvider,
// AccessManager, and AuditLogger together behind doctor/patient lifecycle
// and data-path operations. It is constructed explicitly by the caller —
// there is no global singleton anywhere in this package.
type SecuritySystem struct {
	keys     *ecrypto.KeyManager
	provider *ecrypto.CryptoProvider
	access   *access.Manager
	audit    *audit.Logger
	log      *monitoring.StructuredLogger
	store    Persistence
	cfg      *config.Config

	mu           sync.RWMutex
	patientOwner map[int64]int64 // patientID -> doctorID, set at setup_patient

	encryptions     atomic.Int64
	decryptions     atomic.Int64
	sessionsCreated atomic.Int64
	errorCount      atomic.Int64
}

// SecuritySystemConfig bundles everything needed to construct a
// SecuritySystem, mirroring the teacher's explicit-constructor pattern
// (NewCrypto(options...)) rather than a global default instance.
type SecuritySystemConfig struct {
	Config      *config.Config
	Store       Persistence
	AuditSink   audit.DurableSink
	KDF         ecrypto.KDF
	Logger      *monitoring.StructuredLogger
	NowFunc     func() time.Time
}

// NewSecuritySystem constructs a SecuritySystem from cfg, wiring the
// KeyManager, CryptoProvider, AccessManager, and AuditLogger.
func NewSecuritySystem(sc SecuritySystemConfig) *SecuritySystem {
	cfg := sc.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := sc.Logger
	if logger == nil {
		logger = monitoring.NewProductionLogger("security_system")
	}

	kdf := sc.KDF
	if kdf == nil {
		kdf = ecrypto.NewPBKDF2KDF(cfg.PBKDF2Iterations)
	}

	km := ecrypto.NewKeyManager(ecrypto.KeyManagerConfig{
		KDF:       kdf,
		KeyLength: cfg.PBKDF2KeyLength,
		NowFunc:   sc.NowFunc,
	})

	am := access.NewManager(access.ManagerConfig{
		SessionExpiry: time.Duration(cfg.SessionExpiryHours) * time.Hour,
		MaxLogEntries: cfg.MaxLogEntries,
		NowFunc:       sc.NowFunc,
	})

	sink := sc.AuditSink
	if sink == nil && sc.Store != nil {
		sink = persistenceSink{store: sc.Store}
	}

	al := audit.NewLogger(audit.LoggerConfig{
		MaxEntries: cfg.MaxLogEntries,
		Sink:       sink,
		NowFunc:    sc.NowFunc,
	})

	return &SecuritySystem{
		keys:         km,
		provider:     ecrypto.NewCryptoProvider(),
		access:       am,
		audit:        al,
		log:          logger,
		store:        sc.Store,
		cfg:          cfg,
		patientOwner: make(map[int64]int64),
	}
}

// persistenceSink adapts a Persistence port to audit.DurableSink, so a
// SecuritySystem given a Store but no AuditSink writes its audit trail
// through Persistence.AppendAudit.
type persistenceSink struct {
	store Persistence
}

func (p persistenceSink) AppendAudit(eventJSON []byte) error {
	return p.store.AppendAudit(context.Background(), eventJSON)
}

// SetupDoctor derives and caches a doctor's master key from a password,
// generating a fresh salt if one isn't supplied (first-time setup) and
// persisting it via the Persistence port.
func (s *SecuritySystem) SetupDoctor(ctx context.Context, doctorID int64, password []byte, salt []byte) (*ecrypto.MasterKey, error) {
	if salt == nil {
		generated := make([]byte, 32)
		if err := fillRandom(generated); err != nil {
			return nil, s.fail(ctx, doctorID, 0, "setup_doctor", fmt.Errorf("medvault: setup doctor: %w", err))
		}
		salt = generated
	}

	master, err := s.keys.DeriveMasterKey(password, salt)
	if err != nil {
		return nil, s.fail(ctx, doctorID, 0, "setup_doctor", fmt.Errorf("medvault: setup doctor: %w", err))
	}

	if s.store != nil {
		if err := s.store.SaveDoctorSalt(ctx, doctorID, salt); err != nil {
			return nil, s.fail(ctx, doctorID, 0, "setup_doctor", fmt.Errorf("medvault: setup doctor: persist salt: %w", err))
		}
	}

	s.keys.CacheMasterKey(doctorID, master)
	s.succeed(ctx, doctorID, 0, "setup_doctor", map[string]string{"has_salt": boolStr(salt != nil)})
	return master, nil
}

// LoginDoctor authenticates a doctor by re-deriving their master key from
// the supplied password and a salt already on record, then caching the
// key on success. A wrong password returns (false, nil), never a silent
// fallback to any other auth path.
func (s *SecuritySystem) LoginDoctor(ctx context.Context, doctorID int64, password []byte) (bool, error) {
	if s.store == nil {
		return false, fmt.Errorf("medvault: login doctor: no persistence configured")
	}
	salt, err := s.store.LoadDoctorSalt(ctx, doctorID)
	if err != nil {
		s.fail(ctx, doctorID, 0, "login", fmt.Errorf("medvault: login doctor: %w", err))
		return false, err
	}

	master, err := s.keys.DeriveMasterKey(password, salt)
	if err != nil {
		s.fail(ctx, doctorID, 0, "login", fmt.Errorf("medvault: login doctor: %w", err))
		return false, err
	}

	if cached, ok := s.keys.CachedMasterKey(doctorID); ok && !security.ConstantTimeEq(master.Secret, cached.Secret) {
		security.ZeroBytes(master.Secret)
		s.fail(ctx, doctorID, 0, "login", NewAccessDeniedError("login", "invalid_credentials"))
		return false, nil
	}

	s.keys.CacheMasterKey(doctorID, master)
	s.succeed(ctx, doctorID, 0, "login", nil)
	return true, nil
}

// LogoutDoctor evicts the cached master key and revokes every session
// the doctor currently holds.
func (s *SecuritySystem) LogoutDoctor(ctx context.Context, doctorID int64) bool {
	if _, ok := s.keys.CachedMasterKey(doctorID); !ok {
		return false
	}
	s.keys.EvictMasterKey(doctorID)
	s.access.RevokeAllForDoctor(doctorID)
	s.succeed(ctx, doctorID, 0, "logout", nil)
	return true
}

// SetupPatient generates a fresh DataKey for a patient, wraps it under
// the doctor's cached master key, persists the wrapped key, and records
// doctorID as the patient's owner.
func (s *SecuritySystem) SetupPatient(ctx context.Context, doctorID, patientID int64) (*ecrypto.DataKey, error) {
	master, ok := s.masterKeyFor(doctorID)
	if !ok {
		return nil, s.fail(ctx, doctorID, patientID, "setup_patient", NewAccessDeniedError("setup_patient", "doctor_not_authenticated"))
	}

	dk, err := s.keys.GenerateDataKey(patientID)
	if err != nil {
		return nil, s.fail(ctx, doctorID, patientID, "setup_patient", fmt.Errorf("medvault: setup patient: %w", err))
	}

	if s.store != nil {
		wrapped, err := s.keys.WrapDataKey(master, dk)
		if err != nil {
			return nil, s.fail(ctx, doctorID, patientID, "setup_patient", fmt.Errorf("medvault: setup patient: %w", err))
		}
		if err := s.store.SaveWrappedDataKey(ctx, patientID, wrapped, dk.Salt); err != nil {
			return nil, s.fail(ctx, doctorID, patientID, "setup_patient", fmt.Errorf("medvault: setup patient: persist key: %w", err))
		}
	}

	s.mu.Lock()
	s.patientOwner[patientID] = doctorID
	s.mu.Unlock()

	s.succeed(ctx, doctorID, patientID, "setup_patient", map[string]string{"key_id": dk.KeyID})
	return dk, nil
}

// RotatePatientKey rotates a patient's DataKey; the prior key remains in
// history so previously encrypted records stay decryptable.
func (s *SecuritySystem) RotatePatientKey(ctx context.Context, doctorID, patientID int64) (*ecrypto.DataKey, error) {
	master, ok := s.masterKeyFor(doctorID)
	if !ok {
		return nil, s.fail(ctx, doctorID, patientID, "rotate_key", NewAccessDeniedError("rotate_key", "doctor_not_authenticated"))
	}

	newKey, err := s.keys.RotateDataKey(patientID)
	if err != nil {
		return nil, s.fail(ctx, doctorID, patientID, "rotate_key", fmt.Errorf("medvault: rotate key: %w", err))
	}

	if s.store != nil {
		wrapped, err := s.keys.WrapDataKey(master, newKey)
		if err != nil {
			return nil, s.fail(ctx, doctorID, patientID, "rotate_key", fmt.Errorf("medvault: rotate key: %w", err))
		}
		if err := s.store.SaveWrappedDataKey(ctx, patientID, wrapped, newKey.Salt); err != nil {
			return nil, s.fail(ctx, doctorID, patientID, "rotate_key", fmt.Errorf("medvault: rotate key: persist key: %w", err))
		}
	}

	s.succeed(ctx, doctorID, patientID, "rotate_key", map[string]string{"new_key_id": newKey.KeyID})
	return newKey, nil
}

// EncryptPatientData encrypts plaintext under the patient's current
// DataKey, generating one via SetupPatient if the patient is new to the
// system, exactly as the original auto-provisions on first write. For a
// patient that already has a key, a doctor who neither owns the patient
// nor holds a valid access session is refused.
func (s *SecuritySystem) EncryptPatientData(ctx context.Context, doctorID, patientID int64, plaintext, aad []byte) (*EncryptedBlob, error) {
	dk, ok := s.keys.GetCurrentKey(patientID)
	if ok && !s.checkDoctorAccess(doctorID, patientID) {
		return nil, s.fail(ctx, doctorID, patientID, "encrypt_data", NewAccessDeniedError("encrypt_data", "not_owner"))
	}
	if !ok {
		var err error
		dk, err = s.SetupPatient(ctx, doctorID, patientID)
		if err != nil {
			return nil, err
		}
	}

	if aad == nil {
		aad = ecrypto.DefaultAAD(dk.KeyID, dk.Salt)
	}

	blob, err := s.provider.Encrypt(plaintext, dk.Secret, dk.KeyID, aad)
	if err != nil {
		return nil, s.fail(ctx, doctorID, patientID, "encrypt_data", NewEncryptionError("encrypt_data", err.Error()))
	}

	s.encryptions.Add(1)
	s.succeed(ctx, doctorID, patientID, "encrypt_data", map[string]string{"data_length": itoa(len(plaintext))})

	return &EncryptedBlob{
		Ciphertext:     blob.Ciphertext,
		Nonce:          blob.Nonce,
		AdditionalData: blob.AdditionalData,
		Version:        blob.Version,
		Algorithm:      blob.Algorithm,
		KeyID:          blob.KeyID,
	}, nil
}

// DecryptPatientData decrypts a blob on behalf of doctorID, enforcing
// that the doctor owns (or has a valid access session to) patientID
// before touching key material.
func (s *SecuritySystem) DecryptPatientData(ctx context.Context, doctorID, patientID int64, blob *EncryptedBlob) ([]byte, error) {
	if !s.checkDoctorAccess(doctorID, patientID) {
		return nil, s.fail(ctx, doctorID, patientID, "decrypt_data", NewAccessDeniedError("decrypt_data", "not_owner"))
	}

	dk, ok := s.keys.FindKey(patientID, blob.KeyID)
	if !ok {
		var err error
		dk, err = s.loadAndUnwrapKey(ctx, patientID, blob.KeyID)
		if err != nil {
			return nil, s.fail(ctx, doctorID, patientID, "decrypt_data", NewKeyNotFoundError("decrypt_data", blob.KeyID))
		}
	}

	plaintext, err := s.provider.Decrypt(&ecrypto.EncryptedBlob{
		Ciphertext:     blob.Ciphertext,
		Nonce:          blob.Nonce,
		AdditionalData: blob.AdditionalData,
		Version:        blob.Version,
		Algorithm:      blob.Algorithm,
		KeyID:          blob.KeyID,
	}, dk.Secret, dk.KeyID)
	if err != nil {
		return nil, s.fail(ctx, doctorID, patientID, "decrypt_data", NewDecryptionError("decrypt_data", err.Error()))
	}

	s.decryptions.Add(1)
	s.succeed(ctx, doctorID, patientID, "decrypt_data", map[string]string{"data_length": itoa(len(plaintext))})
	return plaintext, nil
}

// checkDoctorAccess reports whether doctorID may read patientID's data:
// either doctorID is the recorded owner (set at SetupPatient) or holds a
// currently valid access session for the patient.
func (s *SecuritySystem) checkDoctorAccess(doctorID, patientID int64) bool {
	s.mu.RLock()
	owner, ok := s.patientOwner[patientID]
	s.mu.RUnlock()
	if ok && owner == doctorID {
		return true
	}

	for _, sess := range s.access.ActiveSessions(patientID) {
		if sess.DoctorID == doctorID {
			return true
		}
	}
	return false
}

func (s *SecuritySystem) masterKeyFor(doctorID int64) (*ecrypto.MasterKey, bool) {
	// KeyManager does not expose a direct cache getter for master keys
	// beyond CacheMasterKey/EvictMasterKey, so SecuritySystem tracks
	// liveness through the same map via a dedicated accessor.
	return s.keys.CachedMasterKey(doctorID)
}

// loadAndUnwrapKey recovers a patient's DataKey from Persistence on a
// KeyManager cache miss (process restart, or an evicted cache), making at
// most one LoadWrappedDataKey + UnwrapDataKey attempt. The recovered key
// is cached as current so a repeated decrypt never re-hits Persistence.
func (s *SecuritySystem) loadAndUnwrapKey(ctx context.Context, patientID int64, keyID string) (*ecrypto.DataKey, error) {
	if s.store == nil {
		return nil, fmt.Errorf("medvault: no persistence configured")
	}

	s.mu.RLock()
	owner, ok := s.patientOwner[patientID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("medvault: unknown owner for patient")
	}

	master, ok := s.masterKeyFor(owner)
	if !ok {
		return nil, fmt.Errorf("medvault: owning doctor not authenticated")
	}

	wrapped, _, err := s.store.LoadWrappedDataKey(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("medvault: load wrapped data key: %w", err)
	}

	dk, err := s.keys.UnwrapDataKey(master, wrapped, keyID)
	if err != nil {
		return nil, fmt.Errorf("medvault: unwrap data key: %w", err)
	}

	s.keys.SetCurrentKey(patientID, dk)
	return dk, nil
}

// GetStats returns the process-wide counters and current cache sizes,
// recovered from the original's _stats dict and get_cache_stats.
func (s *SecuritySystem) GetStats() Stats {
	s.mu.RLock()
	cached := len(s.patientOwner)
	s.mu.RUnlock()
	return Stats{
		Encryptions:     s.encryptions.Load(),
		Decryptions:     s.decryptions.Load(),
		SessionsCreated: s.sessionsCreated.Load(),
		Errors:          s.errorCount.Load(),
		CachedPatients:  cached,
	}
}

// AccessManager exposes the underlying session manager for callers that
// need to create/validate/revoke sessions directly (the Facade does).
func (s *SecuritySystem) AccessManager() *access.Manager {
	return s.access
}

// AuditLogger exposes the underlying audit log for callers that need to
// query or export it directly.
func (s *SecuritySystem) AuditLogger() *audit.Logger {
	return s.audit
}

func (s *SecuritySystem) succeed(ctx context.Context, doctorID, patientID int64, action string, details map[string]string) {
	s.audit.Append(auditEventFor(doctorID, patientID, action, true, details))
	s.log.LogSecurityEvent(ctx, action, "low", map[string]any{"doctor_id": doctorID, "patient_id": patientID, "success": true})
}

// fail logs the failure to the audit log with a structured code only
// (never the raw error text, per the design note banning internal error
// leakage into audit Details) and returns err unchanged for the caller.
func (s *SecuritySystem) fail(ctx context.Context, doctorID, patientID int64, action string, err error) error {
	s.errorCount.Add(1)
	s.audit.Append(auditEventFor(doctorID, patientID, action, false, map[string]string{"code": classify(err)}))
	s.log.LogSecurityEvent(ctx, action, "medium", map[string]any{"doctor_id": doctorID, "patient_id": patientID, "success": false})
	return err
}

func auditEventFor(doctorID, patientID int64, action string, success bool, details map[string]string) audit.Event {
	return audit.Event{
		DoctorID:  doctorID,
		PatientID: patientID,
		Action:    action,
		Success:   success,
		Details:   details,
	}
}

func classify(err error) string {
	switch {
	case IsAuthError(err):
		return "access_denied"
	case IsValidationError(err):
		return "key_not_found"
	case IsOperationError(err):
		return "operation_failed"
	case IsConfigurationError(err):
		return "invalid_configuration"
	default:
		return "crypto_error"
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

func fillRandom(b []byte) error {
	return security.FillSecureRandom(b)
}
