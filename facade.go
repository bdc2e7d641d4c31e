package medvault

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/silverleaf/medvault/internal/access"
)

// EncryptionResult is the outcome of a Facade.Encrypt call. Exactly one
// of Blob or Error is populated; Facade methods never panic or return a
// bare Go error from the encrypt/decrypt entry points, so callers can
// always branch on Success.
type EncryptionResult struct {
	Success  bool
	RecordID int64
	Blob     *EncryptedBlob
	Error    error
}

// DecryptionResult is the outcome of a Facade.Decrypt call.
type DecryptionResult struct {
	Success   bool
	Plaintext []byte
	Error     error
}

// Facade is the single entry point a host application embeds: it wraps
// SecuritySystem with a monotonic record-id counter and a session-by-id
// cache, and converts every Encrypt/Decrypt failure into a populated
// Error field instead of a returned Go error; GrantAccess returns its
// error directly.
type Facade struct {
	system *SecuritySystem

	nextRecordID atomic.Int64

	mu       sync.RWMutex
	sessions map[string]*AccessSession
}

// NewFacade wraps system in a Facade.
func NewFacade(system *SecuritySystem) *Facade {
	return &Facade{
		system:   system,
		sessions: make(map[string]*AccessSession),
	}
}

// Encrypt encrypts plaintext for patientID on doctorID's behalf and
// assigns it the next monotonic record id. aad may be nil to use the
// default key-id+salt binding.
func (f *Facade) Encrypt(ctx context.Context, doctorID, patientID int64, plaintext, aad []byte) EncryptionResult {
	blob, err := f.system.EncryptPatientData(ctx, doctorID, patientID, plaintext, aad)
	if err != nil {
		return EncryptionResult{Error: err}
	}
	return EncryptionResult{
		Success:  true,
		RecordID: f.nextRecordID.Add(1),
		Blob:     blob,
	}
}

// Decrypt decrypts blob on doctorID's behalf, enforcing ownership/session
// access via SecuritySystem.
func (f *Facade) Decrypt(ctx context.Context, doctorID, patientID int64, blob *EncryptedBlob) DecryptionResult {
	plaintext, err := f.system.DecryptPatientData(ctx, doctorID, patientID, blob)
	if err != nil {
		return DecryptionResult{Error: err}
	}
	return DecryptionResult{Success: true, Plaintext: plaintext}
}

// GrantAccess issues an AccessSession for doctorID over patientID's
// records and caches it by session id for fast lookup by CheckAccess.
func (f *Facade) GrantAccess(doctorID, patientID int64, accessType AccessType) (*AccessSession, error) {
	sess, err := f.system.access.CreateSession(doctorID, patientID, access.AccessType(accessType))
	if err != nil {
		return nil, err
	}
	out := &AccessSession{
		SessionID:   sess.SessionID,
		DoctorID:    sess.DoctorID,
		PatientID:   sess.PatientID,
		AccessType:  AccessType(sess.AccessType),
		Permissions: PermissionSetFromMap(permissionMap(sess.Permissions)),
		CreatedAt:   sess.CreatedAt,
		ExpiresAt:   sess.ExpiresAt,
		LastUsed:    sess.LastUsed,
		Active:      sess.Active,
	}

	f.mu.Lock()
	f.sessions[out.SessionID] = out
	f.mu.Unlock()

	f.system.sessionsCreated.Add(1)
	return out, nil
}

// CheckAccess reports whether sessionID still grants access, refreshing
// the cached copy's Active flag from the underlying lazy-expiry check.
func (f *Facade) CheckAccess(sessionID string) bool {
	valid := f.system.access.Validate(sessionID)

	f.mu.RLock()
	cached, ok := f.sessions[sessionID]
	f.mu.RUnlock()
	if ok {
		cached.Active = valid
	}
	return valid
}

// RevokeAccess revokes a session by id, returning false if it was
// already inactive (idempotent, per property R3).
func (f *Facade) RevokeAccess(sessionID string) bool {
	revoked := f.system.access.Revoke(sessionID)
	if revoked {
		f.mu.Lock()
		if cached, ok := f.sessions[sessionID]; ok {
			cached.Active = false
		}
		f.mu.Unlock()
	}
	return revoked
}

// Stats returns the underlying SecuritySystem's counters.
func (f *Facade) Stats() Stats {
	return f.system.GetStats()
}

func permissionMap(p access.PermissionSet) map[string]bool {
	return map[string]bool{
		"view_patient_info":    p.ViewPatientInfo,
		"view_medical_records": p.ViewMedicalRecords,
		"view_measurements":    p.ViewMeasurements,
		"view_prescriptions":   p.ViewPrescriptions,
		"create_records":       p.CreateRecords,
		"edit_records":         p.EditRecords,
		"delete_records":       p.DeleteRecords,
		"export_data":          p.ExportData,
		"emergency_access":     p.EmergencyAccess,
	}
}
