// Package access implements session-scoped access control: issuing,
// validating, and revoking AccessSession grants, and the append-only
// access log each operation feeds into.
package access

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/silverleaf/medvault/internal/security"
)

// AccessType mirrors medvault.AccessType; kept package-local to avoid an
// import cycle between this package and the root package.
type AccessType string

const (
	View      AccessType = "view"
	Edit      AccessType = "edit"
	Emergency AccessType = "emergency"
)

// Session mirrors medvault.AccessSession.
type Session struct {
	SessionID   string
	DoctorID    int64
	PatientID   int64
	AccessType  AccessType
	Permissions PermissionSet
	CreatedAt   time.Time
	ExpiresAt   time.Time
	LastUsed    *time.Time
	Active      bool
}

// Valid reports whether the session is active and unexpired, without
// mutating it. Manager.Validate performs the lazy-expiry transition.
func (s *Session) Valid(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}

// LogEntry is one append-only access log record.
type LogEntry struct {
	Timestamp time.Time
	DoctorID  int64
	PatientID int64
	Action    string
	Success   bool
}

// ManagerConfig configures session expiry and access-log bounds.
type ManagerConfig struct {
	SessionExpiry  time.Duration
	MaxLogEntries  int
	NowFunc        func() time.Time
}

// Manager issues and validates capability-style AccessSession grants, and
// maintains a bounded, filterable access log. All state sits behind one
// RWMutex, matching the crypto package's readers-shared/writers-exclusive
// discipline.
type Manager struct {
	sessionExpiry time.Duration
	maxLogEntries int
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	log      []LogEntry
}

// NewManager constructs a Manager with the given config, defaulting
// session expiry to 8 hours and the log bound to 10,000 entries.
func NewManager(cfg ManagerConfig) *Manager {
	expiry := cfg.SessionExpiry
	if expiry <= 0 {
		expiry = 8 * time.Hour
	}
	maxLog := cfg.MaxLogEntries
	if maxLog <= 0 {
		maxLog = 10000
	}
	now := cfg.NowFunc
	if now == nil {
		now = time.Now
	}
	return &Manager{
		sessionExpiry: expiry,
		maxLogEntries: maxLog,
		now:           now,
		sessions:      make(map[string]*Session),
	}
}

// CreateSession issues a new AccessSession for a doctor/patient pair with
// the default permission set for the access type, and logs the grant.
func (m *Manager) CreateSession(doctorID, patientID int64, accessType AccessType) (*Session, error) {
	suffix := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, suffix); err != nil {
		return nil, fmt.Errorf("access: create session: %w", err)
	}
	now := m.now()
	sess := &Session{
		SessionID:   fmt.Sprintf("session_%d_%d_%s", doctorID, patientID, hex.EncodeToString(suffix)),
		DoctorID:    doctorID,
		PatientID:   patientID,
		AccessType:  accessType,
		Permissions: DefaultPermissions(accessType),
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.sessionExpiry),
		Active:      true,
	}

	m.mu.Lock()
	m.sessions[sess.SessionID] = sess
	m.appendLogLocked(LogEntry{Timestamp: now, DoctorID: doctorID, PatientID: patientID, Action: "create_session", Success: true})
	m.mu.Unlock()

	return sess, nil
}

// Validate reports whether sessionID refers to a currently valid
// session, lazily flipping Active to false and logging the expiry the
// first time an expired session is observed (invariant I4).
func (m *Manager) Validate(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	now := m.now()
	if sess.Active && !now.Before(sess.ExpiresAt) {
		sess.Active = false
		m.appendLogLocked(LogEntry{Timestamp: now, DoctorID: sess.DoctorID, PatientID: sess.PatientID, Action: "session_expired", Success: true})
	}
	return sess.Active
}

// Get returns the session and, if it is currently valid, updates its
// LastUsed timestamp. An invalid or unknown session returns ok=false.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	now := m.now()
	if sess.Active && !now.Before(sess.ExpiresAt) {
		sess.Active = false
	}
	if !sess.Active {
		return sess, false
	}
	sess.LastUsed = &now
	return sess, true
}

// Revoke deactivates a session. It is idempotent: revoking an already
// inactive session returns false (property R3).
func (m *Manager) Revoke(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok || !sess.Active {
		return false
	}
	sess.Active = false
	m.appendLogLocked(LogEntry{Timestamp: m.now(), DoctorID: sess.DoctorID, PatientID: sess.PatientID, Action: "revoke_session", Success: true})
	return true
}

// RevokeAllForPatient deactivates every active session for a patient,
// returning the count revoked.
func (m *Manager) RevokeAllForPatient(patientID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	now := m.now()
	for _, sess := range m.sessions {
		if sess.PatientID == patientID && sess.Active {
			sess.Active = false
			count++
			m.appendLogLocked(LogEntry{Timestamp: now, DoctorID: sess.DoctorID, PatientID: patientID, Action: "revoke_session", Success: true})
		}
	}
	return count
}

// RevokeAllForDoctor deactivates every active session held by a doctor
// (across all of their patients), the same sweep LogoutDoctor performs
// in the original implementation.
func (m *Manager) RevokeAllForDoctor(doctorID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	now := m.now()
	for _, sess := range m.sessions {
		if sess.DoctorID == doctorID && sess.Active {
			sess.Active = false
			count++
			m.appendLogLocked(LogEntry{Timestamp: now, DoctorID: doctorID, PatientID: sess.PatientID, Action: "revoke_session", Success: true})
		}
	}
	return count
}

// LogAccess appends an access log entry for a data-path operation (as
// opposed to the session-lifecycle entries CreateSession/Validate/Revoke
// append automatically).
func (m *Manager) LogAccess(doctorID, patientID int64, action string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLogLocked(LogEntry{Timestamp: m.now(), DoctorID: doctorID, PatientID: patientID, Action: action, Success: success})
}

// appendLogLocked appends to the access log, trimming the oldest entry
// when the bound is exceeded (property B4). Callers must hold mu.
func (m *Manager) appendLogLocked(entry LogEntry) {
	m.log = append(m.log, entry)
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

// LogFilter narrows GetLogs results; zero-valued fields are unfiltered.
type LogFilter struct {
	DoctorID  int64
	PatientID int64
	Action    string
	From      time.Time
	To        time.Time
}

// GetLogs returns a copy of log entries matching filter, newest last.
func (m *Manager) GetLogs(filter LogFilter) []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LogEntry, 0, len(m.log))
	for _, e := range m.log {
		if filter.DoctorID != 0 && e.DoctorID != filter.DoctorID {
			continue
		}
		if filter.PatientID != 0 && e.PatientID != filter.PatientID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if !filter.From.IsZero() && e.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.Timestamp.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ActiveSessions returns every session currently valid for a patient,
// lazily expiring any that have timed out.
func (m *Manager) ActiveSessions(patientID int64) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var active []*Session
	for _, sess := range m.sessions {
		if sess.PatientID != patientID {
			continue
		}
		if sess.Active && !now.Before(sess.ExpiresAt) {
			sess.Active = false
		}
		if sess.Active {
			active = append(active, sess)
		}
	}
	return active
}

// CleanupExpired lazily expires and returns the count of sessions newly
// deactivated by this call.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	count := 0
	for _, sess := range m.sessions {
		if sess.Active && !now.Before(sess.ExpiresAt) {
			sess.Active = false
			count++
		}
	}
	return count
}

// Stats summarizes the manager's current state, recovered from the
// original's get_stats.
type Stats struct {
	TotalSessions  int
	ActiveSessions int
	LogEntries     int
}

// GetStats returns a point-in-time snapshot of session and log counts.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := 0
	now := m.now()
	for _, sess := range m.sessions {
		if sess.Active && now.Before(sess.ExpiresAt) {
			active++
		}
	}
	return Stats{
		TotalSessions:  len(m.sessions),
		ActiveSessions: active,
		LogEntries:     len(m.log),
	}
}

// SessionIDEqual compares two session id strings in constant time, for
// callers that accept a session id over an untrusted channel.
func SessionIDEqual(a, b string) bool {
	return security.ConstantTimeEq([]byte(a), []byte(b))
}
