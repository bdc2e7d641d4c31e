// Package sqlite is the durable implementation of the persistence port:
// doctor salts, wrapped per-patient data keys, encrypted record blobs,
// and the append-only audit trail, all backed by a single database/sql
// handle over github.com/mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed Persistence implementation. It satisfies
// the root package's Persistence interface structurally (same method
// set, no import of the root package needed) and also implements the
// audit package's DurableSink via AuditSink().
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1) // go-sqlite3 serializes writes; avoid SQLITE_BUSY under concurrent callers

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS doctor_salts (
			doctor_id INTEGER PRIMARY KEY,
			salt      BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wrapped_data_keys (
			patient_id INTEGER PRIMARY KEY,
			wrapped    BLOB NOT NULL,
			key_salt   BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS encrypted_records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			patient_id  INTEGER NOT NULL,
			blob_json   BLOB NOT NULL,
			record_type TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_encrypted_records_patient ON encrypted_records(patient_id)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			event_json BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite: init schema: %w", err)
		}
	}
	return nil
}

// LoadDoctorSalt returns the salt on record for doctorID.
func (s *Store) LoadDoctorSalt(ctx context.Context, doctorID int64) ([]byte, error) {
	var salt []byte
	err := s.db.QueryRowContext(ctx, `SELECT salt FROM doctor_salts WHERE doctor_id = ?`, doctorID).Scan(&salt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: no salt on record for doctor %d", doctorID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load doctor salt: %w", err)
	}
	return salt, nil
}

// SaveDoctorSalt upserts the salt for doctorID.
func (s *Store) SaveDoctorSalt(ctx context.Context, doctorID int64, salt []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO doctor_salts (doctor_id, salt) VALUES (?, ?)
		ON CONFLICT(doctor_id) DO UPDATE SET salt = excluded.salt`,
		doctorID, salt)
	if err != nil {
		return fmt.Errorf("sqlite: save doctor salt: %w", err)
	}
	return nil
}

// LoadWrappedDataKey returns the wrapped DataKey bytes and key salt on
// record for patientID.
func (s *Store) LoadWrappedDataKey(ctx context.Context, patientID int64) ([]byte, []byte, error) {
	var wrapped, keySalt []byte
	err := s.db.QueryRowContext(ctx, `SELECT wrapped, key_salt FROM wrapped_data_keys WHERE patient_id = ?`, patientID).Scan(&wrapped, &keySalt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("sqlite: no wrapped data key on record for patient %d", patientID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: load wrapped data key: %w", err)
	}
	return wrapped, keySalt, nil
}

// SaveWrappedDataKey upserts the wrapped DataKey for patientID, as
// called on initial provisioning and every rotation.
func (s *Store) SaveWrappedDataKey(ctx context.Context, patientID int64, wrapped, keySalt []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wrapped_data_keys (patient_id, wrapped, key_salt, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(patient_id) DO UPDATE SET wrapped = excluded.wrapped, key_salt = excluded.key_salt, updated_at = excluded.updated_at`,
		patientID, wrapped, keySalt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite: save wrapped data key: %w", err)
	}
	return nil
}

// SaveEncryptedRecord stores an EncryptedBlob (already JSON-marshaled by
// the caller) and returns the assigned record id.
func (s *Store) SaveEncryptedRecord(ctx context.Context, patientID int64, blobJSON []byte, recordType string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO encrypted_records (patient_id, blob_json, record_type, created_at) VALUES (?, ?, ?, ?)`,
		patientID, blobJSON, recordType, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: save encrypted record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: save encrypted record: %w", err)
	}
	return id, nil
}

// LoadEncryptedRecord returns a previously stored record by id.
func (s *Store) LoadEncryptedRecord(ctx context.Context, recordID int64) (int64, []byte, string, time.Time, error) {
	var patientID int64
	var blobJSON []byte
	var recordType string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT patient_id, blob_json, record_type, created_at FROM encrypted_records WHERE id = ?`, recordID).
		Scan(&patientID, &blobJSON, &recordType, &createdAt)
	if err == sql.ErrNoRows {
		return 0, nil, "", time.Time{}, fmt.Errorf("sqlite: no encrypted record %d", recordID)
	}
	if err != nil {
		return 0, nil, "", time.Time{}, fmt.Errorf("sqlite: load encrypted record: %w", err)
	}
	return patientID, blobJSON, recordType, createdAt, nil
}

// AppendAudit stores one audit event's JSON encoding, satisfying both
// the root Persistence port and (via AuditSink) the audit package's
// DurableSink.
func (s *Store) AppendAudit(ctx context.Context, eventJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_events (event_json, created_at) VALUES (?, ?)`, eventJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite: append audit: %w", err)
	}
	return nil
}

// AuditSink returns an adapter satisfying audit.DurableSink (which has
// no context parameter) over this Store's AppendAudit.
func (s *Store) AuditSink() *sinkAdapter {
	return &sinkAdapter{store: s}
}

// sinkAdapter bridges Store.AppendAudit (context-aware, for the
// Persistence port) to audit.DurableSink (context-free, since the
// in-process audit.Logger never carries a caller context past Append).
type sinkAdapter struct {
	store *Store
}

func (a *sinkAdapter) AppendAudit(eventJSON []byte) error {
	return a.store.AppendAudit(context.Background(), eventJSON)
}
