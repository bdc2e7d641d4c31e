// Command medvaultctl drives the full doctor/patient lifecycle end to
// end against a durable SQLite-backed SecuritySystem: doctor setup
// (which also caches the doctor's master key), patient key
// provisioning, an encrypt/decrypt round trip, a key
// rotation, and an access grant/revoke, logging every step through the
// structured logger and printing a final audit export.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	medvault "github.com/silverleaf/medvault"
	"github.com/silverleaf/medvault/internal/audit"
	"github.com/silverleaf/medvault/internal/config"
	"github.com/silverleaf/medvault/internal/monitoring"
	"github.com/silverleaf/medvault/internal/storage/sqlite"
)

func main() {
	dbPath := flag.String("db", "medvault_demo.db", "path to the SQLite database file")
	envPath := flag.String("env", "", "optional .env file to layer over defaults")
	flag.Parse()

	if err := run(*dbPath, *envPath); err != nil {
		fmt.Fprintln(os.Stderr, "medvaultctl:", err)
		os.Exit(1)
	}
}

func run(dbPath, envPath string) error {
	cfg := config.DefaultConfig()
	if err := config.LoadEnv(cfg, envPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	logger := monitoring.NewDevelopmentLogger("medvaultctl")

	sys := medvault.NewSecuritySystem(medvault.SecuritySystemConfig{
		Config:    cfg,
		Store:     store,
		AuditSink: store.AuditSink(),
		Logger:    logger,
	})
	facade := medvault.NewFacade(sys)

	ctx := context.Background()
	const (
		attending  int64 = 1
		consulting int64 = 2
		patient    int64 = 100
	)

	if _, err := sys.SetupDoctor(ctx, attending, []byte("correct-horse-battery-staple"), nil); err != nil {
		return fmt.Errorf("setup doctor: %w", err)
	}
	logger.Info("doctor provisioned", "doctor_id", attending)

	if _, err := sys.SetupPatient(ctx, attending, patient); err != nil {
		return fmt.Errorf("setup patient: %w", err)
	}
	logger.Info("patient provisioned", "patient_id", patient)

	encRes := facade.Encrypt(ctx, attending, patient, []byte("blood pressure: 128/82, pulse: 71"), nil)
	if !encRes.Success {
		return fmt.Errorf("encrypt: %w", encRes.Error)
	}
	recordJSON, err := encRes.Blob.ToJSON()
	if err != nil {
		return fmt.Errorf("encode record blob: %w", err)
	}
	if _, err := store.SaveEncryptedRecord(ctx, patient, recordJSON, "vitals"); err != nil {
		return fmt.Errorf("persist record: %w", err)
	}

	decRes := facade.Decrypt(ctx, attending, patient, encRes.Blob)
	if !decRes.Success {
		return fmt.Errorf("decrypt: %w", decRes.Error)
	}
	logger.Info("decrypted own record", "plaintext_length", len(decRes.Plaintext))

	if _, err := sys.RotatePatientKey(ctx, attending, patient); err != nil {
		return fmt.Errorf("rotate key: %w", err)
	}
	if stillGood := facade.Decrypt(ctx, attending, patient, encRes.Blob); !stillGood.Success {
		return fmt.Errorf("pre-rotation record failed to decrypt after rotation: %w", stillGood.Error)
	}
	logger.Info("pre-rotation record still decryptable after key rotation")

	session, err := facade.GrantAccess(consulting, patient, medvault.AccessView)
	if err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	consultRes := facade.Decrypt(ctx, consulting, patient, encRes.Blob)
	if !consultRes.Success {
		return fmt.Errorf("consulting doctor denied despite granted session: %w", consultRes.Error)
	}
	logger.Info("consulting doctor read via access session", "session_id", session.SessionID)

	facade.RevokeAccess(session.SessionID)
	if revokedRes := facade.Decrypt(ctx, consulting, patient, encRes.Blob); revokedRes.Success {
		return fmt.Errorf("consulting doctor still had access after revoke")
	}
	logger.Info("access correctly denied after revoke")

	stats := sys.GetStats()
	fmt.Printf("encryptions=%d decryptions=%d sessions=%d errors=%d\n",
		stats.Encryptions, stats.Decryptions, stats.SessionsCreated, stats.Errors)

	events := sys.AuditLogger().Query(audit.Filter{DoctorID: attending})
	fmt.Printf("audit events for doctor %d: %d\n", attending, len(events))
	return audit.ExportJSON(os.Stdout, events)
}
