package workspace

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/internal/platform/auth"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/hipaa"
	"github.com/medsys/clinic/migrations"
	"github.com/medsys/clinic/pkg/civil"
)

// pgBackend migrates a throwaway schema on MEDSYS_TEST_DATABASE_URL. Tests
// using it are skipped when the variable is unset.
func pgBackend(t *testing.T) Backend {
	t.Helper()
	url := os.Getenv("MEDSYS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MEDSYS_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := fmt.Sprintf("medsys_test_%d", time.Now().UnixNano())
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		pool.Close()
	})

	if _, err := db.NewMigrator(pool, migrations.Files, schema).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	enc, err := hipaa.NewPHIEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("encryptor: %v", err)
	}
	return NewRepoBackend(pool, enc)
}

func TestRepoBackend_SaveAndCascade(t *testing.T) {
	backend := pgBackend(t)
	ctx := context.Background()
	c := New(backend, Options{Confirmer: confirmFunc(func(string) bool { return true })})
	c.OnAuthChange(&auth.Session{UserID: uuid.New()})

	res, err := c.SavePrescription(ctx, prescription.Draft{
		Patient: patient.Patient{Name: "Ana Souza", CPF: "123.456.789-09", Phone: "11 99999-0000"},
		Date:    civil.NewDate(2024, 1, 1),
		Items:   []prescription.Item{{Name: "Amoxicillin", Dosage: "500mg"}},
	})
	if err != nil {
		t.Fatalf("SavePrescription: %v", err)
	}
	if !res.PatientCreated {
		t.Error("expected the patient to be registered")
	}

	// same cpf, different punctuation: no second patient
	if _, err := c.SavePrescription(ctx, prescription.Draft{
		Patient: patient.Patient{Name: "Ana Souza", CPF: "12345678909"},
	}); err != nil {
		t.Fatalf("second SavePrescription: %v", err)
	}
	s := c.Snapshot()
	if len(s.Patients) != 1 || len(s.Prescriptions) != 2 {
		t.Fatalf("patients=%d prescriptions=%d, want 1 and 2", len(s.Patients), len(s.Prescriptions))
	}
	if s.Patients[0].Phone != "11 99999-0000" {
		t.Errorf("phone = %q, want it decrypted", s.Patients[0].Phone)
	}
	if len(s.Medications) != 1 || s.Medications[0].Status != medication.StatusLowStock {
		t.Errorf("medications = %+v, want one low-stock catalog entry", s.Medications)
	}

	if err := c.SaveEvolution(ctx, &evolution.Evolution{PatientID: res.Patient.ID, Content: "stable"}); err != nil {
		t.Fatalf("SaveEvolution: %v", err)
	}
	if _, err := c.DeletePatient(ctx, res.Patient.ID); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}
	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	s = c.Snapshot()
	if len(s.Patients)+len(s.Prescriptions)+len(s.Evolutions) != 0 {
		t.Errorf("rows left after cascade: %d patients, %d prescriptions, %d notes",
			len(s.Patients), len(s.Prescriptions), len(s.Evolutions))
	}
}
