package evolution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/domain/preferences"
	"github.com/medsys/clinic/pkg/civil"
)

type Service struct {
	repo  Repository
	prefs preferences.Store
	now   func() time.Time
}

// NewService wires the evolution service. prefs may be nil.
func NewService(repo Repository, prefs preferences.Store) *Service {
	return &Service{repo: repo, prefs: prefs, now: time.Now}
}

// Validate checks the fields every note requires.
func Validate(e *Evolution) error {
	e.Content = strings.TrimSpace(e.Content)
	if e.PatientID == uuid.Nil {
		return domain.Invalid("patient_id is required")
	}
	if e.Content == "" {
		return domain.Invalid("content is required")
	}
	return nil
}

// Create records a note. A missing date becomes today and a missing doctor
// comes from the stored defaults.
func (s *Service) Create(ctx context.Context, e *Evolution) error {
	if err := Validate(e); err != nil {
		return err
	}
	if e.Date.IsZero() {
		e.Date = civil.FromTime(s.now())
	}
	doctor, err := preferences.DoctorDefaults(ctx, s.prefs)
	if err != nil {
		return fmt.Errorf("doctor defaults: %w", err)
	}
	doctor.Fill(&e.DoctorName, &e.DoctorLicense)
	return s.repo.Create(ctx, e)
}

// List returns notes newest first, for one patient when patientID is set.
func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*Evolution, error) {
	if patientID != uuid.Nil {
		return s.repo.ListByPatient(ctx, patientID)
	}
	return s.repo.List(ctx)
}
