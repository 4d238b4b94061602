package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/preferences"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/events"
	"github.com/medsys/clinic/internal/platform/telemetry"
	"github.com/medsys/clinic/pkg/civil"
)

// ErrPatientUnresolved means a save could neither find nor register the
// patient the prescription is for.
var ErrPatientUnresolved = errors.New("prescription patient could not be resolved")

// PatientStore is the subset of the patient repository a save needs.
type PatientStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	FindByCPF(ctx context.Context, cpfDigits string) (*patient.Patient, error)
	Create(ctx context.Context, p *patient.Patient) error
	List(ctx context.Context) ([]*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientStore
	catalog  medication.Catalog
	tx       db.TxRunner
	prefs    preferences.Store
	events   events.Publisher
	metrics  *telemetry.Metrics
	alerts   AlertOptions
	now      func() time.Time
}

func NewService(repo Repository, patients PatientStore, catalog medication.Catalog, tx db.TxRunner,
	publisher events.Publisher, metrics *telemetry.Metrics) *Service {
	if tx == nil {
		tx = db.NoopTxRunner{}
	}
	return &Service{
		repo:     repo,
		patients: patients,
		catalog:  catalog,
		tx:       tx,
		events:   publisher,
		metrics:  metrics,
		alerts:   DefaultAlertOptions(),
		now:      time.Now,
	}
}

// SetPreferences attaches the store the doctor defaults are read from.
func (s *Service) SetPreferences(store preferences.Store) {
	s.prefs = store
}

// SetAlertOptions overrides the validity and warning windows.
func (s *Service) SetAlertOptions(opts AlertOptions) {
	s.alerts = opts.withDefaults()
}

// Save registers a prescription from a draft.
//
// Blank items are dropped and a missing date becomes today. The patient is
// resolved by explicit id, then by normalized cpf, and is registered from the
// draft when neither matches; resolution and insert share one transaction.
// Afterwards the item names are reconciled against known and the catalog,
// and missing medications are created. known may be nil.
func (s *Service) Save(ctx context.Context, d Draft, known []*medication.Medication) (*SaveResult, error) {
	d.Items = DropBlankItems(d.Items)
	if d.Date.IsZero() {
		d.Date = civil.FromTime(s.now())
	}
	d.UsageType = strings.ToLower(strings.TrimSpace(d.UsageType))
	if d.UsageType == "" {
		d.UsageType = UsageOral
	}
	if !validUsageTypes[d.UsageType] {
		return nil, domain.Invalid("invalid usage type: %s", d.UsageType)
	}
	if d.PatientID == uuid.Nil {
		if err := patient.Validate(&d.Patient); err != nil {
			return nil, err
		}
	}

	doctor, err := preferences.DoctorDefaults(ctx, s.prefs)
	if err != nil {
		return nil, fmt.Errorf("doctor defaults: %w", err)
	}
	doctor.Fill(&d.DoctorName, &d.DoctorLicense)

	res := &SaveResult{}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		pt, created, err := s.resolvePatient(ctx, &d)
		if err != nil {
			return err
		}
		p := &Prescription{
			PatientID:     pt.ID,
			Date:          d.Date,
			Location:      strings.TrimSpace(d.Location),
			UsageType:     d.UsageType,
			Items:         d.Items,
			DoctorName:    d.DoctorName,
			DoctorLicense: d.DoctorLicense,
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		res.Prescription, res.Patient, res.PatientCreated = p, pt, created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.PatientCreated {
		s.metrics.PatientCreated()
	}
	s.metrics.PrescriptionSaved()
	events.Emit(ctx, s.events, s.metrics, events.New(events.PrescriptionCreated,
		db.OwnerFromContext(ctx).String(), res.Prescription.ID.String(), res.Prescription))

	if s.catalog != nil {
		res.Medications = medication.CreateMissing(ctx, s.catalog, CatalogItems(d.Items), known, s.events, s.metrics)
	}
	return res, nil
}

func (s *Service) resolvePatient(ctx context.Context, d *Draft) (*patient.Patient, bool, error) {
	if d.PatientID != uuid.Nil {
		p, err := s.patients.GetByID(ctx, d.PatientID)
		if err != nil {
			return nil, false, err
		}
		return p, false, nil
	}

	if digits := patient.NormalizeCPF(d.Patient.CPF); digits != "" {
		p, err := s.patients.FindByCPF(ctx, digits)
		switch {
		case err == nil:
			return p, false, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, false, err
		}
	}

	np := d.Patient
	np.ID = uuid.Nil
	if err := s.patients.Create(ctx, &np); err != nil {
		return nil, false, fmt.Errorf("register patient: %w", err)
	}
	if np.ID == uuid.Nil {
		return nil, false, ErrPatientUnresolved
	}
	return &np, true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns prescriptions newest first, for one patient when patientID
// is set.
func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	if patientID != uuid.Nil {
		return s.repo.ListByPatient(ctx, patientID)
	}
	return s.repo.List(ctx)
}

// Alerts computes the expiry alerts for every prescription as of now.
func (s *Service) Alerts(ctx context.Context, now time.Time) ([]AlertRow, error) {
	rxs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeAlerts(rxs, patient.NewIndex(patients), now, s.alerts), nil
}
