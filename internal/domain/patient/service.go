package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/events"
	"github.com/medsys/clinic/internal/platform/telemetry"
)

type Service struct {
	repo    Repository
	events  events.Publisher
	metrics *telemetry.Metrics
}

// NewService wires the patient service. publisher and metrics may be nil.
func NewService(repo Repository, publisher events.Publisher, metrics *telemetry.Metrics) *Service {
	return &Service{repo: repo, events: publisher, metrics: metrics}
}

// Validate checks the fields every patient write requires.
func Validate(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	p.CPF = strings.TrimSpace(p.CPF)
	if p.Name == "" {
		return domain.Invalid("name is required")
	}
	if p.CPF == "" {
		return domain.Invalid("cpf is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := Validate(p); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.metrics.PatientCreated()
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces every editable field of the patient.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := Validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// Delete removes the patient; prescriptions and evolutions go with it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	events.Emit(ctx, s.events, s.metrics,
		events.New(events.PatientDeleted, db.OwnerFromContext(ctx).String(), id.String(), nil))
	return nil
}

// List returns the patients newest first, narrowed by q when it is set.
func (s *Service) List(ctx context.Context, q string) ([]*Patient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(patients, q), nil
}

// FindByCPF returns the patient whose normalized cpf equals cpf. Inputs with
// fewer than eleven digits are rejected rather than partially matched.
func (s *Service) FindByCPF(ctx context.Context, cpf string) (*Patient, error) {
	digits, ok := MatchableCPF(cpf)
	if !ok {
		return nil, domain.Invalid("cpf must have at least 11 digits")
	}
	return s.repo.FindByCPF(ctx, digits)
}
