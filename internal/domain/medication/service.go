package medication

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/events"
	"github.com/medsys/clinic/internal/platform/telemetry"
	"github.com/medsys/clinic/pkg/textnorm"
)

type Service struct {
	repo    Repository
	events  events.Publisher
	metrics *telemetry.Metrics
}

func NewService(repo Repository, publisher events.Publisher, metrics *telemetry.Metrics) *Service {
	return &Service{repo: repo, events: publisher, metrics: metrics}
}

// Validate checks a medication write and recomputes its status.
func Validate(m *Medication) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return domain.Invalid("name is required")
	}
	if m.Stock < 0 {
		return domain.Invalid("stock must not be negative")
	}
	if m.Price < 0 {
		return domain.Invalid("price must not be negative")
	}
	m.Status = StatusForStock(m.Stock)
	return nil
}

func (s *Service) Create(ctx context.Context, m *Medication) error {
	if err := Validate(m); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}
	emitCreated(ctx, s.events, s.metrics, m)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, m *Medication) error {
	if err := Validate(m); err != nil {
		return err
	}
	return s.repo.Update(ctx, m)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Filter narrows the inventory listing.
type Filter struct {
	Query    string
	LowStock bool
}

func (f Filter) match(m *Medication) bool {
	if f.LowStock && !m.LowStock() {
		return false
	}
	return textnorm.Contains(m.Name, f.Query)
}

// List returns the catalog ordered by name, narrowed by f.
func (s *Service) List(ctx context.Context, f Filter) ([]*Medication, error) {
	meds, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Medication, 0, len(meds))
	for _, m := range meds {
		if f.match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Suggest returns up to limit catalog entries whose name contains term.
func (s *Service) Suggest(ctx context.Context, term string, limit int) ([]*Medication, error) {
	if strings.TrimSpace(term) == "" {
		return []*Medication{}, nil
	}
	meds, err := s.List(ctx, Filter{Query: term})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(meds) > limit {
		meds = meds[:limit]
	}
	return meds, nil
}

// Export writes the full inventory as a spreadsheet.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	meds, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	return WriteInventory(w, meds)
}

// CreateMissing runs ReconcileCatalog with catalog as the lookup and inserts
// every emitted entry.
func CreateMissing(ctx context.Context, catalog Catalog, items []CatalogItem, known []*Medication,
	publisher events.Publisher, metrics *telemetry.Metrics) []*Medication {
	var created []*Medication
	for _, m := range ReconcileCatalog(ctx, items, known, catalog) {
		if err := catalog.Create(ctx, m); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).
				Str("medication", m.Name).
				Msg("catalog auto-create failed")
			continue
		}
		created = append(created, m)
		emitCreated(ctx, publisher, metrics, m)
	}
	metrics.MedicationsAutoCreated(len(created))
	return created
}

func emitCreated(ctx context.Context, p events.Publisher, metrics *telemetry.Metrics, m *Medication) {
	events.Emit(ctx, p, metrics,
		events.New(events.MedicationCreated, db.OwnerFromContext(ctx).String(), m.ID.String(), m))
}
