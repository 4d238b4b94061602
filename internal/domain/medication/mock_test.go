package medication

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain"
)

type mockRepo struct {
	meds      map[uuid.UUID]*Medication
	failNames map[string]bool
	lookupErr error
	lookups   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		meds:      make(map[uuid.UUID]*Medication),
		failNames: make(map[string]bool),
	}
}

func (m *mockRepo) Create(_ context.Context, med *Medication) error {
	if m.failNames[med.Name] {
		return errors.New("insert failed")
	}
	med.ID = uuid.New()
	if med.Status == "" {
		med.Status = StatusForStock(med.Stock)
	}
	med.CreatedAt = time.Now()
	med.UpdatedAt = med.CreatedAt
	m.meds[med.ID] = med
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Medication, error) {
	med, ok := m.meds[id]
	if !ok {
		return nil, domain.NotFound("medication")
	}
	return med, nil
}

func (m *mockRepo) FindByName(_ context.Context, name string) (*Medication, error) {
	m.lookups++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, med := range m.meds {
		if strings.EqualFold(strings.TrimSpace(med.Name), strings.TrimSpace(name)) {
			return med, nil
		}
	}
	return nil, domain.NotFound("medication")
}

func (m *mockRepo) Update(_ context.Context, med *Medication) error {
	if _, ok := m.meds[med.ID]; !ok {
		return domain.NotFound("medication")
	}
	med.Status = StatusForStock(med.Stock)
	m.meds[med.ID] = med
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.meds[id]; !ok {
		return domain.NotFound("medication")
	}
	delete(m.meds, id)
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]*Medication, error) {
	out := make([]*Medication, 0, len(m.meds))
	for _, med := range m.meds {
		out = append(out, med)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
