package prescription

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
)

type mockRepo struct {
	items   map[uuid.UUID]*Prescription
	failErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Prescription)}
}

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	if m.failErr != nil {
		return m.failErr
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, domain.NotFound("prescription")
	}
	return p, nil
}

func (m *mockRepo) List(_ context.Context) ([]*Prescription, error) {
	out := make([]*Prescription, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	all, _ := m.List(ctx)
	var out []*Prescription
	for _, p := range all {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockPatients struct {
	patients  map[uuid.UUID]*patient.Patient
	creates   int
	createErr error
}

func newMockPatients() *mockPatients {
	return &mockPatients{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatients) add(name, cpf string) *patient.Patient {
	p := &patient.Patient{ID: uuid.New(), Name: name, CPF: cpf}
	m.patients[p.ID] = p
	return p
}

func (m *mockPatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, domain.NotFound("patient")
	}
	return p, nil
}

func (m *mockPatients) FindByCPF(_ context.Context, digits string) (*patient.Patient, error) {
	for _, p := range m.patients {
		if patient.NormalizeCPF(p.CPF) == digits {
			return p, nil
		}
	}
	return nil, domain.NotFound("patient")
}

func (m *mockPatients) Create(_ context.Context, p *patient.Patient) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.creates++
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatients) List(_ context.Context) ([]*patient.Patient, error) {
	out := make([]*patient.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, nil
}

type mockCatalog struct {
	meds []*medication.Medication
}

func (m *mockCatalog) FindByName(_ context.Context, name string) (*medication.Medication, error) {
	for _, med := range m.meds {
		if strings.EqualFold(strings.TrimSpace(med.Name), strings.TrimSpace(name)) {
			return med, nil
		}
	}
	return nil, domain.NotFound("medication")
}

func (m *mockCatalog) Create(_ context.Context, med *medication.Medication) error {
	med.ID = uuid.New()
	m.meds = append(m.meds, med)
	return nil
}

// failingTx runs nothing and reports a begin failure.
type failingTx struct{}

func (failingTx) WithTx(context.Context, func(context.Context) error) error {
	return errors.New("begin transaction: connection refused")
}

type mapPrefs map[string]string

func (m mapPrefs) Get(_ context.Context, key string) (string, error) { return m[key], nil }
func (m mapPrefs) Set(_ context.Context, key, value string) error    { m[key] = value; return nil }
func (m mapPrefs) All(_ context.Context) (map[string]string, error)  { return m, nil }
