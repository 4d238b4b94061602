package localstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/prescription"
)

// Rows are copied in and out so callers never alias the stored document.

type patientStore struct{ s *Store }

func (r patientStore) Create(ctx context.Context, p *patient.Patient) error {
	return r.s.update(ctx, func(b *bucket, owner uuid.UUID) error {
		now := r.s.now()
		p.ID = uuid.New()
		p.UserID = owner
		p.CreatedAt, p.UpdatedAt = now, now
		cp := *p
		b.Patients = append(b.Patients, &cp)
		return nil
	})
}

func (r patientStore) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var out *patient.Patient
	err := r.s.read(ctx, func(b *bucket) error {
		for _, p := range b.Patients {
			if p.ID == id {
				cp := *p
				out = &cp
				return nil
			}
		}
		return domain.NotFound("patient")
	})
	return out, err
}

func (r patientStore) Update(ctx context.Context, p *patient.Patient) error {
	return r.s.update(ctx, func(b *bucket, owner uuid.UUID) error {
		for i, existing := range b.Patients {
			if existing.ID != p.ID {
				continue
			}
			p.UserID = owner
			p.CreatedAt = existing.CreatedAt
			p.UpdatedAt = r.s.now()
			cp := *p
			b.Patients[i] = &cp
			return nil
		}
		return domain.NotFound("patient")
	})
}

// Delete removes the patient with their prescriptions and notes.
func (r patientStore) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.update(ctx, func(b *bucket, _ uuid.UUID) error {
		n := len(b.Patients)
		b.Patients = keep(b.Patients, func(p *patient.Patient) bool { return p.ID != id })
		if len(b.Patients) == n {
			return domain.NotFound("patient")
		}
		b.Prescriptions = keep(b.Prescriptions, func(p *prescription.Prescription) bool { return p.PatientID != id })
		b.Evolutions = keep(b.Evolutions, func(e *evolution.Evolution) bool { return e.PatientID != id })
		return nil
	})
}

func (r patientStore) List(ctx context.Context) ([]*patient.Patient, error) {
	var out []*patient.Patient
	err := r.s.read(ctx, func(b *bucket) error {
		out = make([]*patient.Patient, 0, len(b.Patients))
		for _, p := range b.Patients {
			cp := *p
			out = append(out, &cp)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

// FindByCPF returns the earliest registered patient with the given cpf
// digits.
func (r patientStore) FindByCPF(ctx context.Context, cpfDigits string) (*patient.Patient, error) {
	var out *patient.Patient
	err := r.s.read(ctx, func(b *bucket) error {
		for _, p := range b.Patients {
			if patient.NormalizeCPF(p.CPF) != cpfDigits {
				continue
			}
			if out == nil || p.CreatedAt.Before(out.CreatedAt) {
				cp := *p
				out = &cp
			}
		}
		if out == nil {
			return domain.NotFound("patient")
		}
		return nil
	})
	return out, err
}

type medicationStore struct{ s *Store }

func (r medicationStore) Create(ctx context.Context, m *medication.Medication) error {
	return r.s.update(ctx, func(b *bucket, owner uuid.UUID) error {
		now := r.s.now()
		m.ID = uuid.New()
		m.UserID = owner
		if m.Status == "" {
			m.Status = medication.StatusForStock(m.Stock)
		}
		m.CreatedAt, m.UpdatedAt = now, now
		cp := *m
		b.Medications = append(b.Medications, &cp)
		return nil
	})
}

func (r medicationStore) GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	return r.find(ctx, func(m *medication.Medication) bool { return m.ID == id })
}

func (r medicationStore) FindByName(ctx context.Context, name string) (*medication.Medication, error) {
	name = strings.TrimSpace(name)
	return r.find(ctx, func(m *medication.Medication) bool {
		return strings.EqualFold(strings.TrimSpace(m.Name), name)
	})
}

func (r medicationStore) find(ctx context.Context, match func(*medication.Medication) bool) (*medication.Medication, error) {
	var out *medication.Medication
	err := r.s.read(ctx, func(b *bucket) error {
		for _, m := range b.Medications {
			if match(m) {
				cp := *m
				out = &cp
				return nil
			}
		}
		return domain.NotFound("medication")
	})
	return out, err
}

func (r medicationStore) Update(ctx context.Context, m *medication.Medication) error {
	return r.s.update(ctx, func(b *bucket, owner uuid.UUID) error {
		for i, existing := range b.Medications {
			if existing.ID != m.ID {
				continue
			}
			m.UserID = owner
			m.Status = medication.StatusForStock(m.Stock)
			m.CreatedAt = existing.CreatedAt
			m.UpdatedAt = r.s.now()
			cp := *m
			b.Medications[i] = &cp
			return nil
		}
		return domain.NotFound("medication")
	})
}

func (r medicationStore) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.update(ctx, func(b *bucket, _ uuid.UUID) error {
		n := len(b.Medications)
		b.Medications = keep(b.Medications, func(m *medication.Medication) bool { return m.ID != id })
		if len(b.Medications) == n {
			return domain.NotFound("medication")
		}
		return nil
	})
}

func (r medicationStore) List(ctx context.Context) ([]*medication.Medication, error) {
	var out []*medication.Medication
	err := r.s.read(ctx, func(b *bucket) error {
		for _, m := range b.Medications {
			cp := *m
			out = append(out, &cp)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, err
}

type prescriptionStore struct{ s *Store }

func (r prescriptionStore) Create(ctx context.Context, p *prescription.Prescription) error {
	return r.s.update(ctx, func(b *bucket, owner uuid.UUID) error {
		p.ID = uuid.New()
		p.UserID = owner
		p.CreatedAt = r.s.now()
		b.Prescriptions = append(b.Prescriptions, copyPrescription(p))
		return nil
	})
}

func (r prescriptionStore) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var out *prescription.Prescription
	err := r.s.read(ctx, func(b *bucket) error {
		for _, p := range b.Prescriptions {
			if p.ID == id {
				out = copyPrescription(p)
				return nil
			}
		}
		return domain.NotFound("prescription")
	})
	return out, err
}

func (r prescriptionStore) List(ctx context.Context) ([]*prescription.Prescription, error) {
	return r.list(ctx, func(*prescription.Prescription) bool { return true })
}

func (r prescriptionStore) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	return r.list(ctx, func(p *prescription.Prescription) bool { return p.PatientID == patientID })
}

func (r prescriptionStore) list(ctx context.Context, match func(*prescription.Prescription) bool) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	err := r.s.read(ctx, func(b *bucket) error {
		for _, p := range b.Prescriptions {
			if match(p) {
				out = append(out, copyPrescription(p))
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

func copyPrescription(p *prescription.Prescription) *prescription.Prescription {
	cp := *p
	cp.Items = append([]prescription.Item(nil), p.Items...)
	return &cp
}

type evolutionStore struct{ s *Store }

func (r evolutionStore) Create(ctx context.Context, e *evolution.Evolution) error {
	return r.s.update(ctx, func(b *bucket, owner uuid.UUID) error {
		e.ID = uuid.New()
		e.UserID = owner
		e.CreatedAt = r.s.now()
		cp := *e
		b.Evolutions = append(b.Evolutions, &cp)
		return nil
	})
}

func (r evolutionStore) List(ctx context.Context) ([]*evolution.Evolution, error) {
	return r.list(ctx, func(*evolution.Evolution) bool { return true })
}

func (r evolutionStore) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*evolution.Evolution, error) {
	return r.list(ctx, func(e *evolution.Evolution) bool { return e.PatientID == patientID })
}

func (r evolutionStore) list(ctx context.Context, match func(*evolution.Evolution) bool) ([]*evolution.Evolution, error) {
	var out []*evolution.Evolution
	err := r.s.read(ctx, func(b *bucket) error {
		for _, e := range b.Evolutions {
			if match(e) {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

func keep[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}
