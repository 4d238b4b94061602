package prescription

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores prescriptions. Lists are ordered by issue date, newest
// first.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	List(ctx context.Context) ([]*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
}
