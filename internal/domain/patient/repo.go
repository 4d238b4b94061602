package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository is scoped to the owner carried by the context.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns every patient, newest first.
	List(ctx context.Context) ([]*Patient, error)
	// FindByCPF matches on the normalized cpf.
	FindByCPF(ctx context.Context, cpfDigits string) (*Patient, error)
}
