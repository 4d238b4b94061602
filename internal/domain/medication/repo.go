package medication

import (
	"context"

	"github.com/google/uuid"
)

// NameLookup finds a catalog entry by case-insensitive exact name. It
// returns an error wrapping domain.ErrNotFound when nothing matches.
type NameLookup interface {
	FindByName(ctx context.Context, name string) (*Medication, error)
}

// Catalog is the part of the store that prescription saves write through.
type Catalog interface {
	NameLookup
	Create(ctx context.Context, m *Medication) error
}

type Repository interface {
	Catalog
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns the catalog ordered by name.
	List(ctx context.Context) ([]*Medication, error)
}
