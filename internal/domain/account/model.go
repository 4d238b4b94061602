package account

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProviderPassword = "password"
	ProviderOIDC     = "oidc"
)

// User is a practitioner account. PasswordHash is empty for accounts that
// only sign in through the identity provider.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Provider     string    `db:"provider" json:"provider"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NormalizeEmail is the form e-mails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Repository interface {
	// Create returns ErrEmailTaken when the e-mail is already registered.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
}
