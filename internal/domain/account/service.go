package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/platform/auth"
)

const minPasswordLen = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrOAuthDisabled      = errors.New("oauth sign-in is not configured")
)

// IdentityVerifier checks an identity-provider id_token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.Identity, error)
}

type Service struct {
	users       Repository
	issuer      *auth.Issuer
	revocations auth.RevocationStore
	verifier    IdentityVerifier
	hashCost    int
}

// NewService wires account management. verifier may be nil, which disables
// OAuth sign-in.
func NewService(users Repository, issuer *auth.Issuer, revocations auth.RevocationStore, verifier IdentityVerifier) *Service {
	return &Service{
		users:       users,
		issuer:      issuer,
		revocations: revocations,
		verifier:    verifier,
		hashCost:    bcrypt.DefaultCost,
	}
}

type SignUpInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Confirmation string `json:"password_confirmation"`
}

func (in *SignUpInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	switch {
	case in.Name == "":
		return domain.Invalid("name is required")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return domain.Invalid("a valid email is required")
	case len(in.Password) < minPasswordLen:
		return domain.Invalid("password must have at least %d characters", minPasswordLen)
	case in.Password != in.Confirmation:
		return domain.Invalid("passwords do not match")
	}
	return nil
}

// SignUp registers a password account and signs it in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*auth.Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{Email: in.Email, Name: in.Name, PasswordHash: string(hash), Provider: ProviderPassword}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("user_id", u.ID.String()).Msg("account created")
	return s.startSession(u)
}

// Login checks an e-mail and password. Unknown e-mails and wrong passwords
// fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(u)
}

// LoginOAuth signs in with an identity-provider id_token, registering the
// account on first use.
func (s *Service) LoginOAuth(ctx context.Context, idToken string) (*auth.Session, error) {
	if s.verifier == nil {
		return nil, ErrOAuthDisabled
	}
	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	u, err := s.users.GetByEmail(ctx, id.Email)
	if errors.Is(err, domain.ErrNotFound) {
		u = &User{Email: id.Email, Name: id.Name, Provider: ProviderOIDC}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		zerolog.Ctx(ctx).Info().Str("user_id", u.ID.String()).Msg("account created from identity provider")
	} else if err != nil {
		return nil, err
	}
	return s.startSession(u)
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.revocations == nil || tokenID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, tokenID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Current returns the account behind a session.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// Restore validates a stored session token, returning the session it
// describes when the token is still good.
func (s *Service) Restore(ctx context.Context, token string) (*auth.Session, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, auth.ErrInvalidToken
		}
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Session{
		UserID:    uid,
		Email:     claims.Email,
		Name:      claims.Name,
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) startSession(u *User) (*auth.Session, error) {
	tok, err := s.issuer.Issue(u.ID, u.Email, u.Name)
	if err != nil {
		return nil, err
	}
	return &auth.Session{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Token:     tok.Value,
		TokenID:   tok.ID,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}
