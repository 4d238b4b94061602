package localstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/domain/account"
	"github.com/medsys/clinic/internal/domain/preferences"
)

// Accounts are shared by every owner in the file and need no owner in the
// context.
type accountStore struct{ s *Store }

func (r accountStore) Create(_ context.Context, u *account.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = account.NormalizeEmail(u.Email)
	for _, rec := range r.s.doc.Users {
		if rec.Email == u.Email {
			return account.ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = r.s.now()
	r.s.doc.Users = append(r.s.doc.Users, userRecord{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Provider:     u.Provider,
		CreatedAt:    u.CreatedAt,
	})
	if err := r.s.flush(); err != nil {
		r.s.doc.Users = r.s.doc.Users[:len(r.s.doc.Users)-1]
		return err
	}
	return nil
}

func (r accountStore) GetByID(_ context.Context, id uuid.UUID) (*account.User, error) {
	return r.find(func(rec userRecord) bool { return rec.ID == id })
}

func (r accountStore) GetByEmail(_ context.Context, email string) (*account.User, error) {
	email = account.NormalizeEmail(email)
	return r.find(func(rec userRecord) bool { return rec.Email == email })
}

func (r accountStore) find(match func(userRecord) bool) (*account.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.doc.Users {
		if match(rec) {
			return &account.User{
				ID:           rec.ID,
				Email:        rec.Email,
				Name:         rec.Name,
				PasswordHash: rec.PasswordHash,
				Provider:     rec.Provider,
				CreatedAt:    rec.CreatedAt,
			}, nil
		}
	}
	return nil, domain.NotFound("user")
}

func (r accountStore) ListOwners(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(r.s.doc.Users))
	for _, rec := range r.s.doc.Users {
		out = append(out, rec.ID)
	}
	return out, nil
}

// Preferences returns the store of the context owner's settings.
func (s *Store) Preferences() preferences.Store { return ownerPrefs{s} }

// Device returns the settings of this installation: the saved session and
// the remembered e-mail. They survive sign-out.
func (s *Store) Device() preferences.Store { return devicePrefs{s} }

type ownerPrefs struct{ s *Store }

func (p ownerPrefs) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.s.read(ctx, func(b *bucket) error {
		value = b.Preferences[key]
		return nil
	})
	return value, err
}

func (p ownerPrefs) Set(ctx context.Context, key, value string) error {
	return p.s.update(ctx, func(b *bucket, _ uuid.UUID) error {
		b.Preferences[key] = value
		return nil
	})
}

func (p ownerPrefs) All(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	err := p.s.read(ctx, func(b *bucket) error {
		for k, v := range b.Preferences {
			out[k] = v
		}
		return nil
	})
	return out, err
}

type devicePrefs struct{ s *Store }

func (p devicePrefs) Get(_ context.Context, key string) (string, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.doc.Device[key], nil
}

// Set stores value; an empty value removes the key.
func (p devicePrefs) Set(_ context.Context, key, value string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	prev, had := p.s.doc.Device[key]
	if value == "" {
		delete(p.s.doc.Device, key)
	} else {
		p.s.doc.Device[key] = value
	}
	if err := p.s.flush(); err != nil {
		if had {
			p.s.doc.Device[key] = prev
		} else {
			delete(p.s.doc.Device, key)
		}
		return err
	}
	return nil
}

func (p devicePrefs) All(context.Context) (map[string]string, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	out := make(map[string]string, len(p.s.doc.Device))
	for k, v := range p.s.doc.Device {
		out[k] = v
	}
	return out, nil
}
