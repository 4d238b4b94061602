// Package localstore keeps a workspace's records in a single JSON file, for
// practitioners running without a database. Writes replace the file
// atomically through a temporary file in the same directory.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain/account"
	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/internal/platform/db"
)

type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}

// bucket holds one account's rows. Rows do not carry their owner in the
// file; it is restored from the bucket key.
type bucket struct {
	Patients      []*patient.Patient           `json:"patients"`
	Medications   []*medication.Medication     `json:"medications"`
	Prescriptions []*prescription.Prescription `json:"prescriptions"`
	Evolutions    []*evolution.Evolution       `json:"evolutions"`
	Preferences   map[string]string            `json:"preferences"`
}

type document struct {
	Users  []userRecord          `json:"users"`
	Owners map[uuid.UUID]*bucket `json:"owners"`
	Device map[string]string     `json:"device"`
}

// Store is a file-backed implementation of the workspace persistence.
type Store struct {
	path string
	now  func() time.Time

	mu  sync.Mutex
	doc document
}

// Open loads path, starting empty when the file does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read local store: %w", err)
	default:
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, fmt.Errorf("decode local store %s: %w", path, err)
		}
	}
	if s.doc.Owners == nil {
		s.doc.Owners = make(map[uuid.UUID]*bucket)
	}
	if s.doc.Device == nil {
		s.doc.Device = make(map[string]string)
	}
	for owner, b := range s.doc.Owners {
		b.restoreOwner(owner)
	}
	return s, nil
}

func (b *bucket) restoreOwner(owner uuid.UUID) {
	for _, p := range b.Patients {
		p.UserID = owner
	}
	for _, m := range b.Medications {
		m.UserID = owner
	}
	for _, p := range b.Prescriptions {
		p.UserID = owner
	}
	for _, e := range b.Evolutions {
		e.UserID = owner
	}
}

// flush writes the document. Callers hold s.mu.
func (s *Store) flush() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create local store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".medsys-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write local store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close local store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}

// update runs fn on the bucket of the context owner and persists the result.
// If fn or the write fails the in-memory document is rolled back.
func (s *Store) update(ctx context.Context, fn func(b *bucket, owner uuid.UUID) error) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	backup, err := s.clone()
	if err != nil {
		return err
	}
	b := s.bucketFor(owner)
	if err := fn(b, owner); err != nil {
		s.doc = backup
		return err
	}
	if err := s.flush(); err != nil {
		s.doc = backup
		return err
	}
	return nil
}

// read runs fn on the context owner's bucket without persisting.
func (s *Store) read(ctx context.Context, fn func(b *bucket) error) error {
	owner, err := db.RequireOwner(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.bucketFor(owner))
}

func (s *Store) bucketFor(owner uuid.UUID) *bucket {
	b, ok := s.doc.Owners[owner]
	if !ok {
		b = &bucket{Preferences: make(map[string]string)}
		s.doc.Owners[owner] = b
	}
	if b.Preferences == nil {
		b.Preferences = make(map[string]string)
	}
	return b
}

// clone deep-copies the document through its JSON form.
func (s *Store) clone() (document, error) {
	raw, err := json.Marshal(s.doc)
	if err != nil {
		return document{}, fmt.Errorf("snapshot local store: %w", err)
	}
	var out document
	if err := json.Unmarshal(raw, &out); err != nil {
		return document{}, fmt.Errorf("snapshot local store: %w", err)
	}
	for owner, b := range out.Owners {
		b.restoreOwner(owner)
	}
	if out.Device == nil {
		out.Device = make(map[string]string)
	}
	return out, nil
}

// WithTx runs fn and restores the file's previous contents if it fails.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	backup, err := s.clone()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.doc = backup
		if ferr := s.flush(); ferr != nil {
			err = fmt.Errorf("%w (rollback: %v)", err, ferr)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Patients() patient.Repository           { return patientStore{s} }
func (s *Store) Medications() medication.Repository     { return medicationStore{s} }
func (s *Store) Prescriptions() prescription.Repository { return prescriptionStore{s} }
func (s *Store) Evolutions() evolution.Repository       { return evolutionStore{s} }
func (s *Store) Tx() db.TxRunner                        { return s }
func (s *Store) Accounts() account.Repository           { return accountStore{s} }
