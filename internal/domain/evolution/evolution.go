// Package evolution records clinical-evolution notes. Notes are written once
// and never edited.
package evolution

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/pkg/civil"
)

// Evolution maps to the evolutions table.
type Evolution struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"-"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	Date          civil.Date `db:"date" json:"date"`
	Content       string     `db:"content" json:"content"`
	DoctorName    string     `db:"doctor_name" json:"doctor_name"`
	DoctorLicense string     `db:"doctor_license" json:"doctor_license"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Repository lists are ordered by date, newest first.
type Repository interface {
	Create(ctx context.Context, e *Evolution) error
	List(ctx context.Context) ([]*Evolution, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Evolution, error)
}
