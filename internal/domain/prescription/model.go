package prescription

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/pkg/civil"
)

// Usage types printed on the prescription header.
const (
	UsageOral       = "oral"
	UsageContinuous = "continuous"
	UsageTopical    = "topical"
)

var validUsageTypes = map[string]bool{
	UsageOral: true, UsageContinuous: true, UsageTopical: true,
}

// Item is one line of a prescription. Items are stored inline with the
// prescription, in the order they were written.
type Item struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Quantity string `json:"quantity"`
}

func (i Item) blank() bool {
	return strings.TrimSpace(i.Name) == ""
}

// Prescription maps to the prescriptions table. Rows are never updated.
type Prescription struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"-"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	Date          civil.Date `db:"date" json:"date"`
	Location      string     `db:"location" json:"location"`
	UsageType     string     `db:"usage_type" json:"usage_type"`
	Items         []Item     `db:"items" json:"items"`
	DoctorName    string     `db:"doctor_name" json:"doctor_name"`
	DoctorLicense string     `db:"doctor_license" json:"doctor_license"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Expiry is the last day the prescription is valid.
func (p *Prescription) Expiry(validityDays int) civil.Date {
	return p.Date.AddDays(validityDays)
}

// Draft is a prescription as filled in by the practitioner. The patient is
// either referenced by PatientID or described by Patient, in which case it
// is matched by cpf or registered on save.
type Draft struct {
	PatientID     uuid.UUID       `json:"patient_id"`
	Patient       patient.Patient `json:"patient"`
	Date          civil.Date      `json:"date"`
	Location      string          `json:"location"`
	UsageType     string          `json:"usage_type"`
	Items         []Item          `json:"items"`
	DoctorName    string          `json:"doctor_name"`
	DoctorLicense string          `json:"doctor_license"`
}

// SaveResult reports what a save wrote besides the prescription itself.
type SaveResult struct {
	Prescription   *Prescription            `json:"prescription"`
	Patient        *patient.Patient         `json:"patient"`
	PatientCreated bool                     `json:"patient_created"`
	Medications    []*medication.Medication `json:"medications_created"`
}

// DropBlankItems returns the items that name a medication.
func DropBlankItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.blank() {
			continue
		}
		it.Name = strings.TrimSpace(it.Name)
		out = append(out, it)
	}
	return out
}

// CatalogItems converts prescription lines for catalog reconciliation.
func CatalogItems(items []Item) []medication.CatalogItem {
	out := make([]medication.CatalogItem, len(items))
	for i, it := range items {
		out[i] = medication.CatalogItem{Name: it.Name, Dosage: it.Dosage}
	}
	return out
}
