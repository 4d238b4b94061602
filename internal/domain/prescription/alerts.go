package prescription

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/pkg/civil"
)

const (
	DefaultValidityDays = 60
	DefaultWarningDays  = 7

	StatusExpired = "EXPIRED"
)

// AlertOptions sets the validity window of a prescription and how many days
// before expiry it starts to show up as an alert.
type AlertOptions struct {
	ValidityDays int
	WarningDays  int
}

func DefaultAlertOptions() AlertOptions {
	return AlertOptions{ValidityDays: DefaultValidityDays, WarningDays: DefaultWarningDays}
}

// withDefaults fills unset windows. The zero AlertOptions means the defaults,
// so an explicit zero-day warning needs a non-zero ValidityDays.
func (o AlertOptions) withDefaults() AlertOptions {
	if o == (AlertOptions{}) {
		return DefaultAlertOptions()
	}
	if o.ValidityDays <= 0 {
		o.ValidityDays = DefaultValidityDays
	}
	if o.WarningDays < 0 {
		o.WarningDays = DefaultWarningDays
	}
	return o
}

// PatientIndex resolves the patient a prescription belongs to.
type PatientIndex interface {
	Lookup(id uuid.UUID) (*patient.Patient, bool)
}

// AlertRow is a prescription that has expired or is about to.
type AlertRow struct {
	Prescription *Prescription    `json:"prescription"`
	Patient      *patient.Patient `json:"patient,omitempty"`
	PatientLabel string           `json:"patient_label"`
	ExpiresOn    civil.Date       `json:"expires_on"`
	DaysUntil    int              `json:"days_until_expiry"`
	// Status is EXPIRED only once a full day has passed since ExpiresOn;
	// until then it reads "EXPIRES IN 0 DAYS".
	Status       string           `json:"status"`
}

// Expired reports whether the prescription's validity has run out.
func (r AlertRow) Expired() bool { return r.DaysUntil < 0 }

func alertStatus(daysUntil int) string {
	if daysUntil < 0 {
		return StatusExpired
	}
	return fmt.Sprintf("EXPIRES IN %d DAYS", daysUntil)
}

// ComputeAlerts returns one row per prescription whose expiry is at most
// WarningDays away from now, including those already expired, ordered by
// issue date. Days are whole 24-hour periods truncated toward zero.
// Prescriptions without an issue date are skipped, and a prescription whose
// patient is gone is reported under patient.UnknownLabel.
func ComputeAlerts(prescriptions []*Prescription, patients PatientIndex, now time.Time, opts AlertOptions) []AlertRow {
	opts = opts.withDefaults()

	var rows []AlertRow
	for _, p := range prescriptions {
		if p == nil || p.Date.IsZero() {
			continue
		}
		expiry := p.Expiry(opts.ValidityDays)
		daysUntil := int(expiry.Time().Sub(now) / (24 * time.Hour))
		if daysUntil > opts.WarningDays {
			continue
		}

		var pt *patient.Patient
		if patients != nil {
			pt, _ = patients.Lookup(p.PatientID)
		}
		rows = append(rows, AlertRow{
			Prescription: p,
			Patient:      pt,
			PatientLabel: pt.Label(),
			ExpiresOn:    expiry,
			DaysUntil:    daysUntil,
			Status:       alertStatus(daysUntil),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Prescription.Date.Before(rows[j].Prescription.Date)
	})
	return rows
}
