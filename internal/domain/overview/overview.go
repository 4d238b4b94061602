// Package overview derives the read-only summaries shown on the dashboard
// and on a patient's history page.
package overview

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/pkg/civil"
	"github.com/medsys/clinic/pkg/textnorm"
)

const (
	KindPrescription = "prescription"
	KindEvolution    = "evolution"

	StatusActive  = "active"
	StatusExpired = "expired"

	// ActiveDays is how long after issue a prescription counts as active on
	// the timeline.
	ActiveDays = 30

	previewRunes = 100
)

// Entry is one item of a patient's history.
type Entry struct {
	Kind          string     `json:"kind"`
	ID            uuid.UUID  `json:"id"`
	Date          civil.Date `json:"date"`
	Status        string     `json:"status,omitempty"`
	Items         []string   `json:"items,omitempty"`
	UsageType     string     `json:"usage_type,omitempty"`
	Preview       string     `json:"preview,omitempty"`
	DoctorName    string     `json:"doctor_name"`
	DoctorLicense string     `json:"doctor_license"`
}

// Timeline merges a patient's prescriptions and evolution notes, newest
// first. Records of other patients are ignored.
func Timeline(patientID uuid.UUID, rxs []*prescription.Prescription, notes []*evolution.Evolution, now time.Time) []Entry {
	activeSince := now.Add(-ActiveDays * 24 * time.Hour)

	entries := make([]Entry, 0, len(rxs)+len(notes))
	for _, p := range rxs {
		if p.PatientID != patientID {
			continue
		}
		status := StatusExpired
		if p.Date.Time().After(activeSince) {
			status = StatusActive
		}
		names := make([]string, len(p.Items))
		for i, it := range p.Items {
			names[i] = it.Name
		}
		entries = append(entries, Entry{
			Kind:          KindPrescription,
			ID:            p.ID,
			Date:          p.Date,
			Status:        status,
			Items:         names,
			UsageType:     p.UsageType,
			DoctorName:    p.DoctorName,
			DoctorLicense: p.DoctorLicense,
		})
	}
	for _, e := range notes {
		if e.PatientID != patientID {
			continue
		}
		entries = append(entries, Entry{
			Kind:          KindEvolution,
			ID:            e.ID,
			Date:          e.Date,
			Preview:       textnorm.Truncate(e.Content, previewRunes),
			DoctorName:    e.DoctorName,
			DoctorLicense: e.DoctorLicense,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}

// Dashboard holds the counters on the landing page.
type Dashboard struct {
	Patients      int `json:"patients"`
	Prescriptions int `json:"prescriptions"`
	Medications   int `json:"medications"`
	LowStock      int `json:"low_stock"`
}

func Summarize(patients []*patient.Patient, rxs []*prescription.Prescription, meds []*medication.Medication) Dashboard {
	d := Dashboard{
		Patients:      len(patients),
		Prescriptions: len(rxs),
		Medications:   len(meds),
	}
	for _, m := range meds {
		if m.LowStock() {
			d.LowStock++
		}
	}
	return d
}
