// Package workspace drives the terminal client: it keeps the signed-in
// practitioner's records in memory, routes edits to the backend and renders
// the active view.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/overview"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/preferences"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/internal/platform/auth"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/events"
	"github.com/medsys/clinic/internal/platform/telemetry"
	"github.com/medsys/clinic/pkg/civil"
	"github.com/medsys/clinic/pkg/textnorm"
)

var (
	ErrValidation        = domain.ErrValidation
	ErrPatientUnresolved = prescription.ErrPatientUnresolved
	ErrNotSignedIn       = errors.New("not signed in")
)

// Confirmer asks the practitioner to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Notifier shows the outcome of an action.
type Notifier interface {
	Success(msg string)
	Failure(err error)
}

// Options carries the optional collaborators of a Coordinator.
type Options struct {
	Preferences preferences.Store
	Confirmer   Confirmer
	Notifier    Notifier
	Events      events.Publisher
	Metrics     *telemetry.Metrics
	Alerts      prescription.AlertOptions
	Logger      zerolog.Logger
}

// Coordinator owns the four record collections of the signed-in account.
type Coordinator struct {
	backend       Backend
	patientSvc    *patient.Service
	medicationSvc *medication.Service
	rxSvc         *prescription.Service
	evolutionSvc  *evolution.Service
	prefs         preferences.Store
	confirm       Confirmer
	notify        Notifier
	alerts        prescription.AlertOptions
	logger        zerolog.Logger
	now           func() time.Time

	mu            sync.RWMutex
	view          View
	session       *auth.Session
	patients      []*patient.Patient
	prescriptions []*prescription.Prescription
	medications   []*medication.Medication
	evolutions    []*evolution.Evolution
}

func New(backend Backend, opts Options) *Coordinator {
	if opts.Alerts == (prescription.AlertOptions{}) {
		opts.Alerts = prescription.DefaultAlertOptions()
	}
	rx := prescription.NewService(backend.Prescriptions(), backend.Patients(), backend.Medications(),
		backend.Tx(), opts.Events, opts.Metrics)
	rx.SetPreferences(opts.Preferences)
	rx.SetAlertOptions(opts.Alerts)

	c := &Coordinator{
		backend:       backend,
		patientSvc:    patient.NewService(backend.Patients(), opts.Events, opts.Metrics),
		medicationSvc: medication.NewService(backend.Medications(), opts.Events, opts.Metrics),
		rxSvc:         rx,
		evolutionSvc:  evolution.NewService(backend.Evolutions(), opts.Preferences),
		prefs:         opts.Preferences,
		confirm:       opts.Confirmer,
		notify:        opts.Notifier,
		alerts:        opts.Alerts,
		logger:        opts.Logger,
		now:           time.Now,
		view:          ViewDashboard,
	}
	if c.confirm == nil {
		c.confirm = denyAll{}
	}
	if c.notify == nil {
		c.notify = silent{}
	}
	return c
}

// Bind keeps the coordinator in step with the session notifier and returns
// the function that detaches it.
func (c *Coordinator) Bind(n *auth.SessionNotifier) func() {
	return n.Subscribe(c.OnAuthChange)
}

// OnAuthChange loads the account's records when a session starts and clears
// them when it ends.
func (c *Coordinator) OnAuthChange(s *auth.Session) {
	if s.Expired(c.now()) {
		c.mu.Lock()
		c.session = nil
		c.patients, c.prescriptions, c.medications, c.evolutions = nil, nil, nil, nil
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	if err := c.Reload(context.Background()); err != nil {
		c.notify.Failure(fmt.Errorf("loading records: %w", err))
	}
}

// Session returns the active session, nil when signed out.
func (c *Coordinator) Session() *auth.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Coordinator) scope(ctx context.Context) (context.Context, error) {
	s := c.Session()
	if s == nil {
		return nil, ErrNotSignedIn
	}
	ctx = db.WithOwner(ctx, s.UserID)
	return c.logger.With().Str("user_id", s.UserID.String()).Logger().WithContext(ctx), nil
}

// Reload replaces every collection with the backend's current rows. On
// failure the collections are left as they were.
func (c *Coordinator) Reload(ctx context.Context) error {
	ctx, err := c.scope(ctx)
	if err != nil {
		return err
	}
	patients, err := c.backend.Patients().List(ctx)
	if err != nil {
		return err
	}
	rxs, err := c.backend.Prescriptions().List(ctx)
	if err != nil {
		return err
	}
	meds, err := c.backend.Medications().List(ctx)
	if err != nil {
		return err
	}
	notes, err := c.backend.Evolutions().List(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.patients, c.prescriptions, c.medications, c.evolutions = patients, rxs, meds, notes
	c.mu.Unlock()
	return nil
}

// Snapshot is a copy of the collections, safe to read while edits go on.
type Snapshot struct {
	Patients      []*patient.Patient
	Prescriptions []*prescription.Prescription
	Medications   []*medication.Medication
	Evolutions    []*evolution.Evolution
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Patients:      append([]*patient.Patient(nil), c.patients...),
		Prescriptions: append([]*prescription.Prescription(nil), c.prescriptions...),
		Medications:   append([]*medication.Medication(nil), c.medications...),
		Evolutions:    append([]*evolution.Evolution(nil), c.evolutions...),
	}
}

// report passes err to the notifier and returns it, or announces success.
func (c *Coordinator) report(err error, success string) error {
	if err != nil {
		c.notify.Failure(err)
		return err
	}
	c.notify.Success(success)
	return nil
}

// -- Patients --

// CreatePatient registers p. A zero birth date is stored as empty.
func (c *Coordinator) CreatePatient(ctx context.Context, p *patient.Patient) error {
	ctx, err := c.scope(ctx)
	if err == nil {
		err = c.patientSvc.Create(ctx, p)
	}
	if err == nil {
		c.mu.Lock()
		c.patients = append([]*patient.Patient{p}, c.patients...)
		c.mu.Unlock()
	}
	return c.report(err, "Patient registered.")
}

// UpdatePatient replaces the stored patient with p.
func (c *Coordinator) UpdatePatient(ctx context.Context, p *patient.Patient) error {
	ctx, err := c.scope(ctx)
	if err == nil {
		err = c.patientSvc.Update(ctx, p)
	}
	if err == nil {
		c.mu.Lock()
		for i, existing := range c.patients {
			if existing.ID == p.ID {
				c.patients[i] = p
			}
		}
		c.mu.Unlock()
	}
	return c.report(err, "Patient updated.")
}

// DeletePatient removes the patient with their prescriptions and notes once
// the practitioner confirms. It reports whether anything was deleted.
func (c *Coordinator) DeletePatient(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, err := c.scope(ctx)
	if err != nil {
		return false, c.report(err, "")
	}
	label := patient.UnknownLabel
	if p, ok := c.patientIndex().Lookup(id); ok {
		label = p.Label()
	}
	if !c.confirm.Confirm(fmt.Sprintf("Delete %s and all of their prescriptions and notes?", label)) {
		return false, nil
	}
	if err := c.patientSvc.Delete(ctx, id); err != nil {
		return false, c.report(err, "")
	}

	c.mu.Lock()
	c.patients = filter(c.patients, func(p *patient.Patient) bool { return p.ID != id })
	c.prescriptions = filter(c.prescriptions, func(p *prescription.Prescription) bool { return p.PatientID != id })
	c.evolutions = filter(c.evolutions, func(e *evolution.Evolution) bool { return e.PatientID != id })
	c.mu.Unlock()
	return true, c.report(nil, "Patient deleted.")
}

// -- Medications --

func (c *Coordinator) CreateMedication(ctx context.Context, m *medication.Medication) error {
	ctx, err := c.scope(ctx)
	if err == nil {
		err = c.medicationSvc.Create(ctx, m)
	}
	if err == nil {
		c.mu.Lock()
		c.medications = sortByName(append(c.medications, m))
		c.mu.Unlock()
	}
	return c.report(err, "Medication added.")
}

func (c *Coordinator) UpdateMedication(ctx context.Context, m *medication.Medication) error {
	ctx, err := c.scope(ctx)
	if err == nil {
		err = c.medicationSvc.Update(ctx, m)
	}
	if err == nil {
		c.mu.Lock()
		for i, existing := range c.medications {
			if existing.ID == m.ID {
				c.medications[i] = m
			}
		}
		c.medications = sortByName(c.medications)
		c.mu.Unlock()
	}
	return c.report(err, "Medication updated.")
}

func (c *Coordinator) DeleteMedication(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, err := c.scope(ctx)
	if err != nil {
		return false, c.report(err, "")
	}
	name := "this medication"
	for _, m := range c.Snapshot().Medications {
		if m.ID == id {
			name = m.Name
		}
	}
	if !c.confirm.Confirm(fmt.Sprintf("Delete %s from the inventory?", name)) {
		return false, nil
	}
	if err := c.medicationSvc.Delete(ctx, id); err != nil {
		return false, c.report(err, "")
	}
	c.mu.Lock()
	c.medications = filter(c.medications, func(m *medication.Medication) bool { return m.ID != id })
	c.mu.Unlock()
	return true, c.report(nil, "Medication deleted.")
}

// -- Prescriptions and notes --

// SavePrescription saves the draft, then reloads the collections so the new
// prescription, any registered patient and any catalog entries show up.
func (c *Coordinator) SavePrescription(ctx context.Context, d prescription.Draft) (*prescription.SaveResult, error) {
	sctx, err := c.scope(ctx)
	if err != nil {
		return nil, c.report(err, "")
	}
	res, err := c.rxSvc.Save(sctx, d, c.Snapshot().Medications)
	if err != nil {
		return nil, c.report(err, "")
	}
	if err := c.Reload(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("reload after prescription save failed")
	}
	return res, c.report(nil, "Prescription saved.")
}

func (c *Coordinator) SaveEvolution(ctx context.Context, e *evolution.Evolution) error {
	ctx, err := c.scope(ctx)
	if err == nil {
		err = c.evolutionSvc.Create(ctx, e)
	}
	if err == nil {
		c.mu.Lock()
		c.evolutions = append([]*evolution.Evolution{e}, c.evolutions...)
		sort.SliceStable(c.evolutions, func(i, j int) bool {
			return c.evolutions[i].Date.After(c.evolutions[j].Date)
		})
		c.mu.Unlock()
	}
	return c.report(err, "Note saved.")
}

// -- Derived views --

func (c *Coordinator) patientIndex() patient.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return patient.NewIndex(c.patients)
}

// Timeline is the merged history of one patient.
func (c *Coordinator) Timeline(patientID uuid.UUID) []overview.Entry {
	s := c.Snapshot()
	return overview.Timeline(patientID, s.Prescriptions, s.Evolutions, c.now())
}

func (c *Coordinator) Dashboard() overview.Dashboard {
	s := c.Snapshot()
	return overview.Summarize(s.Patients, s.Prescriptions, s.Medications)
}

func (c *Coordinator) Alerts(now time.Time) []prescription.AlertRow {
	s := c.Snapshot()
	return prescription.ComputeAlerts(s.Prescriptions, patient.NewIndex(s.Patients), now, c.alerts)
}

// SearchPatients filters by name or cpf, ignoring case and accents.
func (c *Coordinator) SearchPatients(term string) []*patient.Patient {
	return patient.Filter(c.Snapshot().Patients, term)
}

// SuggestMedications returns catalog entries whose name contains term.
func (c *Coordinator) SuggestMedications(term string) []*medication.Medication {
	var out []*medication.Medication
	for _, m := range c.Snapshot().Medications {
		if term != "" && textnorm.Contains(m.Name, term) {
			out = append(out, m)
		}
	}
	return out
}

// FindPatientByCPF matches a typed cpf once it has all eleven digits.
func (c *Coordinator) FindPatientByCPF(cpf string) (*patient.Patient, bool) {
	digits, ok := patient.MatchableCPF(cpf)
	if !ok {
		return nil, false
	}
	for _, p := range c.Snapshot().Patients {
		if patient.NormalizeCPF(p.CPF) == digits {
			return p, true
		}
	}
	return nil, false
}

// Today is the current calendar day, for forms that default to it.
func (c *Coordinator) Today() civil.Date {
	return civil.FromTime(c.now())
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := items[:0:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func sortByName(meds []*medication.Medication) []*medication.Medication {
	sort.SliceStable(meds, func(i, j int) bool {
		return strings.ToLower(meds[i].Name) < strings.ToLower(meds[j].Name)
	})
	return meds
}

type denyAll struct{}

func (denyAll) Confirm(string) bool { return false }

type silent struct{}

func (silent) Success(string) {}
func (silent) Failure(error)  {}
