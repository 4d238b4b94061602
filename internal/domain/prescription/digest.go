package prescription

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/events"
	"github.com/medsys/clinic/internal/platform/telemetry"
)

// OwnerLister enumerates the accounts the digest runs for.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
}

// DigestSummary is the payload of an alerts.digest event.
type DigestSummary struct {
	Expired  int         `json:"expired"`
	Expiring int         `json:"expiring"`
	Alerts   []DigestRow `json:"alerts"`
}

type DigestRow struct {
	PrescriptionID uuid.UUID `json:"prescription_id"`
	PatientLabel   string    `json:"patient_label"`
	Status         string    `json:"status"`
}

// Digest publishes a daily summary of expiring prescriptions per account.
type Digest struct {
	svc       *Service
	owners    OwnerLister
	events    events.Publisher
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
	scheduler *gocron.Scheduler
	now       func() time.Time
}

func NewDigest(svc *Service, owners OwnerLister, publisher events.Publisher, metrics *telemetry.Metrics, logger zerolog.Logger) *Digest {
	return &Digest{
		svc:       svc,
		owners:    owners,
		events:    publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "alert_digest").Logger(),
		scheduler: gocron.NewScheduler(time.Local),
		now:       time.Now,
	}
}

// Start schedules the digest every day at the given "HH:MM".
func (d *Digest) Start(at string) error {
	_, err := d.scheduler.Every(1).Day().At(at).Do(func() {
		if err := d.Run(context.Background()); err != nil {
			d.logger.Error().Err(err).Msg("alert digest failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule alert digest: %w", err)
	}
	d.scheduler.StartAsync()
	d.logger.Info().Str("at", at).Msg("alert digest scheduled")
	return nil
}

func (d *Digest) Stop() {
	d.scheduler.Stop()
}

// Run computes the alerts of every account and publishes one digest event
// per account that has any. A failing account is logged and skipped.
func (d *Digest) Run(ctx context.Context) error {
	owners, err := d.owners.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	now := d.now()
	ctx = d.logger.WithContext(ctx)

	for _, owner := range owners {
		octx := db.WithOwner(ctx, owner)
		rows, err := d.svc.Alerts(octx, now)
		if err != nil {
			d.logger.Error().Err(err).Str("owner_id", owner.String()).Msg("alert digest: compute alerts")
			continue
		}
		if len(rows) == 0 {
			continue
		}
		summary := summarize(rows)
		events.Emit(octx, d.events, d.metrics,
			events.New(events.AlertsDigest, owner.String(), "", summary))
		d.logger.Info().
			Str("owner_id", owner.String()).
			Int("expired", summary.Expired).
			Int("expiring", summary.Expiring).
			Msg("alert digest published")
	}
	return nil
}

func summarize(rows []AlertRow) DigestSummary {
	s := DigestSummary{Alerts: make([]DigestRow, 0, len(rows))}
	for _, r := range rows {
		if r.Expired() {
			s.Expired++
		} else {
			s.Expiring++
		}
		s.Alerts = append(s.Alerts, DigestRow{
			PrescriptionID: r.Prescription.ID,
			PatientLabel:   r.PatientLabel,
			Status:         r.Status,
		})
	}
	return s
}
