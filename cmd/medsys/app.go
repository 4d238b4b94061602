package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medsys/clinic/internal/config"
	"github.com/medsys/clinic/internal/domain/account"
	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/overview"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/preferences"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/internal/platform/auth"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/events"
	"github.com/medsys/clinic/internal/platform/hipaa"
	"github.com/medsys/clinic/internal/platform/telemetry"
	"github.com/medsys/clinic/internal/store/localstore"
	"github.com/medsys/clinic/internal/workspace"
)

// devSigningKey signs tokens in development when AUTH_SIGNING_KEY is unset,
// so CLI sessions survive between runs.
const devSigningKey = "medsys-development-signing-key-0"

// app is everything a command needs, built once from the configuration.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	events  events.Publisher

	pool     *pgxpool.Pool // nil on the local store
	backend  workspace.Backend
	accounts account.Repository
	prefs    preferences.Store
	device   preferences.Store

	issuer      *auth.Issuer
	revocations auth.RevocationStore
	accountSvc  *account.Service

	patientSvc    *patient.Service
	medicationSvc *medication.Service
	rxSvc         *prescription.Service
	evolutionSvc  *evolution.Service

	closers []func()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &app{
		cfg:     cfg,
		logger:  newLogger(cfg),
		metrics: telemetry.NewMetrics(),
	}
	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openAuth(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.events = kp
		a.onClose(func() { _ = kp.Close() })
	} else {
		a.events = events.Nop{}
	}

	a.patientSvc = patient.NewService(a.backend.Patients(), a.events, a.metrics)
	a.medicationSvc = medication.NewService(a.backend.Medications(), a.events, a.metrics)
	a.rxSvc = prescription.NewService(a.backend.Prescriptions(), a.backend.Patients(), a.backend.Medications(),
		a.backend.Tx(), a.events, a.metrics)
	a.rxSvc.SetPreferences(a.prefs)
	a.rxSvc.SetAlertOptions(a.alertOptions())
	a.evolutionSvc = evolution.NewService(a.backend.Evolutions(), a.prefs)
	return a, nil
}

// openStorage selects the backend. The device store (saved session and
// remembered e-mail) always lives in the local file.
func (a *app) openStorage(ctx context.Context) error {
	local, err := localstore.Open(a.cfg.LocalStorePath)
	if err != nil {
		return err
	}
	a.device = local.Device()

	if a.cfg.UsesLocalStore() {
		a.backend = local
		a.accounts = local.Accounts()
		a.prefs = local.Preferences()
		return nil
	}

	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.pool = pool
	a.onClose(pool.Close)

	var enc *hipaa.PHIEncryptor
	if key := a.cfg.PHIKey(); key != nil {
		if enc, err = hipaa.NewPHIEncryptor(key); err != nil {
			return fmt.Errorf("phi encryptor: %w", err)
		}
	}
	a.backend = workspace.NewRepoBackend(pool, enc)
	a.accounts = account.NewRepo(pool)
	a.prefs = preferences.NewStore(pool)
	return nil
}

func (a *app) openAuth(ctx context.Context) error {
	key := a.cfg.AuthSigningKey
	if key == "" {
		key = devSigningKey
	}
	a.issuer = auth.NewIssuer([]byte(key), a.cfg.AuthTokenTTL)

	if a.cfg.RedisURL != "" {
		rs, err := auth.NewRedisRevocationStore(ctx, a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("revocation store: %w", err)
		}
		a.revocations = rs
		a.onClose(func() { _ = rs.Close() })
	} else {
		ms := auth.NewMemoryRevocationStore()
		a.revocations = ms
		a.onClose(ms.Close)
	}

	var verifier account.IdentityVerifier
	if a.cfg.OAuthIssuer != "" {
		v, err := auth.NewOIDCVerifier(ctx, a.cfg.OAuthIssuer, a.cfg.OAuthClientID)
		if err != nil {
			return fmt.Errorf("oidc discovery: %w", err)
		}
		verifier = v
	}
	a.accountSvc = account.NewService(a.accounts, a.issuer, a.revocations, verifier)
	return nil
}

func (a *app) alertOptions() prescription.AlertOptions {
	return prescription.AlertOptions{
		ValidityDays: a.cfg.PrescriptionValidityDays,
		WarningDays:  a.cfg.PrescriptionWarningDays,
	}
}

func (a *app) overviewHandler() *overview.Handler {
	return overview.NewHandler(a.patientSvc, a.rxSvc, a.evolutionSvc, a.medicationSvc)
}

func (a *app) onClose(fn func()) { a.closers = append(a.closers, fn) }

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// workspace builds a coordinator over the app's backend. The caller restores
// or starts a session on it.
func (a *app) workspace(confirm workspace.Confirmer, notify workspace.Notifier) *workspace.Coordinator {
	return workspace.New(a.backend, workspace.Options{
		Preferences: a.prefs,
		Confirmer:   confirm,
		Notifier:    notify,
		Events:      a.events,
		Metrics:     a.metrics,
		Alerts:      a.alertOptions(),
		Logger:      a.logger,
	})
}
