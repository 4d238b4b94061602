package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/medsys/clinic/internal/domain/account"
	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/preferences"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/internal/platform/auth"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/platform/middleware"
	"github.com/medsys/clinic/migrations"
)

const version = "0.1.0"

// devUserID is the account unauthenticated requests act as in development.
const devUserID = "00000000-0000-0000-0000-000000000001"

func newServer(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.SecurityHeaders(a.cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(a.metrics.Middleware())

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: a.cfg.RateLimitRPS,
		BurstSize:         a.cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))

	jwtCfg := auth.JWTConfig{Issuer: a.issuer, Revocations: a.revocations}
	authMW := auth.JWTMiddleware(jwtCfg)
	if a.cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg, devUserID)
	}
	phiAccess := middleware.AuditRecorderFunc(func(entry middleware.AuditEntry) error {
		a.metrics.PHIAccess(entry.Resource, entry.Action)
		return nil
	})
	protected := apiV1.Group("", authMW, db.OwnerMiddleware(), middleware.Audit(a.logger, phiAccess))

	account.NewHandler(a.accountSvc).RegisterRoutes(apiV1, protected)
	patient.NewHandler(a.patientSvc).RegisterRoutes(protected)
	medication.NewHandler(a.medicationSvc).RegisterRoutes(protected)
	prescription.NewHandler(a.rxSvc).RegisterRoutes(protected)
	evolution.NewHandler(a.evolutionSvc).RegisterRoutes(protected)
	preferences.NewHandler(a.prefs).RegisterRoutes(protected)
	a.overviewHandler().RegisterRoutes(protected)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"storage": a.cfg.StorageBackend,
		})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool, db.NewMigrator(a.pool, migrations.Files, "")))
	}
	e.GET("/metrics", a.metrics.Handler())

	return e
}

func runServer(ctx context.Context, a *app) error {
	e := newServer(a)

	if a.cfg.AlertDigestEnabled {
		digest := prescription.NewDigest(a.rxSvc, a.accounts, a.events, a.metrics, a.logger)
		if err := digest.Start(a.cfg.AlertDigestAt); err != nil {
			return err
		}
		defer digest.Stop()
		a.logger.Info().Str("at", a.cfg.AlertDigestAt).Msg("alert digest scheduled")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + a.cfg.Port
		a.logger.Info().Str("addr", addr).Str("storage", a.cfg.StorageBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info().Msg("server stopped")
	return nil
}
