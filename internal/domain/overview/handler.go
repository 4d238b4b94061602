package overview

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/pkg/civil"
)

type Handler struct {
	patients      *patient.Service
	prescriptions *prescription.Service
	evolutions    *evolution.Service
	medications   *medication.Service
	now           func() time.Time
}

func NewHandler(patients *patient.Service, rxs *prescription.Service, notes *evolution.Service, meds *medication.Service) *Handler {
	return &Handler{
		patients:      patients,
		prescriptions: rxs,
		evolutions:    notes,
		medications:   meds,
		now:           time.Now,
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/patients/:id/timeline", h.GetTimeline)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	patients, err := h.patients.List(ctx, "")
	if err != nil {
		return domain.HTTPError(err)
	}
	rxs, err := h.prescriptions.List(ctx, uuid.Nil)
	if err != nil {
		return domain.HTTPError(err)
	}
	meds, err := h.medications.List(ctx, medication.Filter{})
	if err != nil {
		return domain.HTTPError(err)
	}
	return c.JSON(http.StatusOK, Summarize(patients, rxs, meds))
}

type timelineResponse struct {
	Patient *patient.Patient `json:"patient"`
	Age     *int             `json:"age"`
	Entries []Entry          `json:"entries"`
}

func (h *Handler) GetTimeline(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	p, err := h.patients.Get(ctx, id)
	if err != nil {
		return domain.HTTPError(err)
	}
	rxs, err := h.prescriptions.List(ctx, id)
	if err != nil {
		return domain.HTTPError(err)
	}
	notes, err := h.evolutions.List(ctx, id)
	if err != nil {
		return domain.HTTPError(err)
	}

	now := h.now()
	resp := timelineResponse{Patient: p, Entries: Timeline(id, rxs, notes, now)}
	if age, ok := p.Age(civil.FromTime(now)); ok {
		resp.Age = &age
	}
	return c.JSON(http.StatusOK, resp)
}
