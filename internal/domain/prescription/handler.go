package prescription

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medsys/clinic/internal/domain"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/prescriptions", h.ListPrescriptions)
	api.POST("/prescriptions", h.SavePrescription)
	api.GET("/prescriptions/alerts", h.ListAlerts)
	api.GET("/prescriptions/:id", h.GetPrescription)
}

func (h *Handler) SavePrescription(c echo.Context) error {
	var d Draft
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Save(c.Request().Context(), d, nil)
	if err != nil {
		return domain.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domain.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	var patientID uuid.UUID
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = id
	}
	items, err := h.svc.List(c.Request().Context(), patientID)
	if err != nil {
		return domain.HTTPError(err)
	}
	if items == nil {
		items = []*Prescription{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListAlerts(c echo.Context) error {
	now := time.Now()
	if v := c.QueryParam("now"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "now must be an RFC 3339 timestamp")
		}
		now = t
	}
	rows, err := h.svc.Alerts(c.Request().Context(), now)
	if err != nil {
		return domain.HTTPError(err)
	}
	if rows == nil {
		rows = []AlertRow{}
	}
	return c.JSON(http.StatusOK, rows)
}
