package evolution

import (
	"net/http"

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
	api.GET("/evolutions", h.ListEvolutions)
	api.POST("/evolutions", h.CreateEvolution)
}

func (h *Handler) CreateEvolution(c echo.Context) error {
	var e Evolution
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &e); err != nil {
		return domain.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListEvolutions(c echo.Context) error {
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
		items = []*Evolution{}
	}
	return c.JSON(http.StatusOK, items)
}
