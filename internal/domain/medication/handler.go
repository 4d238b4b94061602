package medication

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/pkg/pagination"
)

const (
	xlsxMIME        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	suggestionLimit = 10
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medications", h.ListMedications)
	api.POST("/medications", h.CreateMedication)
	api.GET("/medications/suggest", h.SuggestMedications)
	api.GET("/medications/export", h.ExportInventory)
	api.GET("/medications/:id", h.GetMedication)
	api.PUT("/medications/:id", h.UpdateMedication)
	api.DELETE("/medications/:id", h.DeleteMedication)
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &m); err != nil {
		return domain.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domain.HTTPError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.Update(c.Request().Context(), &m); err != nil {
		return domain.HTTPError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return domain.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListMedications(c echo.Context) error {
	pg := pagination.FromContext(c)
	lowStock, _ := strconv.ParseBool(c.QueryParam("low_stock"))
	meds, err := h.svc.List(c.Request().Context(), Filter{Query: c.QueryParam("q"), LowStock: lowStock})
	if err != nil {
		return domain.HTTPError(err)
	}
	page := pagination.Window(meds, pg)
	return c.JSON(http.StatusOK, pagination.NewResponse(page, len(meds), pg.Limit, pg.Offset).
		WithLinks(c.Request().URL.Path))
}

func (h *Handler) SuggestMedications(c echo.Context) error {
	meds, err := h.svc.Suggest(c.Request().Context(), c.QueryParam("q"), suggestionLimit)
	if err != nil {
		return domain.HTTPError(err)
	}
	return c.JSON(http.StatusOK, meds)
}

func (h *Handler) ExportInventory(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.svc.Export(c.Request().Context(), &buf); err != nil {
		return domain.HTTPError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="inventory.xlsx"`)
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
