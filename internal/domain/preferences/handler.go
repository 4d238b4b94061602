package preferences

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/preferences", h.GetPreferences)
	api.PUT("/preferences", h.PutPreferences)
}

func (h *Handler) GetPreferences(c echo.Context) error {
	all, err := h.store.All(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make(map[string]string, len(editable))
	for k := range editable {
		out[k] = all[k]
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) PutPreferences(c echo.Context) error {
	var in map[string]string
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	keys := make([]string, 0, len(in))
	for k := range in {
		if !Editable(k) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown preference: "+k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx := c.Request().Context()
	for _, k := range keys {
		if err := h.store.Set(ctx, k, strings.TrimSpace(in[k])); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return h.GetPreferences(c)
}
