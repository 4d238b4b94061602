package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts sign-in on public and the session endpoints on
// protected, which must already verify the bearer token.
func (h *Handler) RegisterRoutes(public, protected *echo.Group) {
	public.POST("/auth/signup", h.SignUp)
	public.POST("/auth/login", h.Login)
	public.POST("/auth/oauth", h.LoginOAuth)

	protected.POST("/auth/logout", h.Logout)
	protected.GET("/auth/session", h.GetSession)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type oauthRequest struct {
	IDToken string `json:"id_token"`
}

type sessionResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        userBrief `json:"user"`
}

type userBrief struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

func newSessionResponse(s *auth.Session) sessionResponse {
	return sessionResponse{
		AccessToken: s.Token,
		TokenType:   "Bearer",
		ExpiresAt:   s.ExpiresAt.UTC(),
		User:        userBrief{ID: s.UserID, Email: s.Email, Name: s.Name},
	}
}

func (h *Handler) SignUp(c echo.Context) error {
	var in SignUpInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.svc.SignUp(c.Request().Context(), in)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusCreated, newSessionResponse(s))
}

func (h *Handler) Login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(s))
}

func (h *Handler) LoginOAuth(c echo.Context) error {
	var in oauthRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.IDToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id_token is required")
	}
	s, err := h.svc.LoginOAuth(c.Request().Context(), in.IDToken)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(s))
}

func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	exp := claims.ExpiresAt
	if exp == nil {
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.svc.Logout(ctx, claims.ID, exp.Time); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetSession(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	u, err := h.svc.Current(c.Request().Context(), uid)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func accountError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrOAuthDisabled):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	default:
		return domain.HTTPError(err)
	}
}
