package db

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	OwnerIDKey contextKey = "owner_id"
	TxKey      contextKey = "db_tx"
)

// OwnerMiddleware scopes every downstream query to the authenticated user.
// It expects the auth middleware to have stored the user id under "user_id".
func OwnerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, _ := c.Get("user_id").(string)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
			}
			ownerID, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identifier")
			}

			ctx := WithOwner(c.Request().Context(), ownerID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("owner_id", ownerID)

			return next(c)
		}
	}
}

// WithOwner returns a context whose queries are scoped to ownerID.
func WithOwner(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// OwnerFromContext returns the owning user id, or uuid.Nil when the context
// carries none.
func OwnerFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(OwnerIDKey).(uuid.UUID)
	return id
}

// RequireOwner is OwnerFromContext for repository code, which must never run
// unscoped.
func RequireOwner(ctx context.Context) (uuid.UUID, error) {
	id := OwnerFromContext(ctx)
	if id == uuid.Nil {
		return uuid.Nil, ErrNoOwner
	}
	return id, nil
}
