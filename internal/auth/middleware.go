package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/binaryworks/medilink/domain/entities"
)

const identityKey = "auth.identity"

// Identity is the authenticated caller attached to a request context. It
// travels with the request instead of living in shared mutable state.
type Identity struct {
	UserID string
	Email  string
	Role   entities.UserRole
}

func (i Identity) IsAdmin() bool {
	return i.Role == entities.UserRoleAdmin
}

// IdentityFrom returns the identity set by Middleware, if any.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// Middleware validates the bearer token and attaches the caller's identity.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := m.ValidateToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(identityKey, Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   entities.UserRole(claims.Role),
			})
			return next(c)
		}
	}
}

// RequireAdmin rejects callers whose identity is not an admin. It must run
// after Middleware.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok || !id.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}
