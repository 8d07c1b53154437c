package middleware

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/voidview/internal/auth"
	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/repository"
	echo "github.com/labstack/echo/v4"
)

const ctxUser = "user"

// UserFromCtx extracts the authenticated user set by BearerAuth.
func UserFromCtx(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ctxUser).(*model.User)
	return u, ok && u != nil
}

// BearerAuth authenticates requests using an access token in the
// Authorization header. The user is reloaded on every request so a
// deactivated or deleted account loses access before its token expires.
func BearerAuth(issuer *auth.Issuer, users repository.UsersRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
			if header == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization token"})
			}
			parts := strings.Fields(header)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := issuer.Validate(parts[1], auth.TypeAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
			}
			id, _ := claims.UserID()
			u, err := users.GetByID(c.Request().Context(), id)
			if err != nil {
				c.Logger().Errorf("auth user lookup failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if u == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "user not found"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "account disabled"})
			}
			c.Set(ctxUser, u)
			return next(c)
		}
	}
}

// RequireRoot rejects callers whose role is not root. It must run after
// BearerAuth.
func RequireRoot(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := UserFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		if u.Role != model.RoleRoot {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "root role required"})
		}
		return next(c)
	}
}
