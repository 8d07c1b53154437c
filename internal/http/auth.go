package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/voidview/internal/auth"
	"github.com/jmehdipour/voidview/internal/http/middleware"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/labstack/echo/v4"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResp struct {
	auth.TokenPair
	User userView `json:"user"`
}

func loginHandler(users repository.UsersRepository, issuer *auth.Issuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		if req.Username == "" || req.Password == "" {
			return badRequest(c, "username and password are required")
		}

		u, err := users.Authenticate(c.Request().Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, repository.ErrInvalidCredentials) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
			}
			return writeErr(c, err)
		}
		pair, err := issuer.Issue(*u)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, tokenResp{TokenPair: pair, User: toUserView(*u)})
	}
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func refreshHandler(users repository.UsersRepository, issuer *auth.Issuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req refreshReq
		if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
			return badRequest(c, "refresh_token is required")
		}
		claims, err := issuer.Validate(req.RefreshToken, auth.TypeRefresh)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
		}
		id, _ := claims.UserID()
		u, err := users.GetByID(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		if u == nil || !u.IsActive {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "account unavailable"})
		}
		pair, err := issuer.Issue(*u)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, tokenResp{TokenPair: pair, User: toUserView(*u)})
	}
}

func meHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := middleware.UserFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return c.JSON(http.StatusOK, toUserView(*u))
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func changePasswordHandler(users repository.UsersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := middleware.UserFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		var req changePasswordReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		err := users.ChangePassword(c.Request().Context(), u.ID, req.OldPassword, req.NewPassword)
		if errors.Is(err, repository.ErrInvalidCredentials) {
			return badRequest(c, "old password is incorrect")
		}
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "password changed"})
	}
}
