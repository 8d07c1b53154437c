package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/voidview/internal/config"
	"github.com/jmehdipour/voidview/internal/http/middleware"
	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/labstack/echo/v4"
)

// pageParams reads page and page_size, falling back to the configured default
// and clamping to the configured maximum.
func pageParams(c echo.Context, pg config.PaginationConfig) (int, int) {
	page, size := 1, pg.DefaultPageSize
	if size <= 0 {
		size = repository.DefaultPageSize
	}
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := c.QueryParam("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}
	if pg.MaxPageSize > 0 && size > pg.MaxPageSize {
		size = pg.MaxPageSize
	}
	return page, size
}

func listUsersHandler(users repository.UsersRepository, pg config.PaginationConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, size := pageParams(c, pg)
		all, err := users.List(c.Request().Context())
		if err != nil {
			return writeErr(c, err)
		}

		start, end := repository.PageBounds(len(all), page, size)
		items := make([]userView, 0, end-start)
		for _, u := range all[start:end] {
			items = append(items, toUserView(u))
		}
		return c.JSON(http.StatusOK, pageView[userView]{Items: items, Total: len(all), Page: page, PageSize: size})
	}
}

type createUserReq struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func createUserHandler(users repository.UsersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, _ := middleware.UserFromCtx(c)
		var req createUserReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		role, ok := model.ParseRole(req.Role)
		if !ok {
			return badRequest(c, "invalid role")
		}
		u, err := users.Create(c.Request().Context(), model.NewUser{
			Username:    req.Username,
			Password:    req.Password,
			DisplayName: req.DisplayName,
			Role:        role,
			CreatedBy:   &caller.ID,
		})
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusCreated, toUserView(*u))
	}
}

func getUserHandler(users repository.UsersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		u, err := users.GetByID(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		if u == nil {
			return notFound(c, "user", id)
		}
		return c.JSON(http.StatusOK, toUserView(*u))
	}
}

type updateUserReq struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
}

func updateUserHandler(users repository.UsersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, _ := middleware.UserFromCtx(c)
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req updateUserReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		if id == caller.ID && req.IsActive != nil && !*req.IsActive {
			return badRequest(c, "cannot disable your own account")
		}

		patch := model.UserPatch{DisplayName: req.DisplayName, IsActive: req.IsActive}
		if req.Role != nil {
			role := model.Role(strings.ToLower(strings.TrimSpace(*req.Role)))
			if !role.Valid() {
				return badRequest(c, "invalid role")
			}
			if id == caller.ID && role != model.RoleRoot {
				return badRequest(c, "cannot demote your own account")
			}
			patch.Role = &role
		}
		u, err := users.Update(c.Request().Context(), id, patch)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toUserView(*u))
	}
}

func deleteUserHandler(users repository.UsersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, _ := middleware.UserFromCtx(c)
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		if id == caller.ID {
			return badRequest(c, "cannot delete your own account")
		}
		if err := users.Delete(c.Request().Context(), id); err != nil {
			return writeErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type resetPasswordReq struct {
	NewPassword string `json:"new_password"`
}

func resetPasswordHandler(users repository.UsersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req resetPasswordReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		if err := users.ResetPassword(c.Request().Context(), id, req.NewPassword); err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "password reset"})
	}
}
