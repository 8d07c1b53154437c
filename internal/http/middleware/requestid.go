package middleware

import (
	"github.com/jmehdipour/voidview/internal/util"
	echo "github.com/labstack/echo/v4"
)

// RequestID tags every request with a ULID, reusing one supplied by the
// caller.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = util.New()
		}
		c.Set("request_id", id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}
