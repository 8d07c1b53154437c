package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jmehdipour/voidview/internal/logger"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeErr maps repository sentinels to status codes. Anything unrecognized
// is logged and reported as a bare 500.
func writeErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}
	logger.Log.Error("request failed",
		zap.String("request_id", requestID(c)),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func notFound(c echo.Context, what string, id int64) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": what + " " + strconv.FormatInt(id, 10) + " not found"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func requestID(c echo.Context) string {
	id, _ := c.Get("request_id").(string)
	return id
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID parses an optional positive integer query parameter.
func queryID(c echo.Context, name string) (*int64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}
