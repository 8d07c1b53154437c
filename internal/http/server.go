package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/jmehdipour/voidview/internal/auth"
	"github.com/jmehdipour/voidview/internal/config"
	"github.com/jmehdipour/voidview/internal/http/middleware"
	"github.com/jmehdipour/voidview/internal/logger"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

// NewServer wires the repositories over b and mounts the API. rds is optional;
// without it login attempts are not throttled. Metrics collectors are
// registered by the caller.
func NewServer(cfg config.Config, b *tabular.Backend, issuer *auth.Issuer, rds *redis.Client) *Server {
	// repos (storage files)
	usersRepo := repository.NewUsersRepository(b, cfg.Auth.BcryptCost)
	customersRepo := repository.NewCustomersRepository(b)
	appsRepo := repository.NewAppsRepository(b)
	templatesRepo := repository.NewTemplatesRepository(b)
	experimentsRepo := repository.NewExperimentsRepository(b)
	linksRepo := repository.NewLinksRepository(b)
	matrixRepo := repository.NewMatrixRepository(b)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLogLevel(cfg.Log.Level))
	e.Use(echoMid.Recover(), middleware.RequestID, echoMid.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.BearerAuth(issuer, usersRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		Limit:          cfg.RateLimit.LoginAttempts,
		KeyPrefix:      cfg.RateLimit.KeyPrefix,
		Window:         cfg.RateLimit.Window,
		RetryAfterHint: true,
	})
	pg := cfg.Pagination

	// routes
	v1 := e.Group("/api/v1")
	v1.POST("/auth/login", loginHandler(usersRepo, issuer), rlMW)
	v1.POST("/auth/refresh", refreshHandler(usersRepo, issuer))

	api := v1.Group("", authMW)
	api.GET("/auth/me", meHandler())
	api.POST("/auth/change-password", changePasswordHandler(usersRepo))

	users := api.Group("/users", middleware.RequireRoot)
	users.GET("", listUsersHandler(usersRepo, pg))
	users.POST("", createUserHandler(usersRepo))
	users.GET("/:id", getUserHandler(usersRepo))
	users.PATCH("/:id", updateUserHandler(usersRepo))
	users.DELETE("/:id", deleteUserHandler(usersRepo))
	users.POST("/:id/reset-password", resetPasswordHandler(usersRepo))

	api.GET("/customers", listCustomersHandler(customersRepo))
	api.POST("/customers", createCustomerHandler(customersRepo))
	api.GET("/customers/:id", getCustomerHandler(customersRepo))
	api.PATCH("/customers/:id", updateCustomerHandler(customersRepo))
	api.DELETE("/customers/:id", deleteCustomerHandler(customersRepo))
	api.GET("/customers/:id/apps", listCustomerAppsHandler(customersRepo, appsRepo))
	api.POST("/customers/:id/apps", createCustomerAppHandler(customersRepo, appsRepo))

	api.GET("/apps", listAppsHandler(appsRepo))
	api.POST("/apps", createAppHandler(customersRepo, appsRepo))
	api.GET("/apps/:id", getAppHandler(appsRepo))
	api.PATCH("/apps/:id", updateAppHandler(customersRepo, appsRepo))
	api.DELETE("/apps/:id", deleteAppHandler(appsRepo))
	api.GET("/apps/:id/templates", listAppTemplatesHandler(appsRepo, templatesRepo))
	api.POST("/apps/:id/templates", createAppTemplateHandler(appsRepo, templatesRepo))

	api.GET("/templates", listTemplatesHandler(templatesRepo))
	api.POST("/templates", createTemplateHandler(appsRepo, templatesRepo))
	api.GET("/templates/:id", getTemplateHandler(templatesRepo))
	api.PATCH("/templates/:id", updateTemplateHandler(appsRepo, templatesRepo))
	api.DELETE("/templates/:id", deleteTemplateHandler(templatesRepo))

	api.GET("/experiments", listExperimentsHandler(experimentsRepo, pg))
	api.POST("/experiments", createExperimentHandler(experimentsRepo, templatesRepo))
	api.GET("/experiments/:id", getExperimentHandler(experimentsRepo))
	api.PATCH("/experiments/:id", updateExperimentHandler(experimentsRepo))
	api.DELETE("/experiments/:id", deleteExperimentHandler(experimentsRepo))
	api.POST("/experiments/:id/templates", linkTemplatesHandler(experimentsRepo, templatesRepo, linksRepo))
	api.DELETE("/experiments/:id/templates/:template_id", unlinkTemplateHandler(experimentsRepo, linksRepo))

	api.GET("/matrix", matrixHandler(matrixRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

func echoLogLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}
