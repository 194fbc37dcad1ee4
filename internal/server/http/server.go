// Package http exposes the Pawkit REST API: auth, record sync, device
// sessions and backup presigning. Handlers are thin; domain rules live in
// the services layer.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/logging"
	sc "github.com/pawkit/pawkit/internal/server/config"
	"github.com/pawkit/pawkit/internal/server/repositories/repomanager"
	"github.com/pawkit/pawkit/internal/server/services"
)

// Server wires the Echo router to the Pawkit services.
type Server struct {
	echo     *echo.Echo
	config   *sc.Config
	logger   logging.Logger
	users    *services.UserService
	records  *services.RecordService
	sessions *services.SessionService
	backups  *services.BackupService
	metrics  *metrics
}

// CustomValidator adapts go-playground/validator to echo's Validator
// interface.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// NewServer builds the HTTP server on top of the given repositories.
func NewServer(config *sc.Config, repos repomanager.RepositoryManager, logger logging.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}

	s := &Server{
		echo:     e,
		config:   config,
		logger:   logger,
		users:    services.NewUserService(repos.Users()),
		records:  services.NewRecordService(repos.Records()),
		sessions: services.NewSessionService(repos.Sessions(), config.SessionStaleAfter),
		backups:  services.NewBackupService(config),
		metrics:  newMetrics(),
	}

	e.HTTPErrorHandler = s.errorHandler

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.metrics.middleware())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []any{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1e6,
				"remote_ip", values.RemoteIP,
			}
			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Error(c.Request().Context(), "http request failed", fields...)
			} else {
				s.logger.Info(c.Request().Context(), "http request", fields...)
			}
			return nil
		},
	}))
}

// authRateLimiter throttles credential endpoints per client IP.
func (s *Server) authRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(s.config.AuthRateLimit),
				Burst: s.config.AuthRateLimit,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	})
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	api := s.echo.Group("/api")
	api.GET("/health", s.handleHealth)

	auth := api.Group("/auth", s.authRateLimiter())
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.POST("/logout", s.handleLogout)

	private := api.Group("", s.sessionMiddleware())
	private.POST("/sessions/heartbeat", s.handleHeartbeat)
	private.GET("/sessions", s.handleListSessions)
	private.POST("/backups/presign", s.handlePresignBackup)
	private.GET("/:resource", s.handleChanged)
	private.POST("/:resource", s.handleCreate)
	private.PATCH("/:resource/:id", s.handleUpdate)
	private.DELETE("/:resource/:id", s.handleDelete)
	private.DELETE("/:resource/:id/permanent", s.handlePurge)
}

// errorHandler renders every error as {"message": ...} so clients get a
// uniform shape regardless of where the error originated.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	if jsonErr := c.JSON(code, map[string]string{"message": message}); jsonErr != nil {
		s.logger.Error(c.Request().Context(), "error handler failed", "error", jsonErr)
	}
}

// httpError maps service sentinel errors to HTTP status codes.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrInvalidPayload),
		errors.Is(err, common.ErrUnknownRecordKind),
		errors.Is(err, common.ErrInvalidURL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrLoginAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrInvalidLoginDetails):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

// Start begins serving on the configured endpoint and blocks until the
// server stops.
func (s *Server) Start() error {
	return s.echo.Start(s.config.EndpointAddr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
