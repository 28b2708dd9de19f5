package router

import (
	"errors"
	"net/http"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	apperrors "formini/internal/errors"
	"formini/internal/handler"
	"formini/internal/logging"
	"formini/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	logger logging.Logger,
	gatherer prometheus.Gatherer,
	corsOrigins []string,
	authService service.AuthService,
	authHandler *handler.AuthHandler,
	accountHandler *handler.AccountHandler,
) {
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/verify", authHandler.Verify)
	api.POST("/auth/resend", authHandler.Resend)
	api.POST("/auth/login", authHandler.Login)

	// Secured routes (require a valid, unrevoked bearer token)
	secured := api.Group("", bearerAuth(authService))
	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/me", accountHandler.Me)
}

// bearerAuth validates the Authorization header through the auth service, so expiry,
// signature and revocation are checked in one place. Any rejection is INVALID_TOKEN.
func bearerAuth(authService service.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ClaimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return authService.Authenticate(c.Request().Context(), strings.TrimSpace(token))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var appErr *apperrors.Error
			if errors.As(err, &appErr) && appErr.Kind == apperrors.KindInternal {
				return appErr
			}
			return apperrors.ErrInvalidToken
		},
	})
}

func requestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency.String(),
				"remote_ip", v.RemoteIP,
			}
			ctx := c.Request().Context()
			if v.Status >= http.StatusInternalServerError {
				logger.Warn(ctx, "request", append(args, "error", v.Error)...)
				return nil
			}
			logger.Info(ctx, "request", args...)
			return nil
		},
	})
}
