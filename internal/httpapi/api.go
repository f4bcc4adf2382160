package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"imgfs/internal/auth"
	"imgfs/internal/config"
	"imgfs/internal/httpapi/handlers"
	"imgfs/internal/httpapi/middlewares"
	"imgfs/internal/ratelimit"
	"imgfs/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type API struct {
	cfg     config.Config
	auth    *auth.Authenticator
	handler *handlers.Handler
	logger  *log.Logger
}

func New(cfg config.Config, svc *service.Service, authn *auth.Authenticator, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{
		cfg:     cfg,
		auth:    authn,
		handler: handlers.New(cfg, svc),
		logger:  logger,
	}
}

func (a *API) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = a.errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			subject := "-"
			if claims, ok := auth.GetClaims(c); ok {
				subject = claims.Subject
			}
			if v.Error != nil {
				a.logger.Printf("%s %s %s %s -> %d in %s: %v", v.RequestID, subject, v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			a.logger.Printf("%s %s %s %s -> %d in %s", v.RequestID, subject, v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: a.cfg.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderAccept,
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			"X-API-Token",
		},
		ExposeHeaders: []string{
			echo.HeaderContentLength,
			"RateLimit-Limit",
			"RateLimit-Remaining",
			"RateLimit-Reset",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 600,
	}))
	e.Use(middlewares.NewRateLimitMiddleware(a.auth, ratelimit.DefaultConfig(a.cfg.RateLimitRead, a.cfg.RateLimitWrite)))

	a.registerRoutes(e)
	return e
}

// errorHandler writes failures as plain text "Error: <message>".
func (a *API) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.String(code, "Error: "+msg)
	}
	if err != nil {
		a.logger.Printf("write error response: %v", err)
	}
}
