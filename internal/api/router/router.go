package router

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/handlers"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/api/middleware"
)

const metricsSubsystem = "http"

// Init builds the echo instance and attaches every route to the server.
func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = s.Config.Echo.Debug
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = httperrors.HTTPErrorHandler

	s.Echo.Pre(echoMiddleware.RemoveTrailingSlash())

	s.Echo.Use(echoMiddleware.Recover())
	s.Echo.Use(echoMiddleware.RequestID())
	s.Echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Level: s.Config.Logger.RequestLevel,
		Clock: s.Clock,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/-/ready" || c.Path() == "/metrics"
		},
	}))
	s.Echo.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "keyless",
		Subsystem:  metricsSubsystem,
		Registerer: s.Metrics.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	auth := middleware.Auth(middleware.AuthConfig{Token: s.Config.Echo.AuthToken})
	apiV1 := s.Echo.Group("/api/v1", auth)

	s.Router = &api.Router{
		Routes:     nil,
		Root:       s.Echo.Group(""),
		Management: s.Echo.Group("/-"),
		RPC:        s.Echo.Group("/rpc", auth),

		APIV1Session:     apiV1.Group("/session"),
		APIV1Chain:       apiV1.Group("/chain"),
		APIV1Wallet:      apiV1.Group("/wallet"),
		APIV1Transaction: apiV1.Group("/transaction"),
		APIV1Sign:        apiV1.Group("/sign"),
		APIV1Pin:         apiV1.Group("/pin"),

		PinAttempts: middleware.PinAttempts(middleware.PinAttemptsConfig{
			PerMinute: s.Config.Echo.PinAttemptsPerMinute,
			Burst:     s.Config.Echo.PinAttemptsBurst,
		}),
	}

	if s.Config.Management.EnableMetrics {
		s.Router.Routes = append(s.Router.Routes,
			s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler())))
	}

	handlers.AttachAllRoutes(s)
}
