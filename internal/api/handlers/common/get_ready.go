package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
)

const statusNotReady = 521

func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

// Readiness check
// This endpoint returns 200 when the server is ready to serve traffic (i.e. respond to queries).
// A vault does not need to be loaded for the server to be ready.
func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(statusNotReady, "Not ready.")
		}

		return c.String(http.StatusOK, "Ready.")
	}
}
