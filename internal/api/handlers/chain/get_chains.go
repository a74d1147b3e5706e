package chain

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/util"
)

func GetChainsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Chain.GET("", getChainsHandler(s))
}

func getChainsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return util.ValidateAndReturn(c, http.StatusOK, s.Chains.List())
	}
}
