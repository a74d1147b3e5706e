package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/util"
)

func PostResumeRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Session.POST("/resume", postResumeHandler(s))
}

func postResumeHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if err := s.Wallet.Resume(ctx); err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Msg("Failed to resume session")
			return err
		}

		status, err := s.Wallet.Status(ctx)
		if err != nil {
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, status)
	}
}
