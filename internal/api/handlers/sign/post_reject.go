package sign

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
)

func PostRejectRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sign.POST("/reject", postRejectHandler(s))
}

// postRejectHandler settles every pending request, a pending transaction included, with a user rejection.
func postRejectHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.Signer.RejectPending(c.Request().Context()); err != nil {
			return err
		}

		return c.NoContent(http.StatusNoContent)
	}
}
