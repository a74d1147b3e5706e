package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/signer"
)

func PostLogoutRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Session.POST("/logout", postLogoutHandler(s))
}

// postLogoutHandler rejects pending requests before the session is cleared.
func postLogoutHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		if err := s.Signer.RejectPending(ctx); err != nil && !errors.Is(err, signer.ErrNoPending) {
			log.Debug().Err(err).Msg("Failed to reject pending requests")
			return err
		}

		if err := s.Wallet.Logout(ctx); err != nil {
			log.Debug().Err(err).Msg("Failed to logout")
			return err
		}

		return c.NoContent(http.StatusNoContent)
	}
}
