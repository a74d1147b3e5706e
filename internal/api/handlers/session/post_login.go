package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func PostLoginRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Session.POST("/login", postLoginHandler(s))
}

func postLoginHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostLoginPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		sess, err := s.Wallet.Login(ctx, body.SafleID, body.Password, body.Captcha)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to login")
			return err
		}
		sess.DecryptionKey.Zero()

		status, err := s.Wallet.Status(ctx)
		if err != nil {
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, status)
	}
}
