package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func PostSwitchWalletRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.POST("/switch", postSwitchWalletHandler(s))
}

func postSwitchWalletHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body types.PostSwitchWalletPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		w, err := s.Wallet.SwitchWallet(ctx, *body.Index)
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Int("index", *body.Index).Msg("Failed to switch wallet")
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, w)
	}
}
