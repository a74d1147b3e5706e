package chain

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func PostSwitchChainRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Chain.POST("/switch", postSwitchChainHandler(s))
}

func postSwitchChainHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body types.PostSwitchChainPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		cfg, err := s.Wallet.SwitchNetwork(ctx, body.ChainID)
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Int64("chainId", body.ChainID).Msg("Failed to switch network")
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, cfg)
	}
}
