package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/balance"
)

func GetBalanceRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.GET("/balance", getBalanceHandler(s))
}

// getBalanceHandler returns the native balance of ?address (default: active account) on the
// active chain, in ?unit wei or ether.
func getBalanceHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		address := c.QueryParam("address")
		unit := balance.Unit(c.QueryParam("unit"))
		if unit == "" {
			unit = balance.UnitWei
		}
		if unit != balance.UnitWei && unit != balance.UnitEther {
			return echo.NewHTTPError(http.StatusBadRequest, "unit must be wei or ether")
		}

		if address == "" {
			var err error
			if address, err = s.Wallet.ActiveAccount(); err != nil {
				return err
			}
		}

		cfg, err := s.Wallet.ActiveChain(ctx)
		if err != nil {
			return err
		}

		amount, err := s.Balance.GetWalletBalance(ctx, cfg.ChainID, address, unit)
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Str("address", address).Msg("Failed to get balance")
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.BalanceResponse{
			Address: address,
			ChainID: cfg.ChainID,
			Unit:    string(unit),
			Balance: amount,
		})
	}
}
