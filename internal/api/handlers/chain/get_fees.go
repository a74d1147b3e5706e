package chain

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/transaction"
)

func GetFeesRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Chain.GET("/fees", getFeesHandler(s))
}

// getFeesHandler returns low, medium and high fee presets for the active chain.
func getFeesHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		cfg, err := s.Wallet.ActiveChain(ctx)
		if err != nil {
			return err
		}

		backend, err := s.Backends.Get(ctx, cfg.ChainID)
		if err != nil {
			log.Debug().Err(err).Int64("chainId", cfg.ChainID).Msg("Failed to get chain client")
			return err
		}

		fees, err := transaction.EstimateFees(ctx, cfg, backend)
		if err != nil {
			log.Debug().Err(err).Int64("chainId", cfg.ChainID).Msg("Failed to estimate fees")
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, fees)
	}
}
