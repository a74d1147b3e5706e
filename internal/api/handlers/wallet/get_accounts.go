package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func GetAccountsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallet.GET("/accounts", getAccountsHandler(s))
}

// getAccountsHandler lists the active account, or every vault account with ?all=true.
func getAccountsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var all bool
		if err := echo.QueryParamsBinder(c).Bool("all", &all).BindError(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "all must be a boolean").SetInternal(err)
		}

		active, err := s.Wallet.ActiveAccount()
		if err != nil {
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.AccountsResponse{
			Active:   active,
			Accounts: s.Wallet.Accounts(all),
		})
	}
}
