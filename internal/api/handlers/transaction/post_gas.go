package transaction

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func PostGasRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Transaction.POST("/gas", postGasHandler(s))
}

// postGasHandler overrides the gas fields of the pending transaction before it is confirmed.
func postGasHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body types.PostGasPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		if err := s.Signer.SetGas(body.GasLimit, body.MaxFeePerGas, body.MaxPriorityFeePerGas); err != nil {
			return err
		}

		return c.NoContent(http.StatusNoContent)
	}
}
