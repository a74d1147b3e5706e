package transaction

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func GetPendingRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Transaction.GET("/pending", getPendingHandler(s))
}

func getPendingHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		pending, ok := s.Signer.PendingTransaction()
		if !ok {
			return httperrors.ErrNoPending
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.PendingTransactionResponse{
			ID:      pending.ID,
			ChainID: pending.ChainID,
			Request: pending.Request,
		})
	}
}
