package transaction

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func GetHashesRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Transaction.GET("/hashes", getHashesHandler(s))
}

func getHashesHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return util.ValidateAndReturn(c, http.StatusOK, &types.TransactionHashesResponse{
			Hashes: s.Signer.TransactionHashes(),
		})
	}
}
