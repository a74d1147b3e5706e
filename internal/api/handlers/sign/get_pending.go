package sign

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func GetPendingRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sign.GET("/pending", getPendingHandler(s))
}

func getPendingHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		pending, ok := s.Signer.PendingSignRequest()
		if !ok {
			return httperrors.ErrNoPending
		}

		text, err := s.Signer.SignRequestData()
		if err != nil {
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.PendingSignRequestResponse{
			ID:      pending.ID,
			ChainID: pending.ChainID,
			Address: pending.Address,
			Data:    pending.Data,
			Text:    text,
		})
	}
}
