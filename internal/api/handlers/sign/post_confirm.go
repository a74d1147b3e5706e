package sign

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func PostConfirmRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sign.POST("/confirm", postConfirmHandler(s), s.Router.PinAttempts)
}

func postConfirmHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body types.PostPinPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		signature, err := s.Signer.ConfirmSignRequest(ctx, body.Pin)
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Msg("Failed to confirm sign request")
			return err
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.SignatureResponse{Signature: signature})
	}
}
