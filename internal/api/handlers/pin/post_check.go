package pin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func PostCheckRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Pin.POST("/check", postCheckHandler(s), s.Router.PinAttempts)
}

// postCheckHandler validates a PIN against the vault without signing anything.
func postCheckHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body types.PostPinPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		if !s.Wallet.IsLoggedIn() {
			return httperrors.ErrNotLoggedIn
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.PinCheckResponse{
			Valid: s.Signer.CheckPin(c.Request().Context(), body.Pin),
		})
	}
}
