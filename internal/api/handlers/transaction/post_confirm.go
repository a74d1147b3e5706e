package transaction

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

func PostConfirmRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Transaction.POST("/confirm", postConfirmHandler(s), s.Router.PinAttempts)
}

// postConfirmHandler signs and submits the pending transaction with the PIN.
// It returns as soon as the node accepted the transaction, confirmations are tracked in the background.
func postConfirmHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostPinPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		pending, ok := s.Signer.PendingTransaction()
		if !ok {
			return httperrors.ErrNoPending
		}

		hash, err := s.Signer.ConfirmTransaction(ctx, body.Pin)
		if err != nil {
			log.Debug().Err(err).Str("id", pending.ID).Msg("Failed to confirm transaction")
			return err
		}

		explorer, err := s.Chains.ExplorerTxURL(pending.ChainID, hash)
		if err != nil {
			log.Debug().Err(err).Int64("chainId", pending.ChainID).Msg("No explorer url for transaction")
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.TransactionHashResponse{
			Hash:        hash,
			ExplorerURL: explorer,
		})
	}
}
