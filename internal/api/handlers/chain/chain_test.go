package chain_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/test"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/transaction"
)

func TestGetChains(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/chain", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var chains []*chain.Config
		test.ParseResponseAndValidate(t, res, &chains)
		require.Len(t, chains, len(chain.DefaultChains()))
		assert.Equal(t, int64(1), chains[0].ChainID)
	})
}

func TestPostSwitchChain(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		res := test.PerformRequest(t, s, "POST", "/api/v1/chain/switch", types.PostSwitchChainPayload{ChainID: 137}, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var cfg chain.Config
		test.ParseResponseAndValidate(t, res, &cfg)
		assert.Equal(t, chain.FamilyPolygon, cfg.Family)

		active, err := s.Wallet.ActiveChain(t.Context())
		require.NoError(t, err)
		assert.Equal(t, int64(137), active.ChainID)
	})
}

func TestPostSwitchChainUnknown(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		res := test.PerformRequest(t, s, "POST", "/api/v1/chain/switch", types.PostSwitchChainPayload{ChainID: 999}, nil)
		test.RequireHTTPError(t, res, httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeUnknownChain, ""))

		active, err := s.Wallet.ActiveChain(t.Context())
		require.NoError(t, err)
		assert.Equal(t, int64(1), active.ChainID)
	})
}

func TestGetFees(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/chain/fees", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var fees transaction.FeeEstimate
		test.ParseResponseAndValidate(t, res, &fees)
		assert.NotEmpty(t, fees.EstimatedBaseFee)
		assert.NotEmpty(t, fees.Medium.SuggestedMaxFeePerGas)
	})
}
