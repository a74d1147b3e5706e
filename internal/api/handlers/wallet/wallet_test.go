package wallet_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/test"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/wallet"
)

func TestGetAccountsNotLoggedIn(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/wallet/accounts", nil, nil)
		test.RequireHTTPError(t, res, httperrors.ErrNotLoggedIn)
	})
}

func TestGetAccounts(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		res := test.PerformRequest(t, s, "GET", "/api/v1/wallet/accounts", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var accounts types.AccountsResponse
		test.ParseResponseAndValidate(t, res, &accounts)
		assert.Equal(t, test.Account0, accounts.Active)
		assert.Equal(t, []string{test.Account0}, accounts.Accounts)

		res = test.PerformRequest(t, s, "GET", "/api/v1/wallet/accounts?all=true", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		test.ParseResponseAndValidate(t, res, &accounts)
		assert.Len(t, accounts.Accounts, 2)

		res = test.PerformRequest(t, s, "GET", "/api/v1/wallet/accounts?all=maybe", nil, nil)
		require.Equal(t, http.StatusBadRequest, res.Result().StatusCode)
	})
}

func TestPostSwitchWallet(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		index := 1
		res := test.PerformRequest(t, s, "POST", "/api/v1/wallet/switch", types.PostSwitchWalletPayload{Index: &index}, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var w wallet.Wallet
		test.ParseResponseAndValidate(t, res, &w)
		assert.Equal(t, 1, w.Index)

		active, err := s.Wallet.ActiveAccount()
		require.NoError(t, err)
		assert.Equal(t, w.Address, active)
		assert.NotEqual(t, test.Account0, active)
	})
}

func TestPostSwitchWalletOutOfRange(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		index := 5
		res := test.PerformRequest(t, s, "POST", "/api/v1/wallet/switch", types.PostSwitchWalletPayload{Index: &index}, nil)
		test.RequireHTTPError(t, res, httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeWalletIndex, ""))

		res = test.PerformRequest(t, s, "POST", "/api/v1/wallet/switch", map[string]any{}, nil)
		require.Equal(t, http.StatusBadRequest, res.Result().StatusCode)
	})
}

func TestGetBalance(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		res := test.PerformRequest(t, s, "GET", "/api/v1/wallet/balance?unit=ether", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var balance types.BalanceResponse
		test.ParseResponseAndValidate(t, res, &balance)
		assert.Equal(t, test.Account0, balance.Address)
		assert.Equal(t, int64(1), balance.ChainID)
		assert.Equal(t, "1.5", balance.Balance)

		res = test.PerformRequest(t, s, "GET", "/api/v1/wallet/balance?address="+test.Account0, nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		test.ParseResponseAndValidate(t, res, &balance)
		assert.Equal(t, "wei", balance.Unit)
		assert.Equal(t, "1500000000000000000", balance.Balance)
	})
}

func TestGetBalanceBadRequest(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		res := test.PerformRequest(t, s, "GET", "/api/v1/wallet/balance?unit=gwei", nil, nil)
		require.Equal(t, http.StatusBadRequest, res.Result().StatusCode)

		res = test.PerformRequest(t, s, "GET", "/api/v1/wallet/balance?address=0x123", nil, nil)
		test.RequireHTTPError(t, res, httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, ""))
	})
}
