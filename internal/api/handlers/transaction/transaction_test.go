package transaction_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/test"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/wallet/signer"
)

const toAddr = "0x6fC21092DA55B392b045eD78F4732bff3C580e2c"

// sendTransaction issues eth_sendTransaction in the background; the request blocks until the
// pending transaction is settled.
func sendTransaction(t *testing.T, s *api.Server) <-chan *httptest.ResponseRecorder {
	t.Helper()

	body := test.RPCBody("eth_sendTransaction", map[string]any{
		"from":  test.Account0,
		"to":    toAddr,
		"value": "0x1",
	})

	done := test.PerformRequestAsync(s, http.MethodPost, "/rpc", body)

	require.Eventually(t, func() bool {
		_, ok := s.Signer.PendingTransaction()
		return ok
	}, 5*time.Second, time.Millisecond)

	return done
}

func TestGetPendingNone(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/transaction/pending", nil, nil)
		test.RequireHTTPError(t, res, httperrors.ErrNoPending)

		res = test.PerformRequest(t, s, "POST", "/api/v1/transaction/confirm", types.PostPinPayload{Pin: test.Pin}, nil)
		test.RequireHTTPError(t, res, httperrors.ErrNoPending)
	})
}

func TestConfirmTransaction(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		done := sendTransaction(t, s)

		res := test.PerformRequest(t, s, "GET", "/api/v1/transaction/pending", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var pending types.PendingTransactionResponse
		test.ParseResponseAndValidate(t, res, &pending)
		assert.NotEmpty(t, pending.ID)
		assert.Equal(t, int64(1), pending.ChainID)
		assert.Equal(t, toAddr, pending.Request.To)

		res = test.PerformRequest(t, s, "POST", "/api/v1/transaction/gas", types.PostGasPayload{
			GasLimit:             "21000",
			MaxFeePerGas:         "50",
			MaxPriorityFeePerGas: "2",
		}, nil)
		require.Equal(t, http.StatusNoContent, res.Result().StatusCode)

		res = test.PerformRequest(t, s, "POST", "/api/v1/transaction/confirm", types.PostPinPayload{Pin: test.Pin}, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var hash types.TransactionHashResponse
		test.ParseResponseAndValidate(t, res, &hash)
		assert.NotEmpty(t, hash.Hash)
		assert.Equal(t, "https://etherscan.io/tx/"+hash.Hash, hash.ExplorerURL)

		var response types.JSONRPCResponse
		require.NoError(t, json.NewDecoder((<-done).Body).Decode(&response))
		require.Nil(t, response.Error)
		assert.Equal(t, hash.Hash, response.Result)

		res = test.PerformRequest(t, s, "GET", "/api/v1/transaction/hashes", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var hashes types.TransactionHashesResponse
		test.ParseResponseAndValidate(t, res, &hashes)
		assert.Equal(t, []string{hash.Hash}, hashes.Hashes)
	})
}

func TestRejectTransaction(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		done := sendTransaction(t, s)

		res := test.PerformRequest(t, s, "POST", "/api/v1/transaction/reject", nil, nil)
		require.Equal(t, http.StatusNoContent, res.Result().StatusCode)

		var response types.JSONRPCResponse
		require.NoError(t, json.NewDecoder((<-done).Body).Decode(&response))
		require.NotNil(t, response.Error)
		assert.Equal(t, signer.CodeUserRejected, response.Error.Code)
		assert.Equal(t, "User rejected the transaction", response.Error.Message)

		_, ok := s.Signer.PendingTransaction()
		assert.False(t, ok)
	})
}

func TestPostGasBadRequest(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/transaction/gas", types.PostGasPayload{}, nil)
		require.Equal(t, http.StatusBadRequest, res.Result().StatusCode)

		res = test.PerformRequest(t, s, "POST", "/api/v1/transaction/gas", types.PostGasPayload{GasLimit: "21000"}, nil)
		test.RequireHTTPError(t, res, httperrors.ErrNoPending)
	})
}
