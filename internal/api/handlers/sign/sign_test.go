package sign_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/test"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/wallet/signer"
)

var message = []byte("hello keyless")

func personalSign(t *testing.T, s *api.Server) <-chan *httptest.ResponseRecorder {
	t.Helper()

	done := test.PerformRequestAsync(s, http.MethodPost, "/rpc",
		test.RPCBody("personal_sign", hexutil.Encode(message), test.Account0))

	require.Eventually(t, func() bool {
		_, ok := s.Signer.PendingSignRequest()
		return ok
	}, 5*time.Second, time.Millisecond)

	return done
}

func TestGetPendingNone(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/sign/pending", nil, nil)
		test.RequireHTTPError(t, res, httperrors.ErrNoPending)

		res = test.PerformRequest(t, s, "POST", "/api/v1/sign/reject", nil, nil)
		test.RequireHTTPError(t, res, httperrors.ErrNoPending)
	})
}

func TestConfirmSignRequest(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		done := personalSign(t, s)

		res := test.PerformRequest(t, s, "GET", "/api/v1/sign/pending", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var pending types.PendingSignRequestResponse
		test.ParseResponseAndValidate(t, res, &pending)
		assert.Equal(t, "hello keyless", pending.Text)
		assert.Equal(t, test.Account0, pending.Address)

		res = test.PerformRequest(t, s, "POST", "/api/v1/sign/confirm", types.PostPinPayload{Pin: test.Pin}, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var signature types.SignatureResponse
		test.ParseResponseAndValidate(t, res, &signature)

		var response types.JSONRPCResponse
		require.NoError(t, json.NewDecoder((<-done).Body).Decode(&response))
		require.Nil(t, response.Error)
		assert.Equal(t, signature.Signature, response.Result)

		sig, err := hexutil.Decode(signature.Signature)
		require.NoError(t, err)
		require.Len(t, sig, 65)
		sig[64] -= 27

		pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(test.Account0), crypto.PubkeyToAddress(*pub))
	})
}

func TestRejectSignRequest(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		done := personalSign(t, s)

		res := test.PerformRequest(t, s, "POST", "/api/v1/sign/reject", nil, nil)
		require.Equal(t, http.StatusNoContent, res.Result().StatusCode)

		var response types.JSONRPCResponse
		require.NoError(t, json.NewDecoder((<-done).Body).Decode(&response))
		require.NotNil(t, response.Error)
		assert.Equal(t, signer.CodeUserRejected, response.Error.Code)
	})
}

func TestLogoutRejectsSignRequest(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		done := personalSign(t, s)

		res := test.PerformRequest(t, s, "POST", "/api/v1/session/logout", nil, nil)
		require.Equal(t, http.StatusNoContent, res.Result().StatusCode)

		var response types.JSONRPCResponse
		require.NoError(t, json.NewDecoder((<-done).Body).Decode(&response))
		require.NotNil(t, response.Error)
		assert.Equal(t, signer.CodeUserRejected, response.Error.Code)
	})
}
