package session_test

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

func TestPostLogin(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/session/login", types.PostLoginPayload{
			SafleID:  test.SafleID,
			Password: test.Password,
		}, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var status wallet.Status
		test.ParseResponseAndValidate(t, res, &status)
		assert.Equal(t, wallet.StateVaultReady, status.State)
		assert.Equal(t, test.SafleID, status.SafleID)
		assert.Equal(t, int64(1), status.ChainID)
		require.Len(t, status.Accounts, 2)
		assert.Equal(t, test.Account0, status.Accounts[0].Address)

		assert.NotContains(t, res.Body.String(), "decryptionKey")
		assert.NotContains(t, res.Body.String(), test.Password)
	})
}

func TestPostLoginWrongPassword(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/session/login", types.PostLoginPayload{
			SafleID:  test.SafleID,
			Password: "wrong",
		}, nil)
		test.RequireHTTPError(t, res, httperrors.NewHTTPError(http.StatusUnauthorized, httperrors.TypeAuth, ""))
		assert.False(t, s.Wallet.IsLoggedIn())
		assert.Equal(t, wallet.StateLoggedOut, s.Wallet.State())
	})
}

func TestPostLoginBadRequest(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/session/login", types.PostLoginPayload{SafleID: test.SafleID}, nil)
		test.RequireHTTPError(t, res, httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeGeneric, ""))

		res = test.PerformRequest(t, s, "POST", "/api/v1/session/login", "{not json", nil)
		test.RequireHTTPError(t, res, httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeGeneric, ""))
	})
}

func TestGetSessionLoggedOut(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/session", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var status wallet.Status
		test.ParseResponseAndValidate(t, res, &status)
		assert.Equal(t, wallet.StateLoggedOut, status.State)
		assert.Empty(t, status.Accounts)
	})
}

func TestPostLogout(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		test.Login(t, s)

		res := test.PerformRequest(t, s, "POST", "/api/v1/session/logout", nil, nil)
		require.Equal(t, http.StatusNoContent, res.Result().StatusCode)
		assert.False(t, s.Wallet.IsLoggedIn())

		sess, err := s.Session.Load(t.Context())
		require.NoError(t, err)
		assert.Empty(t, sess.Vault)
		assert.Empty(t, sess.DecryptionKey)

		// logout is idempotent
		res = test.PerformRequest(t, s, "POST", "/api/v1/session/logout", nil, nil)
		require.Equal(t, http.StatusNoContent, res.Result().StatusCode)
	})
}

func TestPostResume(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/session/resume", nil, nil)
		test.RequireHTTPError(t, res, httperrors.ErrNotLoggedIn)

		test.Login(t, s)

		res = test.PerformRequest(t, s, "POST", "/api/v1/session/resume", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		var status wallet.Status
		test.ParseResponseAndValidate(t, res, &status)
		assert.Equal(t, wallet.StateVaultReady, status.State)
	})
}
