package test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
)

// Login authenticates the test account against the server and loads its vault.
func Login(t *testing.T, s *api.Server) {
	t.Helper()

	sess, err := s.Wallet.Login(t.Context(), SafleID, Password, "")
	require.NoError(t, err, "Failed to login test account")
	sess.DecryptionKey.Zero()

	require.True(t, s.Wallet.IsLoggedIn())
}
