package test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/types"
)

// RPCBody encodes a JSON-RPC 2.0 request. It does not use t, so it is safe to call from goroutines.
func RPCBody(method string, params ...any) []byte {
	if params == nil {
		params = []any{}
	}

	raw, err := json.Marshal(map[string]any{
		"jsonrpc": types.JSONRPCVersion,
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		panic(err)
	}

	return raw
}

// PerformRPC posts a provider request to /rpc and decodes the JSON-RPC response.
func PerformRPC(t *testing.T, s *api.Server, method string, params ...any) types.JSONRPCResponse {
	t.Helper()

	res := PerformRequest(t, s, "POST", "/rpc", RPCBody(method, params...), nil)
	require.Equal(t, http.StatusOK, res.Result().StatusCode)

	var response types.JSONRPCResponse
	ParseResponseAndValidate(t, res, &response)

	return response
}
