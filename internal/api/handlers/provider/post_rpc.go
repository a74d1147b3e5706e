package provider

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/provider"
	"github/keyless/go-connector/internal/types"
	"github/keyless/go-connector/internal/util"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
)

func PostRPCRoute(s *api.Server) *echo.Route {
	return s.Router.RPC.POST("", postRPCHandler(s))
}

// postRPCHandler serves the provider as JSON-RPC 2.0. Errors are part of the response body,
// the HTTP status is always 200.
func postRPCHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.JSONRPCRequest
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			log.Debug().Err(err).Msg("Failed to decode json rpc request")
			return c.JSON(http.StatusOK, errorResponse(nil, codeParseError, "Parse error", ""))
		}

		if err := body.Validate(); err != nil {
			return c.JSON(http.StatusOK, errorResponse(body.ID, codeInvalidRequest, err.Error(), body.Method))
		}

		result, rpcErr := s.Provider.Request(ctx, provider.Request{Method: body.Method, Params: body.Params})
		if rpcErr != nil {
			log.Debug().Str("method", body.Method).Int("code", rpcErr.Code).Str("message", rpcErr.Message).Msg("Provider request failed")
			return c.JSON(http.StatusOK, errorResponse(body.ID, rpcErr.Code, rpcErr.Message, rpcErr.Method))
		}

		return c.JSON(http.StatusOK, types.JSONRPCResponse{
			JSONRPC: types.JSONRPCVersion,
			ID:      body.ID,
			Result:  result,
		})
	}
}

func errorResponse(id json.RawMessage, code int, message string, method string) types.JSONRPCResponse {
	rpcErr := &types.JSONRPCError{Code: code, Message: message}
	if method != "" {
		rpcErr.Data = map[string]string{"method": method}
	}

	return types.JSONRPCResponse{
		JSONRPC: types.JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}
}
