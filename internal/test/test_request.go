package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/httperrors"
)

// PerformRequest serves a request through the server's router. A non-nil body is sent as JSON.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Reader
	switch b := body.(type) {
	case nil:
		payload = bytes.NewReader(nil)
	case []byte:
		payload = bytes.NewReader(b)
	case string:
		payload = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		payload = bytes.NewReader(raw)
	}

	req := httptest.NewRequestWithContext(t.Context(), method, path, payload)
	for k, v := range headers {
		req.Header[k] = v
	}
	if body != nil && req.Header.Get(echo.HeaderContentType) == "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}

// ParseResponseAndValidate decodes the JSON body of res into v.
func ParseResponseAndValidate(t *testing.T, res *httptest.ResponseRecorder, v any) {
	t.Helper()

	require.NoError(t, json.NewDecoder(res.Body).Decode(v), "Failed to parse response body")
}

// RequireHTTPError asserts that res carries the status and type of httpErr.
func RequireHTTPError(t *testing.T, res *httptest.ResponseRecorder, httpErr *httperrors.HTTPError) {
	t.Helper()

	var response httperrors.HTTPError
	ParseResponseAndValidate(t, res, &response)
	require.Equal(t, httpErr.Code, res.Result().StatusCode)
	require.Equal(t, httpErr.Code, response.Code)
	require.Equal(t, httpErr.Type, response.Type)
}

// PerformRequestAsync serves a JSON request in the background and delivers the recorder once
// the handler returns. It does not use t, so blocking provider calls can be raced against
// management requests.
func PerformRequestAsync(s *api.Server, method string, path string, body []byte) <-chan *httptest.ResponseRecorder {
	done := make(chan *httptest.ResponseRecorder, 1)

	go func() {
		req := httptest.NewRequestWithContext(context.Background(), method, path, bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

		res := httptest.NewRecorder()
		s.Echo.ServeHTTP(res, req)
		done <- res
	}()

	return done
}
