package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/api/middleware"
	"github/keyless/go-connector/internal/util"
)

func TestLoggerWithConfig(t *testing.T) {
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = original }()

	clock := time2.NewMockClock(time.Now())

	e := echo.New()
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Level: zerolog.InfoLevel,
		Clock: clock,
	}))
	e.GET("/slow", func(c echo.Context) error {
		util.LogFromEchoContext(c).Info().Msg("Handling")
		clock.Advance(1500 * time.Millisecond)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, handled map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &handled))

	assert.Equal(t, "req-1", inner["id"])
	assert.Equal(t, "Request handled", handled["message"])
	assert.Equal(t, "/slow", handled["path"])
	assert.InDelta(t, 204, handled["status"], 0)
	assert.InDelta(t, 1500, handled["duration"], 0)
}
