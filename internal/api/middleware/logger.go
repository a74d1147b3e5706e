package middleware

import (
	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerConfig configures the request logger.
type LoggerConfig struct {
	Skipper middleware.Skipper
	Level   zerolog.Level
	// Clock measures request durations, time2.DefaultClock if nil.
	Clock time2.Clock
}

// LoggerWithConfig attaches a request scoped zerolog logger to the request context and logs
// one line per request. The logger carries the request id set by the RequestID middleware.
func LoggerWithConfig(config LoggerConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = middleware.DefaultSkipper
	}
	if config.Clock == nil {
		config.Clock = time2.DefaultClock
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			req := c.Request()
			res := c.Response()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = res.Header().Get(echo.HeaderXRequestID)
			}

			l := log.With().
				Str("id", id).
				Str("method", req.Method).
				Str("path", c.Path()).
				Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := config.Clock.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			l.WithLevel(config.Level).
				Int("status", res.Status).
				Dur("duration", config.Clock.Now().Sub(start)).
				Int64("bytes_out", res.Size).
				Msg("Request handled")

			return nil
		}
	}
}
