package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/util"
	"golang.org/x/time/rate"
)

// PinAttemptsConfig bounds requests carrying a PIN. The budget is shared by all clients.
type PinAttemptsConfig struct {
	PerMinute float64
	Burst     int
}

// PinAttempts rate limits PIN checks and confirmations. A non positive rate disables the limit.
func PinAttempts(config PinAttemptsConfig) echo.MiddlewareFunc {
	if config.PerMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if config.Burst < 1 {
		config.Burst = 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(config.PerMinute / 60),
			Burst:     config.Burst,
			ExpiresIn: 10 * time.Minute,
		}),
		IdentifierExtractor: func(_ echo.Context) (string, error) {
			return "pin", nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			util.LogFromEchoContext(c).Warn().Str("path", c.Path()).Msg("PIN attempt rate limit reached")
			return httperrors.ErrTooManyTries
		},
	})
}
