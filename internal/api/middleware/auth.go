package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github/keyless/go-connector/internal/api/httperrors"
	"github/keyless/go-connector/internal/util"
)

// AuthConfig guards routes with a static bearer token.
type AuthConfig struct {
	Skipper middleware.Skipper
	Token   string
}

// Auth rejects requests without "Authorization: Bearer <token>". An empty token disables the check.
func Auth(config AuthConfig) echo.MiddlewareFunc {
	if config.Token == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	token := []byte(config.Token)

	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper:    config.Skipper,
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), token) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			util.LogFromEchoContext(c).Debug().Err(err).Msg("Rejected request without valid API token")
			return httperrors.ErrUnauthorized
		},
	})
}
