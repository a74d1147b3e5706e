package util

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Validatable is implemented by request payloads that check their own fields.
type Validatable interface {
	Validate() error
}

// BindAndValidateBody binds the request body into v and runs its validation.
// Failures are returned as 400 echo errors.
func BindAndValidateBody(c echo.Context, v Validatable) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		LogFromEchoContext(c).Debug().Err(err).Msg("Failed to bind request body")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}

	if err := v.Validate(); err != nil {
		LogFromEchoContext(c).Debug().Err(err).Msg("Request body failed validation")
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	return nil
}

// ValidateAndReturn validates the response payload before writing it as JSON.
func ValidateAndReturn(c echo.Context, code int, v any) error {
	if validatable, ok := v.(Validatable); ok {
		if err := validatable.Validate(); err != nil {
			LogFromEchoContext(c).Error().Err(err).Msg("Response failed validation")
			return errors.Wrap(err, "invalid response")
		}
	}

	return c.JSON(code, v)
}
