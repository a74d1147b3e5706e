package httperrors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/cloud"
	"github/keyless/go-connector/internal/provider"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet"
	"github/keyless/go-connector/internal/wallet/balance"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/rpc"
	"github/keyless/go-connector/internal/wallet/signer"
	"github/keyless/go-connector/internal/wallet/transaction"
	"github/keyless/go-connector/internal/wallet/vault"
)

// Public error types shown to API clients.
const (
	TypeGeneric        = "generic"
	TypeAuth           = "auth"
	TypeUnauthorized   = "unauthorized"
	TypeTooManyTries   = "tooManyAttempts"
	TypeNotLoggedIn    = "notLoggedIn"
	TypeValidation     = "validation"
	TypeVault          = "vault"
	TypeEmptyVault     = "emptyVault"
	TypeUnknownChain   = "unknownChain"
	TypeNetwork        = "network"
	TypeUserRejected   = "userRejected"
	TypePendingBusy    = "pendingBusy"
	TypeNoPending      = "noPending"
	TypeWalletIndex    = "walletIndex"
	TypeInternalServer = "internalServer"
)

// HTTPError is the JSON error body of the management API.
type HTTPError struct {
	Code     int    `json:"status"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Internal error  `json:"-"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{Code: code, Type: errorType, Title: title}
}

func (e *HTTPError) Error() string {
	if e.Internal == nil {
		return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
	}

	return fmt.Sprintf("HTTPError %d (%s): %s - %s", e.Code, e.Type, e.Title, e.Internal)
}

func (e *HTTPError) Unwrap() error {
	return e.Internal
}

var (
	ErrUnauthorized = NewHTTPError(http.StatusUnauthorized, TypeUnauthorized, "Missing or invalid API token")
	ErrTooManyTries = NewHTTPError(http.StatusTooManyRequests, TypeTooManyTries, "Too many PIN attempts, try again later")
	ErrNotLoggedIn  = NewHTTPError(http.StatusUnauthorized, TypeNotLoggedIn, wallet.ErrNotLoggedIn.Error())
	ErrNoPending    = NewHTTPError(http.StatusNotFound, TypeNoPending, signer.ErrNoPending.Error())
	ErrPendingBusy  = NewHTTPError(http.StatusConflict, TypePendingBusy, signer.ErrPendingBusy.Error())
	ErrUserRejected = NewHTTPError(http.StatusConflict, TypeUserRejected, signer.ErrUserRejected.Error())
)

// FromError maps domain errors onto HTTP errors. The order matters: empty vault is also a vault error.
func FromError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	mapped := func(code int, errorType string) *HTTPError {
		return &HTTPError{Code: code, Type: errorType, Title: err.Error(), Internal: err}
	}

	switch {
	case errors.Is(err, wallet.ErrNotLoggedIn), errors.Is(err, provider.ErrUnauthorized):
		return mapped(http.StatusUnauthorized, TypeNotLoggedIn)
	case errors.Is(err, cloud.ErrAuth):
		return mapped(http.StatusUnauthorized, TypeAuth)
	case errors.Is(err, wallet.ErrEmptyVault):
		return mapped(http.StatusUnprocessableEntity, TypeEmptyVault)
	case errors.Is(err, vault.ErrVault):
		return mapped(http.StatusForbidden, TypeVault)
	case errors.Is(err, transaction.ErrValidation), errors.Is(err, balance.ErrInvalidAddress):
		return mapped(http.StatusBadRequest, TypeValidation)
	case errors.Is(err, chain.ErrUnknownChain):
		return mapped(http.StatusBadRequest, TypeUnknownChain)
	case errors.Is(err, wallet.ErrWalletIndex):
		return mapped(http.StatusBadRequest, TypeWalletIndex)
	case errors.Is(err, signer.ErrNoPending):
		return mapped(http.StatusNotFound, TypeNoPending)
	case errors.Is(err, signer.ErrPendingBusy):
		return mapped(http.StatusConflict, TypePendingBusy)
	case errors.Is(err, signer.ErrUserRejected):
		return mapped(http.StatusConflict, TypeUserRejected)
	case errors.Is(err, rpc.ErrNetwork):
		return mapped(http.StatusBadGateway, TypeNetwork)
	default:
		return &HTTPError{Code: http.StatusInternalServerError, Type: TypeInternalServer, Title: http.StatusText(http.StatusInternalServerError), Internal: err}
	}
}

// HTTPErrorHandler renders every handler error as an HTTPError body.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *HTTPError

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		httpErr = NewHTTPError(echoErr.Code, TypeGeneric, fmt.Sprint(echoErr.Message))
		httpErr.Internal = echoErr.Internal
	} else {
		httpErr = FromError(err)
	}

	log := util.LogFromEchoContext(c)
	if httpErr.Code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", httpErr.Code).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", httpErr.Code).Msg("Request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(httpErr.Code)
	} else {
		writeErr = c.JSON(httpErr.Code, httpErr)
	}
	if writeErr != nil {
		log.Error().Err(writeErr).Msg("Failed to write error response")
	}
}
