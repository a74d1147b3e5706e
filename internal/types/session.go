package types

import (
	"strings"

	"github.com/pkg/errors"
)

// PostLoginPayload post login payload
type PostLoginPayload struct {

	// safle id
	// Required: true
	SafleID string `json:"safleId"`

	// password, only the derived key hash leaves the process
	// Required: true
	Password string `json:"password"`

	// captcha proof forwarded to the cloud
	Captcha string `json:"captcha,omitempty"`
}

func (m *PostLoginPayload) Validate() error {
	if strings.TrimSpace(m.SafleID) == "" {
		return errors.New("safleId is required")
	}
	if m.Password == "" {
		return errors.New("password is required")
	}

	return nil
}

// PostSwitchChainPayload post switch chain payload
type PostSwitchChainPayload struct {

	// chain id
	// Required: true
	ChainID int64 `json:"chainId"`
}

func (m *PostSwitchChainPayload) Validate() error {
	if m.ChainID <= 0 {
		return errors.New("chainId must be positive")
	}

	return nil
}

// PostSwitchWalletPayload post switch wallet payload
type PostSwitchWalletPayload struct {

	// index of the wallet in the vault
	// Required: true
	Index *int `json:"index"`
}

func (m *PostSwitchWalletPayload) Validate() error {
	if m.Index == nil {
		return errors.New("index is required")
	}
	if *m.Index < 0 {
		return errors.New("index must not be negative")
	}

	return nil
}

// PostPinPayload post pin payload
type PostPinPayload struct {

	// pin
	// Required: true
	Pin string `json:"pin"`
}

func (m *PostPinPayload) Validate() error {
	if m.Pin == "" {
		return errors.New("pin is required")
	}

	return nil
}

// PinCheckResponse pin check response
type PinCheckResponse struct {
	Valid bool `json:"valid"`
}

// AccountsResponse accounts response
type AccountsResponse struct {
	Active   string   `json:"active"`
	Accounts []string `json:"accounts"`
}

// BalanceResponse balance response
type BalanceResponse struct {
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
	Unit    string `json:"unit"`
	Balance string `json:"balance"`
}
