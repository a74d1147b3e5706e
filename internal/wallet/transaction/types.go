package transaction

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ErrValidation is returned for malformed transaction requests, before any network call.
var ErrValidation = errors.New("invalid transaction")

var allowedFields = map[string]struct{}{
	"from":                 {},
	"to":                   {},
	"value":                {},
	"gas":                  {},
	"gasPrice":             {},
	"nonce":                {},
	"maxPriorityFeePerGas": {},
	"maxFeePerGas":         {},
	"data":                 {},
	"type":                 {},
	"chainId":              {},
}

// Request is a sanitized transaction request as issued by the host.
type Request struct {
	From                 string `json:"from,omitempty"`
	To                   string `json:"to,omitempty"`
	Value                string `json:"value,omitempty"`
	Gas                  string `json:"gas,omitempty"`
	GasPrice             string `json:"gasPrice,omitempty"`
	Nonce                string `json:"nonce,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	Data                 string `json:"data,omitempty"`
	Type                 string `json:"type,omitempty"`
	ChainID              string `json:"chainId,omitempty"`

	// GasLimit is chosen by the user through SetGas and wins over Gas.
	GasLimit string `json:"gasLimit,omitempty"`

	fields []string
}

// Sanitize checks the request against the field allow-list. Any other key is a hard failure.
func Sanitize(raw map[string]any) (*Request, error) {
	fields := make([]string, 0, len(raw))
	for key := range raw {
		if _, ok := allowedFields[key]; !ok {
			return nil, errors.Wrapf(ErrValidation, "Invalid transaction attribute \"%s\"", key)
		}
		fields = append(fields, key)
	}
	sort.Strings(fields)

	req := &Request{fields: fields}
	targets := map[string]*string{
		"from":                 &req.From,
		"to":                   &req.To,
		"value":                &req.Value,
		"gas":                  &req.Gas,
		"gasPrice":             &req.GasPrice,
		"nonce":                &req.Nonce,
		"maxPriorityFeePerGas": &req.MaxPriorityFeePerGas,
		"maxFeePerGas":         &req.MaxFeePerGas,
		"data":                 &req.Data,
		"type":                 &req.Type,
		"chainId":              &req.ChainID,
	}

	for key, value := range raw {
		s, err := stringify(value)
		if err != nil {
			return nil, errors.Wrapf(ErrValidation, "Invalid transaction attribute \"%s\": %v", key, err)
		}
		*targets[key] = s
	}

	return req, nil
}

// Fields returns the sorted keys present in the original request.
func (r *Request) Fields() []string {
	return append([]string(nil), r.fields...)
}

// SetGas stores the gas limit and fees picked by the user. Empty values leave the current value untouched.
func (r *Request) SetGas(gasLimit string, maxFeePerGas string, maxPriorityFeePerGas string) {
	if gasLimit != "" {
		r.GasLimit = gasLimit
	}
	if maxFeePerGas != "" {
		r.MaxFeePerGas = maxFeePerGas
	}
	if maxPriorityFeePerGas != "" {
		r.MaxPriorityFeePerGas = maxPriorityFeePerGas
	}
}

func (r *Request) effectiveGasLimit() string {
	if r.GasLimit != "" {
		return r.GasLimit
	}

	return r.Gas
}

func (r *Request) effectiveMaxFee() string {
	if r.MaxFeePerGas != "" {
		return r.MaxFeePerGas
	}

	return r.GasPrice
}

func (r *Request) effectiveMaxPriorityFee() string {
	if r.MaxPriorityFeePerGas != "" {
		return r.MaxPriorityFeePerGas
	}

	return r.effectiveMaxFee()
}

func stringify(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	default:
		return "", errors.Errorf("unsupported value type %T", value)
	}
}

// RawTransaction is the unsigned, family shaped transaction handed to the signer.
type RawTransaction struct {
	To                   string `json:"to"`
	From                 string `json:"from"`
	Value                string `json:"value,omitempty"`
	GasLimit             string `json:"gasLimit"`
	Nonce                uint64 `json:"nonce"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
	Type                 string `json:"type,omitempty"`
	ChainID              int64  `json:"chainId,omitempty"`
	Data                 string `json:"data,omitempty"`
}

// IsLegacy reports whether the transaction carries a single gas price.
func (r *RawTransaction) IsLegacy() bool {
	return r.GasPrice != ""
}

// ToTypes converts the raw transaction into a go-ethereum transaction. chainID is used when the
// raw transaction does not carry one.
func (r *RawTransaction) ToTypes(chainID int64) (*types.Transaction, error) {
	if r.ChainID != 0 {
		chainID = r.ChainID
	}

	var to *common.Address
	if r.To != "" {
		if !common.IsHexAddress(r.To) {
			return nil, errors.Wrapf(ErrValidation, "invalid to address %q", r.To)
		}
		addr := common.HexToAddress(r.To)
		to = &addr
	}

	value, err := ParseQuantity(r.Value)
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}

	gas, err := ParseQuantity(r.GasLimit)
	if err != nil {
		return nil, errors.Wrap(err, "gasLimit")
	}
	if !gas.IsUint64() || gas.Sign() == 0 {
		return nil, errors.Wrapf(ErrValidation, "invalid gas limit %q", r.GasLimit)
	}

	var data []byte
	if r.Data != "" && r.Data != "0x" {
		data, err = hexutil.Decode(r.Data)
		if err != nil {
			return nil, errors.Wrapf(ErrValidation, "invalid data: %v", err)
		}
	}

	if r.IsLegacy() {
		gasPrice, err := ParseQuantity(r.GasPrice)
		if err != nil {
			return nil, errors.Wrap(err, "gasPrice")
		}

		return types.NewTx(&types.LegacyTx{
			Nonce:    r.Nonce,
			GasPrice: gasPrice,
			Gas:      gas.Uint64(),
			To:       to,
			Value:    value,
			Data:     data,
		}), nil
	}

	feeCap, err := ParseQuantity(r.MaxFeePerGas)
	if err != nil {
		return nil, errors.Wrap(err, "maxFeePerGas")
	}
	tipCap, err := ParseQuantity(r.MaxPriorityFeePerGas)
	if err != nil {
		return nil, errors.Wrap(err, "maxPriorityFeePerGas")
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     r.Nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas.Uint64(),
		To:        to,
		Value:     value,
		Data:      data,
	}), nil
}

func (r *RawTransaction) String() string {
	fee := "gasPrice=" + r.GasPrice
	if !r.IsLegacy() {
		fee = fmt.Sprintf("maxFeePerGas=%s maxPriorityFeePerGas=%s", r.MaxFeePerGas, r.MaxPriorityFeePerGas)
	}

	return fmt.Sprintf("RawTransaction{from=%s to=%s value=%s nonce=%d gasLimit=%s %s chainId=%d}",
		r.From, r.To, r.Value, r.Nonce, r.GasLimit, strings.TrimSpace(fee), r.ChainID)
}
