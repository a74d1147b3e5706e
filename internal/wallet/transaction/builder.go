package transaction

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/chain"
)

// DefaultLegacyGasLimit is used on the locally signed legacy network when no gas limit was chosen.
const DefaultLegacyGasLimit = 40000

// NonceSource yields the next nonce of an account, counting pending transactions.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Shaper turns a request into the raw transaction shape of one chain family.
type Shaper func(req *Request, cfg *chain.Config, nonce uint64) (*RawTransaction, error)

var shapers = map[chain.Family]Shaper{
	chain.FamilyEthereum: feeMarket,
	chain.FamilyPolygon:  polygon,
	chain.FamilyMumbai:   legacy,
	chain.FamilyOther:    feeMarket,
}

// ShaperFor selects the shaper of a chain family.
func ShaperFor(family chain.Family) Shaper {
	if s, ok := shapers[family]; ok {
		return s
	}

	return feeMarket
}

// Build fetches the next nonce for the sender and shapes the transaction for the chain family.
func Build(ctx context.Context, req *Request, cfg *chain.Config, nonces NonceSource) (*RawTransaction, error) {
	return BuildWith(ctx, req, cfg, nonces, ShaperFor(cfg.Family))
}

// BuildWith is Build with an explicit shaper.
func BuildWith(ctx context.Context, req *Request, cfg *chain.Config, nonces NonceSource, shape Shaper) (*RawTransaction, error) {
	log := util.LogFromContext(ctx)

	if !common.IsHexAddress(req.From) {
		return nil, errors.Wrapf(ErrValidation, "invalid from address %q", req.From)
	}

	nonce, err := nonces.PendingNonceAt(ctx, common.HexToAddress(req.From))
	if err != nil {
		log.Debug().Err(err).Str("from", req.From).Msg("Failed to fetch nonce")
		return nil, errors.Wrap(err, "failed to fetch nonce")
	}

	raw, err := shape(req, cfg, nonce)
	if err != nil {
		return nil, err
	}

	log.Debug().Int64("chainId", cfg.ChainID).Str("family", string(cfg.Family)).Uint64("nonce", nonce).Msg("Built raw transaction")

	return raw, nil
}

func feeMarket(req *Request, _ *chain.Config, nonce uint64) (*RawTransaction, error) {
	gasLimit, err := gasLimitHex(req.effectiveGasLimit(), 0)
	if err != nil {
		return nil, err
	}

	maxFee, err := FeeToWeiHex(req.effectiveMaxFee())
	if err != nil {
		return nil, errors.Wrap(err, "maxFeePerGas")
	}

	maxPriorityFee, err := FeeToWeiHex(req.effectiveMaxPriorityFee())
	if err != nil {
		return nil, errors.Wrap(err, "maxPriorityFeePerGas")
	}

	return &RawTransaction{
		To:                   req.To,
		From:                 req.From,
		Value:                req.Value,
		GasLimit:             gasLimit,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: maxPriorityFee,
		Nonce:                nonce,
		Data:                 req.Data,
	}, nil
}

func polygon(req *Request, cfg *chain.Config, nonce uint64) (*RawTransaction, error) {
	raw, err := feeMarket(req, cfg, nonce)
	if err != nil {
		return nil, err
	}

	raw.Type = "0x2"
	raw.ChainID = cfg.ChainID

	return raw, nil
}

func legacy(req *Request, cfg *chain.Config, nonce uint64) (*RawTransaction, error) {
	gasLimit, err := gasLimitHex(req.effectiveGasLimit(), DefaultLegacyGasLimit)
	if err != nil {
		return nil, err
	}

	gasPrice, err := FeeToWeiHex(req.effectiveMaxFee())
	if err != nil {
		return nil, errors.Wrap(err, "gasPrice")
	}

	value, err := legacyValue(req.Value)
	if err != nil {
		return nil, err
	}

	return &RawTransaction{
		To:       req.To,
		From:     req.From,
		Value:    value,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		Nonce:    nonce,
		ChainID:  cfg.ChainID,
		Data:     req.Data,
	}, nil
}

// legacyValue keeps hex wei and converts decimal ether to hex wei.
func legacyValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "0x0", nil
	}

	if strings.HasPrefix(value, "0x") {
		n, err := ParseQuantity(value)
		if err != nil {
			return "", err
		}
		return NumberToHex(n), nil
	}

	wei, err := EtherToWei(value)
	if err != nil {
		return "", err
	}

	return NumberToHex(wei), nil
}

func gasLimitHex(gasLimit string, fallback int64) (string, error) {
	if strings.TrimSpace(gasLimit) == "" {
		if fallback == 0 {
			return "", errors.Wrap(ErrValidation, "missing gas limit")
		}
		return NumberToHex(big.NewInt(fallback)), nil
	}

	n, err := ParseQuantity(gasLimit)
	if err != nil {
		return "", errors.Wrap(err, "gasLimit")
	}

	return NumberToHex(n), nil
}
