package signer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/transaction"
	"github/keyless/go-connector/internal/wallet/vault"
)

// signFunc signs a raw transaction with an already restored keyring.
type signFunc func(ctx context.Context, gw vault.Gateway, rawTx *transaction.RawTransaction, pin string, cfg *chain.Config) (SignedTransaction, error)

// Strategy pairs the transaction shape and the signing path of a chain family.
type Strategy struct {
	Family chain.Family
	Shape  transaction.Shaper
	sign   signFunc
}

var strategies = map[chain.Family]signFunc{
	chain.FamilyEthereum: signWithVault,
	chain.FamilyPolygon:  signWithVault,
	chain.FamilyMumbai:   signLegacyLocally,
	chain.FamilyOther:    signWithVault,
}

// StrategyFor selects the strategy of a chain family once.
func StrategyFor(family chain.Family) Strategy {
	sign, ok := strategies[family]
	if !ok {
		sign = signWithVault
	}

	return Strategy{
		Family: family,
		Shape:  transaction.ShaperFor(family),
		sign:   sign,
	}
}

// Local reports whether the strategy signs outside the vault.
func (s Strategy) Local() bool {
	return s.Family == chain.FamilyMumbai
}

// NormalizeAddress rebuilds an address as "0x" + the last 40 hex characters, lower-cased.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) < 40 {
		return "0x" + strings.ToLower(strings.TrimPrefix(addr, "0x"))
	}

	return "0x" + strings.ToLower(addr[len(addr)-40:])
}

func signWithVault(ctx context.Context, gw vault.Gateway, rawTx *transaction.RawTransaction, pin string, cfg *chain.Config) (SignedTransaction, error) {
	if err := gw.ChangeNetwork(ctx, cfg.Family.VaultNetwork()); err != nil {
		return "", errors.Wrap(err, "failed to change vault network")
	}

	signed, err := gw.SignTransaction(ctx, rawTx, pin, cfg.RPCURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	return SignedTransaction(signed), nil
}

// signLegacyLocally signs an EIP-155 legacy transaction with a key exported for this call only.
func signLegacyLocally(ctx context.Context, gw vault.Gateway, rawTx *transaction.RawTransaction, pin string, cfg *chain.Config) (SignedTransaction, error) {
	fromAddress := common.HexToAddress(rawTx.From)

	privateKey, err := gw.ExportPrivateKey(ctx, fromAddress, pin)
	if err != nil {
		return "", errors.Wrap(err, "failed to export private key")
	}

	// Clear private key after use
	defer func() {
		for i := range privateKey {
			privateKey[i] = 0
		}
	}()

	ecdsaPrivateKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert private key to ECDSA")
	}
	defer ecdsaPrivateKey.D.SetInt64(0)

	publicKeyECDSA, ok := ecdsaPrivateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return "", errors.New("failed to cast public key to ECDSA")
	}

	if crypto.PubkeyToAddress(*publicKeyECDSA) != fromAddress {
		return "", errors.New("from address does not match private key")
	}

	legacy := *rawTx
	if legacy.GasPrice == "" {
		legacy.GasPrice = rawTx.MaxFeePerGas
	}

	//nolint:varnamelen // tx is a common abbreviation for transaction
	tx, err := legacy.ToTypes(cfg.ChainID)
	if err != nil {
		return "", err
	}

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(cfg.ChainID)), ecdsaPrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	txBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal transaction")
	}

	return SignedTransaction(hexutil.Encode(txBytes)), nil
}
