package transaction_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/transaction"
)

const (
	fromAddr = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	toAddr   = "0x6fC21092DA55B392b045eD78F4732bff3C580e2c"
)

type nonceSource struct {
	nonce uint64
	err   error
	calls int
}

func (n *nonceSource) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	n.calls++
	return n.nonce, n.err
}

func chainConfig(t *testing.T, id int64) *chain.Config {
	t.Helper()

	c, err := chain.NewRegistry(chain.DefaultChains()).Resolve(id)
	require.NoError(t, err)
	return c
}

func TestSanitizeAllowList(t *testing.T) {
	raw := map[string]any{
		"from":                 fromAddr,
		"to":                   toAddr,
		"value":                "0x1",
		"gas":                  float64(21000),
		"gasPrice":             "1",
		"nonce":                "0x0",
		"maxPriorityFeePerGas": "2",
		"maxFeePerGas":         "50",
		"data":                 "0x",
		"type":                 "0x2",
		"chainId":              float64(1),
	}

	req, err := transaction.Sanitize(raw)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"from", "to", "value", "gas", "gasPrice", "nonce", "maxPriorityFeePerGas", "maxFeePerGas", "data", "type", "chainId"}, req.Fields())
	assert.Equal(t, "21000", req.Gas)
	assert.Equal(t, "1", req.ChainID)

	subset, err := transaction.Sanitize(map[string]any{"from": fromAddr, "to": toAddr})
	require.NoError(t, err)
	assert.Equal(t, []string{"from", "to"}, subset.Fields())
}

func TestSanitizeRejectsUnknownField(t *testing.T) {
	for _, field := range []string{"gasLimit", "input", "accessList", "FROM"} {
		_, err := transaction.Sanitize(map[string]any{"from": fromAddr, field: "1"})
		require.Error(t, err, field)
		assert.True(t, errors.Is(err, transaction.ErrValidation))
		assert.Contains(t, err.Error(), `Invalid transaction attribute "`+field+`"`)
	}
}

func TestBuildFeeMarket(t *testing.T) {
	req := &transaction.Request{From: fromAddr, To: toAddr, Value: "0x0"}
	req.SetGas("21000", "50", "2")

	nonces := &nonceSource{nonce: 7}
	raw, err := transaction.Build(t.Context(), req, chainConfig(t, 1), nonces)
	require.NoError(t, err)

	assert.Equal(t, 1, nonces.calls)
	assert.Equal(t, uint64(7), raw.Nonce)
	assert.Equal(t, "0x5208", raw.GasLimit)
	assert.Equal(t, "0xba43b7400", raw.MaxFeePerGas)
	assert.Equal(t, "0x77359400", raw.MaxPriorityFeePerGas)
	assert.Empty(t, raw.GasPrice)
	assert.Empty(t, raw.Type)
	assert.Zero(t, raw.ChainID)
	assert.Equal(t, "0x0", raw.Value)
}

func TestBuildPolygonStampsTypeAndChain(t *testing.T) {
	req := &transaction.Request{From: fromAddr, To: toAddr}
	req.SetGas("21000", "50", "2")

	raw, err := transaction.Build(t.Context(), req, chainConfig(t, 137), &nonceSource{})
	require.NoError(t, err)
	assert.Equal(t, "0x2", raw.Type)
	assert.Equal(t, int64(137), raw.ChainID)
	assert.Equal(t, "0xba43b7400", raw.MaxFeePerGas)
}

func TestBuildRoundsFeesToTwoDecimals(t *testing.T) {
	req := &transaction.Request{From: fromAddr, To: toAddr}
	req.SetGas("0x5208", "1.005", "0.123456")

	raw, err := transaction.Build(t.Context(), req, chainConfig(t, 1), &nonceSource{})
	require.NoError(t, err)

	// 1.01 gwei and 0.12 gwei
	assert.Equal(t, transaction.NumberToHex(big.NewInt(1010000000)), raw.MaxFeePerGas)
	assert.Equal(t, transaction.NumberToHex(big.NewInt(120000000)), raw.MaxPriorityFeePerGas)
}

func TestBuildMumbaiDefaultsAndValue(t *testing.T) {
	cfg := chainConfig(t, 80001)

	fromHex := &transaction.Request{From: fromAddr, To: toAddr, Value: "0xde0b6b3a7640000", MaxFeePerGas: "180"}
	rawHex, err := transaction.Build(t.Context(), fromHex, cfg, &nonceSource{nonce: 3})
	require.NoError(t, err)

	fromEther := &transaction.Request{From: fromAddr, To: toAddr, Value: "1", MaxFeePerGas: "180"}
	rawEther, err := transaction.Build(t.Context(), fromEther, cfg, &nonceSource{nonce: 3})
	require.NoError(t, err)

	assert.Equal(t, "0x9c40", rawHex.GasLimit)
	assert.Equal(t, rawHex.Value, rawEther.Value)
	assert.Equal(t, "0xde0b6b3a7640000", rawEther.Value)
	assert.Equal(t, transaction.NumberToHex(big.NewInt(180000000000)), rawHex.GasPrice)
	assert.Empty(t, rawHex.MaxFeePerGas)
	assert.Empty(t, rawHex.MaxPriorityFeePerGas)
	assert.Equal(t, int64(80001), rawHex.ChainID)
	assert.True(t, rawHex.IsLegacy())
}

func TestBuildMumbaiExplicitGasLimit(t *testing.T) {
	req := &transaction.Request{From: fromAddr, To: toAddr, Value: "0.5", MaxFeePerGas: "140"}
	req.SetGas("60000", "", "")

	raw, err := transaction.Build(t.Context(), req, chainConfig(t, 80001), &nonceSource{})
	require.NoError(t, err)
	assert.Equal(t, "0xea60", raw.GasLimit)
}

func TestBuildHexFeesPassThrough(t *testing.T) {
	req := &transaction.Request{From: fromAddr, To: toAddr, Gas: "0x5208", GasPrice: "0x3b9aca00"}

	raw, err := transaction.Build(t.Context(), req, chainConfig(t, 1), &nonceSource{})
	require.NoError(t, err)
	assert.Equal(t, "0x3b9aca00", raw.MaxFeePerGas)
	assert.Equal(t, "0x3b9aca00", raw.MaxPriorityFeePerGas)
}

func TestBuildValidation(t *testing.T) {
	nonces := &nonceSource{}

	_, err := transaction.Build(t.Context(), &transaction.Request{From: "nope"}, chainConfig(t, 1), nonces)
	assert.True(t, errors.Is(err, transaction.ErrValidation))
	assert.Zero(t, nonces.calls)

	_, err = transaction.Build(t.Context(), &transaction.Request{From: fromAddr, To: toAddr, MaxFeePerGas: "1"}, chainConfig(t, 1), nonces)
	assert.True(t, errors.Is(err, transaction.ErrValidation))

	_, err = transaction.Build(t.Context(), &transaction.Request{From: fromAddr, Gas: "21000"}, chainConfig(t, 1), nonces)
	assert.True(t, errors.Is(err, transaction.ErrValidation))
}

func TestBuildNonceFailure(t *testing.T) {
	req := &transaction.Request{From: fromAddr, To: toAddr}
	req.SetGas("21000", "50", "2")

	_, err := transaction.Build(t.Context(), req, chainConfig(t, 1), &nonceSource{err: errors.New("boom")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRawTransactionToTypes(t *testing.T) {
	raw := &transaction.RawTransaction{
		To:                   toAddr,
		From:                 fromAddr,
		Value:                "0x1",
		GasLimit:             "0x5208",
		MaxFeePerGas:         "0xba43b7400",
		MaxPriorityFeePerGas: "0x77359400",
		Nonce:                2,
		Data:                 "0xdeadbeef",
	}

	tx, err := raw.ToTypes(5)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, big.NewInt(5), tx.ChainId())
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, tx.Data())

	legacy := &transaction.RawTransaction{To: toAddr, GasLimit: "0x9c40", GasPrice: "0x1", Value: "10", ChainID: 80001}
	ltx, err := legacy.ToTypes(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), ltx.Type())
	assert.Equal(t, big.NewInt(10), ltx.Value())

	_, err = (&transaction.RawTransaction{To: toAddr, GasLimit: "", GasPrice: "0x1"}).ToTypes(1)
	assert.Error(t, err)
}

func TestUnits(t *testing.T) {
	wei, err := transaction.EtherToWei("0.000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), wei)

	_, err = transaction.EtherToWei("0.0000000000000000001")
	assert.Error(t, err)

	_, err = transaction.EtherToWei("-1")
	assert.Error(t, err)

	d, err := transaction.ToFixed2("2.345")
	require.NoError(t, err)
	assert.Equal(t, "2.35", d.String())

	q, err := transaction.ParseQuantity("0x05")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), q)

	_, err = transaction.ParseQuantity("1.5")
	assert.Error(t, err)
}

type feeSource struct {
	tip     *big.Int
	baseFee *big.Int
}

func (f *feeSource) SuggestGasTipCap(_ context.Context) (*big.Int, error) { return f.tip, nil }

func (f *feeSource) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func TestEstimateFees(t *testing.T) {
	mumbai, err := transaction.EstimateFees(t.Context(), chainConfig(t, 80001), nil)
	require.NoError(t, err)
	assert.Equal(t, "16", mumbai.EstimatedBaseFee)
	assert.Equal(t, "140", mumbai.Low.SuggestedMaxFeePerGas)
	assert.Equal(t, "180", mumbai.Medium.SuggestedMaxFeePerGas)
	assert.Equal(t, "250", mumbai.High.SuggestedMaxFeePerGas)

	source := &feeSource{tip: big.NewInt(2_000_000_000), baseFee: big.NewInt(10_000_000_000)}
	eth, err := transaction.EstimateFees(t.Context(), chainConfig(t, 1), source)
	require.NoError(t, err)
	assert.Equal(t, "10", eth.EstimatedBaseFee)
	assert.Equal(t, "12", eth.Low.SuggestedMaxFeePerGas)
	assert.Equal(t, "2", eth.Low.SuggestedMaxPriorityFeePerGas)
	assert.Equal(t, "17.5", eth.Medium.SuggestedMaxFeePerGas)
	assert.Equal(t, "23", eth.High.SuggestedMaxFeePerGas)
}
