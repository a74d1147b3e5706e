package transaction

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github/keyless/go-connector/internal/wallet/chain"
)

// FeeSource is the part of the chain client used for fee suggestions.
type FeeSource interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// FeeTier is one suggestion, fees in gwei and wait times in milliseconds.
type FeeTier struct {
	MaxWaitTimeEstimate           int64  `json:"maxWaitTimeEstimate"`
	MinWaitTimeEstimate           int64  `json:"minWaitTimeEstimate"`
	SuggestedMaxFeePerGas         string `json:"suggestedMaxFeePerGas"`
	SuggestedMaxPriorityFeePerGas string `json:"suggestedMaxPriorityFeePerGas"`
}

type FeeEstimate struct {
	EstimatedBaseFee string  `json:"estimatedBaseFee"`
	Low              FeeTier `json:"low"`
	Medium           FeeTier `json:"medium"`
	High             FeeTier `json:"high"`
}

var (
	lowWait    = [2]int64{30 * 1000, 60 * 1000}
	mediumWait = [2]int64{10 * 1000, 30 * 1000}
	highWait   = [2]int64{5 * 1000, 10 * 1000}
)

// EstimateFees returns low/medium/high fee presets. The legacy test network uses fixed tiers,
// every other chain derives them from the node's base fee and tip suggestion.
func EstimateFees(ctx context.Context, cfg *chain.Config, source FeeSource) (*FeeEstimate, error) {
	if cfg.Family == chain.FamilyMumbai {
		return &FeeEstimate{
			EstimatedBaseFee: "16",
			Low:              tier(lowWait, "140", "140"),
			Medium:           tier(mediumWait, "180", "180"),
			High:             tier(highWait, "250", "250"),
		}, nil
	}

	tip, err := source.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas tip cap")
	}

	header, err := source.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest header")
	}

	baseFee := decimal.Zero
	if header.BaseFee != nil {
		baseFee = weiToGwei(header.BaseFee)
	}
	tipGwei := weiToGwei(tip)

	suggest := func(baseMultiplier string, tipMultiplier string) (string, string) {
		priority := tipGwei.Mul(decimal.RequireFromString(tipMultiplier))
		maxFee := baseFee.Mul(decimal.RequireFromString(baseMultiplier)).Add(priority)
		return maxFee.Round(feeDecimals).String(), priority.Round(feeDecimals).String()
	}

	lowMax, lowTip := suggest("1", "1")
	mediumMax, mediumTip := suggest("1.5", "1.25")
	highMax, highTip := suggest("2", "1.5")

	return &FeeEstimate{
		EstimatedBaseFee: baseFee.Round(feeDecimals).String(),
		Low:              tier(lowWait, lowMax, lowTip),
		Medium:           tier(mediumWait, mediumMax, mediumTip),
		High:             tier(highWait, highMax, highTip),
	}, nil
}

func tier(wait [2]int64, maxFee string, maxPriorityFee string) FeeTier {
	return FeeTier{
		MinWaitTimeEstimate:           wait[0],
		MaxWaitTimeEstimate:           wait[1],
		SuggestedMaxFeePerGas:         maxFee,
		SuggestedMaxPriorityFeePerGas: maxPriorityFee,
	}
}

func weiToGwei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -gweiDecimals)
}
