package transaction

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	gweiDecimals  = 9
	etherDecimals = 18
	feeDecimals   = 2
)

// ToFixed2 parses a decimal string and rounds it to two places.
func ToFixed2(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrValidation, "invalid number %q", s)
	}

	return d.Round(feeDecimals), nil
}

// GweiToWei converts a gwei amount to wei. Fractions below one wei are rejected.
func GweiToWei(gwei decimal.Decimal) (*big.Int, error) {
	return shiftToInt(gwei, gweiDecimals)
}

// EtherToWei converts a decimal ether string to wei.
func EtherToWei(ether string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(ether))
	if err != nil {
		return nil, errors.Wrapf(ErrValidation, "invalid ether amount %q", ether)
	}

	return shiftToInt(d, etherDecimals)
}

// NumberToHex encodes a quantity as 0x prefixed hex without leading zeros.
func NumberToHex(n *big.Int) string {
	return hexutil.EncodeBig(n)
}

// ParseQuantity accepts 0x hex or a decimal integer string. Empty means zero.
func ParseQuantity(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}

	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return new(big.Int), nil
		}
		_, ok = n.SetString(s[2:], 16)
	} else {
		_, ok = n.SetString(s, 10)
	}

	if !ok || n.Sign() < 0 {
		return nil, errors.Wrapf(ErrValidation, "invalid quantity %q", s)
	}

	return n, nil
}

// FeeToWeiHex converts a user supplied fee to hex wei. Hex input is taken as wei already;
// decimal input is gwei, rounded to two places first.
func FeeToWeiHex(fee string) (string, error) {
	fee = strings.TrimSpace(fee)
	if fee == "" {
		return "", errors.Wrap(ErrValidation, "missing fee")
	}

	if strings.HasPrefix(fee, "0x") {
		n, err := ParseQuantity(fee)
		if err != nil {
			return "", err
		}
		return NumberToHex(n), nil
	}

	gwei, err := ToFixed2(fee)
	if err != nil {
		return "", err
	}

	wei, err := GweiToWei(gwei)
	if err != nil {
		return "", err
	}

	return NumberToHex(wei), nil
}

func shiftToInt(d decimal.Decimal, places int32) (*big.Int, error) {
	if d.IsNegative() {
		return nil, errors.Wrapf(ErrValidation, "negative amount %s", d.String())
	}

	shifted := d.Shift(places)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, errors.Wrapf(ErrValidation, "amount %s has too many decimals", d.String())
	}

	return shifted.BigInt(), nil
}
