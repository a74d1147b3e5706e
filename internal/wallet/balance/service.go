//nolint:ireturn // 返回接口类型是预期的设计
package balance

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github/keyless/go-connector/internal/wallet/rpc"
)

// etherDecimals 以太币与 wei 之间的小数位数
const etherDecimals = 18

// Unit 余额返回单位
type Unit string

const (
	UnitWei   Unit = "wei"
	UnitEther Unit = "ether"
)

// ErrInvalidAddress 地址格式不合法
var ErrInvalidAddress = errors.New("invalid address")

// Backends 按链获取 RPC 后端
type Backends interface {
	Get(ctx context.Context, chainID int64) (rpc.Backend, error)
}

// Service 余额服务接口
type Service interface {
	// GetWalletBalance 查询地址在指定链上的原生币余额，按 unit 返回十进制字符串
	GetWalletBalance(ctx context.Context, chainID int64, address string, unit Unit) (string, error)

	// GetBalance 查询地址在指定链上的原生币余额（wei）
	GetBalance(ctx context.Context, chainID int64, address string, block *big.Int) (*big.Int, error)
}

// service 实现 Service 接口
type service struct {
	backends Backends
}

// NewService 创建余额服务
//
//nolint:ireturn // 返回接口类型是预期的设计
func NewService(backends Backends) Service {
	return &service{
		backends: backends,
	}
}

// GetBalance 查询地址在指定链上的原生币余额（wei），block 为 nil 时查询最新区块
func (s *service) GetBalance(ctx context.Context, chainID int64, address string, block *big.Int) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, errors.Wrapf(ErrInvalidAddress, "%q", address)
	}

	backend, err := s.backends.Get(ctx, chainID)
	if err != nil {
		return nil, err
	}

	wei, err := backend.BalanceAt(ctx, common.HexToAddress(address), block)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get balance of %s", address)
	}

	return wei, nil
}

// GetWalletBalance 查询余额并换算单位
func (s *service) GetWalletBalance(ctx context.Context, chainID int64, address string, unit Unit) (string, error) {
	wei, err := s.GetBalance(ctx, chainID, address, nil)
	if err != nil {
		return "", err
	}

	return Format(wei, unit)
}

// Format 将 wei 按单位格式化为十进制字符串
func Format(wei *big.Int, unit Unit) (string, error) {
	switch unit {
	case UnitWei, "":
		return wei.String(), nil
	case UnitEther:
		return WeiToEther(wei).String(), nil
	default:
		return "", errors.Errorf("unsupported unit %q", unit)
	}
}

// WeiToEther 精确换算 wei 到 ether
func WeiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -etherDecimals)
}
