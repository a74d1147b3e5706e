package chain

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownChain 链 ID 不在注册表中
var ErrUnknownChain = errors.New("unknown chain")

// Family 链族，决定交易结构和签名策略
type Family string

const (
	FamilyEthereum Family = "ethereum"
	FamilyPolygon  Family = "polygon"
	FamilyMumbai   Family = "mumbai"
	FamilyOther    Family = "other"
)

// ParseFamily 解析链族名称，未知名称归为 other
func ParseFamily(name string) Family {
	switch Family(strings.ToLower(strings.TrimSpace(name))) {
	case FamilyEthereum:
		return FamilyEthereum
	case FamilyPolygon:
		return FamilyPolygon
	case FamilyMumbai:
		return FamilyMumbai
	default:
		return FamilyOther
	}
}

// VaultNetwork 返回 vault changeNetwork 使用的网络名
func (f Family) VaultNetwork() string {
	switch f {
	case FamilyPolygon, FamilyMumbai:
		return string(FamilyPolygon)
	default:
		return string(FamilyEthereum)
	}
}

// Config 链配置
type Config struct {
	ChainID      int64  `toml:"chain_id" json:"chainId"`
	Name         string `toml:"name" json:"name"`
	Family       Family `toml:"family" json:"family"`
	RPCURL       string `toml:"rpc_url" json:"rpcUrl"`
	Explorer     string `toml:"explorer" json:"explorer"`
	NativeSymbol string `toml:"native_symbol" json:"nativeSymbol"`
}

// RPCURLs 解析 RPC URL（支持多个，逗号分隔）
func (c *Config) RPCURLs() []string {
	return ParseRPCURLs(c.RPCURL)
}

// Registry 定义链注册表接口
type Registry interface {
	// Resolve 根据 chain_id 查询链配置
	Resolve(chainID int64) (*Config, error)

	// Override 启动时用调用方提供的 RPC URL 覆盖链配置
	Override(chainID int64, rpcURL string) error

	// OverrideAll 批量覆盖
	OverrideAll(overrides map[int64]string) error

	// List 查询所有链配置，按 chain_id 排序
	List() []*Config

	// ExplorerTxURL 返回交易在区块浏览器中的地址
	ExplorerTxURL(chainID int64, txHash string) (string, error)
}
