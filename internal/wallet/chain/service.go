package chain

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/keyless/go-connector/internal/config"
)

// registry 实现 Registry 接口
type registry struct {
	mu     sync.RWMutex
	chains map[int64]*Config
}

// NewRegistry 创建链注册表
//
//nolint:ireturn
func NewRegistry(chains []*Config) Registry {
	r := &registry{chains: make(map[int64]*Config, len(chains))}
	for _, c := range chains {
		cp := *c
		cp.Family = ParseFamily(string(c.Family))
		r.chains[c.ChainID] = &cp
	}

	return r
}

// NewRegistryFromConfig 根据配置构建注册表：先加载链表文件（未配置则用内置链表），再应用 RPC 覆盖
//
//nolint:ireturn
func NewRegistryFromConfig(cfg config.ChainsServer) (Registry, error) {
	chains := DefaultChains()
	if cfg.File != "" {
		loaded, err := Load(cfg.File)
		if err != nil {
			return nil, err
		}
		chains = loaded
	}

	r := NewRegistry(chains)
	if err := r.OverrideAll(cfg.RPCOverrides); err != nil {
		return nil, err
	}

	return r, nil
}

type chainFile struct {
	Chains []*Config `toml:"chain"`
}

// Load 解析 TOML 链表文件
func Load(path string) ([]*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read chain file %s", path)
	}

	var file chainFile
	if _, err := toml.Decode(string(raw), &file); err != nil {
		return nil, errors.Wrapf(err, "failed to decode chain file %s", path)
	}

	if len(file.Chains) == 0 {
		return nil, errors.Errorf("chain file %s defines no chains", path)
	}

	for _, c := range file.Chains {
		if c.ChainID <= 0 {
			return nil, errors.Errorf("chain file %s contains a chain without chain_id", path)
		}
	}

	return file.Chains, nil
}

// DefaultChains 内置链表
func DefaultChains() []*Config {
	return []*Config{
		{ChainID: 1, Name: "ethereum", Family: FamilyEthereum, RPCURL: "https://cloudflare-eth.com", Explorer: "https://etherscan.io", NativeSymbol: "ETH"},
		{ChainID: 3, Name: "ropsten", Family: FamilyEthereum, RPCURL: "https://rpc.ankr.com/eth_ropsten", Explorer: "https://ropsten.etherscan.io", NativeSymbol: "ETH"},
		{ChainID: 4, Name: "rinkeby", Family: FamilyEthereum, RPCURL: "https://rpc.ankr.com/eth_rinkeby", Explorer: "https://rinkeby.etherscan.io", NativeSymbol: "ETH"},
		{ChainID: 42, Name: "kovan", Family: FamilyEthereum, RPCURL: "https://kovan.poa.network", Explorer: "https://kovan.etherscan.io", NativeSymbol: "ETH"},
		{ChainID: 420, Name: "optimism-goerli", Family: FamilyOther, RPCURL: "https://goerli.optimism.io", Explorer: "https://goerli-optimism.etherscan.io", NativeSymbol: "ETH"},
		{ChainID: 137, Name: "polygon", Family: FamilyPolygon, RPCURL: "https://polygon-rpc.com", Explorer: "https://polygonscan.com", NativeSymbol: "MATIC"},
		{ChainID: 80001, Name: "mumbai", Family: FamilyMumbai, RPCURL: "https://rpc-mumbai.maticvigil.com", Explorer: "https://mumbai.polygonscan.com", NativeSymbol: "MATIC"},
	}
}

// Resolve 根据 chain_id 查询链配置，返回副本
func (r *registry) Resolve(chainID int64) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chains[chainID]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownChain, "chain id %d", chainID)
	}

	cp := *c
	return &cp, nil
}

func (r *registry) Override(chainID int64, rpcURL string) error {
	if len(ParseRPCURLs(rpcURL)) == 0 {
		return errors.Errorf("empty rpc url for chain id %d", chainID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chains[chainID]
	if !ok {
		return errors.Wrapf(ErrUnknownChain, "chain id %d", chainID)
	}

	c.RPCURL = rpcURL
	log.Debug().Int64("chainId", chainID).Msg("Overrode chain RPC URL")

	return nil
}

func (r *registry) OverrideAll(overrides map[int64]string) error {
	for chainID, rpcURL := range overrides {
		if err := r.Override(chainID, rpcURL); err != nil {
			return err
		}
	}

	return nil
}

func (r *registry) List() []*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Config, 0, len(r.chains))
	for _, c := range r.chains {
		cp := *c
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ChainID < result[j].ChainID })

	return result
}

func (r *registry) ExplorerTxURL(chainID int64, txHash string) (string, error) {
	c, err := r.Resolve(chainID)
	if err != nil {
		return "", err
	}

	return strings.TrimRight(c.Explorer, "/") + "/tx/" + txHash, nil
}

// ParseRPCURLs 解析 RPC URL（支持多个，逗号分隔）
func ParseRPCURLs(rpcURL string) []string {
	if rpcURL == "" {
		return nil
	}

	urls := strings.Split(rpcURL, ",")
	result := make([]string, 0, len(urls))

	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url != "" {
			result = append(result, url)
		}
	}

	return result
}
