package rpc

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNetwork 表示所有 RPC 节点均不可用或节点返回错误
var ErrNetwork = errors.New("network error")

// Backend 是 Client 对外暴露的链上能力
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	BlockNumber(ctx context.Context) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Client 封装以太坊 RPC 客户端，支持多个 URL 和故障转移
type Client struct {
	urls    []string
	clients []*ethclient.Client
	mu      sync.Mutex
	current int // 当前使用的客户端索引
}

var _ Backend = (*Client)(nil)

// NewClient 创建新的 RPC 客户端，连接失败的节点在使用时重试
func NewClient(ctx context.Context, urls []string) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.Wrap(ErrNetwork, "at least one RPC URL is required")
	}

	clients := make([]*ethclient.Client, 0, len(urls))
	connected := false
	for _, url := range urls {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn().
				Str("url", url).
				Err(err).
				Msg("Failed to connect to RPC node, will retry on use")
			clients = append(clients, nil)
			continue
		}
		connected = true
		clients = append(clients, client)
	}

	if !connected {
		return nil, errors.Wrap(ErrNetwork, "failed to connect to any RPC node")
	}

	return &Client{
		urls:    urls,
		clients: clients,
	}, nil
}

// Close 关闭所有客户端连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, client := range c.clients {
		if client != nil {
			client.Close()
			c.clients[i] = nil
		}
	}
}

// URLs 返回配置的节点地址
func (c *Client) URLs() []string {
	return append([]string(nil), c.urls...)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := client.BalanceAt(ctx, account, blockNumber)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "failed to get balance: %v", err)
	}

	return balance, nil
}

// PendingNonceAt 返回包含待处理交易在内的 nonce
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}

	nonce, err := client.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, errors.Wrapf(ErrNetwork, "failed to get pending nonce: %v", err)
	}

	return nonce, nil
}

func (c *Client) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}

	nonce, err := client.NonceAt(ctx, account, blockNumber)
	if err != nil {
		return 0, errors.Wrapf(ErrNetwork, "failed to get nonce: %v", err)
	}

	return nonce, nil
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "failed to suggest gas price: %v", err)
	}

	return price, nil
}

// SuggestGasTipCap 建议 Gas 小费上限 (EIP-1559)
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "failed to suggest gas tip cap: %v", err)
	}

	return tipCap, nil
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	header, err := client.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "failed to get header: %v", err)
	}

	return header, nil
}

// BlockByNumber 根据区块号获取区块，nil 表示最新区块
func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	block, err := client.BlockByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "failed to get block by number: %v", err)
	}

	return block, nil
}

// BlockNumber 获取最新区块号
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}

	number, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrapf(ErrNetwork, "failed to get latest block number: %v", err)
	}

	return number, nil
}

// EstimateGas 估算 Gas 用量
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}

	gas, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, errors.Wrapf(ErrNetwork, "failed to estimate gas: %v", err)
	}

	return gas, nil
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "failed to call contract: %v", err)
	}

	return resp, nil
}

// SendTransaction 发送已签名的交易
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	client, err := c.getClient(ctx)
	if err != nil {
		return err
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return errors.Wrapf(ErrNetwork, "failed to send transaction: %v", err)
	}

	return nil
}

// TransactionReceipt 获取交易回执，未上链时返回 ethereum.NotFound
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ethereum.NotFound
		}
		return nil, errors.Wrapf(ErrNetwork, "failed to get transaction receipt: %v", err)
	}

	return receipt, nil
}

// ChainID 获取链 ID
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "failed to get chain ID: %v", err)
	}

	return chainID, nil
}

// getClient 获取当前可用的客户端，如果失败则尝试下一个
func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < len(c.clients); i++ {
		idx := (c.current + i) % len(c.clients)

		if c.clients[idx] == nil {
			client, err := ethclient.DialContext(ctx, c.urls[idx])
			if err != nil {
				log.Warn().
					Str("url", c.urls[idx]).
					Err(err).
					Msg("Failed to reconnect to RPC node")
				continue
			}
			c.clients[idx] = client
		}

		// 简单健康检查：尝试获取链 ID
		if _, err := c.clients[idx].ChainID(ctx); err != nil {
			log.Warn().
				Str("url", c.urls[idx]).
				Err(err).
				Msg("RPC client health check failed, trying next node")
			continue
		}

		c.current = idx
		return c.clients[idx], nil
	}

	return nil, errors.Wrap(ErrNetwork, "all RPC clients are unavailable")
}
