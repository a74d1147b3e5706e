package rpc

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/wallet/chain"
)

// Dialer 为一组节点地址创建 Backend
type Dialer func(ctx context.Context, urls []string) (Backend, error)

// DialClient 是默认 Dialer
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func DialClient(ctx context.Context, urls []string) (Backend, error) {
	return NewClient(ctx, urls)
}

// Pool 按链 ID 缓存 RPC 客户端，首次使用时连接
type Pool struct {
	chains  chain.Registry
	dial    Dialer
	mu      sync.Mutex
	clients map[int64]Backend
}

func NewPool(chains chain.Registry, dial Dialer) *Pool {
	if dial == nil {
		dial = DialClient
	}

	return &Pool{
		chains:  chains,
		dial:    dial,
		clients: make(map[int64]Backend),
	}
}

// Get 返回链对应的客户端
//
//nolint:ireturn
func (p *Pool) Get(ctx context.Context, chainID int64) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[chainID]; ok {
		return client, nil
	}

	cfg, err := p.chains.Resolve(chainID)
	if err != nil {
		return nil, err
	}

	urls := cfg.RPCURLs()
	if len(urls) == 0 {
		return nil, errors.Wrapf(ErrNetwork, "no rpc url configured for chain %d", chainID)
	}

	client, err := p.dial(ctx, urls)
	if err != nil {
		return nil, err
	}
	p.clients[chainID] = client

	return client, nil
}

// Close 关闭所有已连接的客户端
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, client := range p.clients {
		if c, ok := client.(interface{ Close() }); ok {
			c.Close()
		}
		delete(p.clients, id)
	}
}
