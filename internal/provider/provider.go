package provider

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/events"
	"github/keyless/go-connector/internal/metrics"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/signer"
)

type handlerFunc func(ctx context.Context, params []json.RawMessage) (any, error)

type method struct {
	privileged bool
	handle     handlerFunc
}

// Provider maps standard provider methods onto the wallet components.
type Provider struct {
	sessions Sessions
	signer   signer.Service
	balances Balances
	backends Backends
	bus      *events.Bus
	metrics  *metrics.Service

	mu        sync.RWMutex
	connected bool

	methods map[string]method
}

// New returns a disconnected provider; hosts call Connect before issuing requests.
func New(
	sessions Sessions,
	signerService signer.Service,
	balances Balances,
	backends Backends,
	bus *events.Bus,
	m *metrics.Service,
) *Provider {
	p := &Provider{
		sessions: sessions,
		signer:   signerService,
		balances: balances,
		backends: backends,
		bus:      bus,
		metrics:  m,
	}

	p.methods = map[string]method{
		"eth_request":               {privileged: true, handle: p.accounts},
		"eth_accounts":              {privileged: true, handle: p.accounts},
		"eth_requestAccounts":       {privileged: true, handle: p.accounts},
		"personal_listAccounts":     {privileged: true, handle: p.accounts},
		"eth_getBalance":            {privileged: true, handle: p.getBalance},
		"eth_sendTransaction":       {privileged: true, handle: p.sendTransaction},
		"eth_getTransactionCount":   {privileged: true, handle: p.getTransactionCount},
		"eth_getBlockByNumber":      {privileged: true, handle: p.getBlockByNumber},
		"eth_sign":                  {privileged: true, handle: p.ethSign},
		"personal_sign":             {privileged: true, handle: p.personalSign},
		"eth_gasPrice":              {handle: p.gasPrice},
		"eth_getTransactionReceipt": {handle: p.getTransactionReceipt},
		"eth_call":                  {handle: p.call},
		"eth_estimateGas":           {handle: p.estimateGas},
		"eth_chainId":               {handle: p.chainID},
		"net_version":               {handle: p.netVersion},
	}

	return p
}

func (p *Provider) Connect() {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
}

func (p *Provider) Disconnect() {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
}

func (p *Provider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.connected
}

// Events subscribes ch to session and transaction notifications.
func (p *Provider) Events(ch chan<- events.Event) event.Subscription {
	return p.bus.Subscribe(ch)
}

// Supports reports whether the method has a handler.
func (p *Provider) Supports(name string) bool {
	_, ok := p.methods[name]
	return ok
}

// Request dispatches a provider call. Unknown methods are a no-op returning nil, nil.
func (p *Provider) Request(ctx context.Context, req Request) (any, *RPCError) {
	if req.Method == "" {
		return nil, &RPCError{Message: ErrMissingMethod.Error(), Code: CodeInvalidParams}
	}

	if !p.IsConnected() {
		return nil, &RPCError{Message: ErrNotConnected.Error(), Code: CodeInternal, Method: req.Method}
	}

	m, ok := p.methods[req.Method]
	if !ok {
		util.LogFromContext(ctx).Debug().Str("method", req.Method).Msg("Ignoring unsupported provider method")
		return nil, nil
	}

	if m.privileged && !p.sessions.IsLoggedIn() {
		p.metrics.ObserveProviderRequest(req.Method, true)
		return nil, toRPCError(req.Method, ErrUnauthorized)
	}

	params, err := splitParams(req.Params)
	if err != nil {
		p.metrics.ObserveProviderRequest(req.Method, true)
		return nil, toRPCError(req.Method, err)
	}

	result, err := m.handle(ctx, params)
	p.metrics.ObserveProviderRequest(req.Method, err != nil)
	if err != nil {
		util.LogFromContext(ctx).Debug().Err(err).Str("method", req.Method).Msg("Provider request failed")
		return nil, toRPCError(req.Method, err)
	}

	return result, nil
}

func splitParams(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.Wrap(ErrInvalidParams, "params must be an array")
	}

	return params, nil
}

// param decodes the i-th positional param into dst. A missing param leaves dst untouched.
func param(params []json.RawMessage, i int, dst any) (bool, error) {
	if i >= len(params) || string(params[i]) == "null" {
		return false, nil
	}

	if err := json.Unmarshal(params[i], dst); err != nil {
		return false, errors.Wrapf(ErrInvalidParams, "param %d: %v", i, err)
	}

	return true, nil
}

func requireParam(params []json.RawMessage, i int, dst any) error {
	ok, err := param(params, i, dst)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrInvalidParams, "missing param %d", i)
	}

	return nil
}
