package provider

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/rpc"
	"github/keyless/go-connector/internal/wallet/transaction"
)

// callArgs is the call object of eth_call and eth_estimateGas.
type callArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

func (a *callArgs) toCallMsg() ethereum.CallMsg {
	msg := ethereum.CallMsg{To: a.To}
	if a.From != nil {
		msg.From = *a.From
	}
	if a.Gas != nil {
		msg.Gas = uint64(*a.Gas)
	}
	if a.GasPrice != nil {
		msg.GasPrice = a.GasPrice.ToInt()
	}
	if a.Value != nil {
		msg.Value = a.Value.ToInt()
	}
	if a.Input != nil {
		msg.Data = *a.Input
	} else if a.Data != nil {
		msg.Data = *a.Data
	}

	return msg
}

// activeBackend returns the active chain and its client.
//
//nolint:ireturn
func (p *Provider) activeBackend(ctx context.Context) (*chain.Config, rpc.Backend, error) {
	cfg, err := p.sessions.ActiveChain(ctx)
	if err != nil {
		return nil, nil, err
	}

	backend, err := p.backends.Get(ctx, cfg.ChainID)
	if err != nil {
		return nil, nil, err
	}

	return cfg, backend, nil
}

// blockParam decodes a block tag or number. Latest and a missing param map to nil.
func blockParam(params []json.RawMessage, i int) (*big.Int, error) {
	var bn gethrpc.BlockNumber
	ok, err := param(params, i, &bn)
	if err != nil || !ok || bn == gethrpc.LatestBlockNumber {
		return nil, err
	}

	return big.NewInt(bn.Int64()), nil
}

func (p *Provider) accounts(_ context.Context, _ []json.RawMessage) (any, error) {
	addr, err := p.sessions.ActiveAccount()
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}

	return []string{addr}, nil
}

func (p *Provider) getBalance(ctx context.Context, params []json.RawMessage) (any, error) {
	var addr string
	if err := requireParam(params, 0, &addr); err != nil {
		return nil, err
	}

	block, err := blockParam(params, 1)
	if err != nil {
		return nil, err
	}

	cfg, err := p.sessions.ActiveChain(ctx)
	if err != nil {
		return nil, err
	}

	wei, err := p.balances.GetBalance(ctx, cfg.ChainID, addr, block)
	if err != nil {
		return nil, err
	}

	return (*hexutil.Big)(wei), nil
}

// sendTransaction blocks until the pending transaction is confirmed with a PIN or rejected.
func (p *Provider) sendTransaction(ctx context.Context, params []json.RawMessage) (any, error) {
	var raw map[string]any
	if err := requireParam(params, 0, &raw); err != nil {
		return nil, err
	}

	req, err := transaction.Sanitize(raw)
	if err != nil {
		return nil, err
	}

	if req.From == "" {
		if req.From, err = p.sessions.ActiveAccount(); err != nil {
			return nil, errors.Wrap(ErrUnauthorized, err.Error())
		}
	}

	pending, err := p.signer.BeginTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	util.LogFromContext(ctx).Debug().Str("id", pending.ID).Msg("Waiting for transaction confirmation")

	return pending.Wait(ctx)
}

func (p *Provider) getTransactionCount(ctx context.Context, params []json.RawMessage) (any, error) {
	var addr common.Address
	if err := requireParam(params, 0, &addr); err != nil {
		return nil, err
	}

	block, err := blockParam(params, 1)
	if err != nil {
		return nil, err
	}

	_, backend, err := p.activeBackend(ctx)
	if err != nil {
		return nil, err
	}

	var nonce uint64
	if block != nil && block.Int64() == gethrpc.PendingBlockNumber.Int64() {
		nonce, err = backend.PendingNonceAt(ctx, addr)
	} else {
		nonce, err = backend.NonceAt(ctx, addr, block)
	}
	if err != nil {
		return nil, err
	}

	return hexutil.Uint64(nonce), nil
}

func (p *Provider) getBlockByNumber(ctx context.Context, params []json.RawMessage) (any, error) {
	block, err := blockParam(params, 0)
	if err != nil {
		return nil, err
	}

	var fullTx bool
	if _, err := param(params, 1, &fullTx); err != nil {
		return nil, err
	}

	_, backend, err := p.activeBackend(ctx)
	if err != nil {
		return nil, err
	}

	b, err := backend.BlockByNumber(ctx, block)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, err
	}

	return marshalBlock(b, fullTx)
}

func (p *Provider) gasPrice(ctx context.Context, _ []json.RawMessage) (any, error) {
	_, backend, err := p.activeBackend(ctx)
	if err != nil {
		return nil, err
	}

	price, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	return (*hexutil.Big)(price), nil
}

func (p *Provider) getTransactionReceipt(ctx context.Context, params []json.RawMessage) (any, error) {
	var hash common.Hash
	if err := requireParam(params, 0, &hash); err != nil {
		return nil, err
	}

	_, backend, err := p.activeBackend(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, err
	}

	return receipt, nil
}

// ethSign takes [address, data].
func (p *Provider) ethSign(ctx context.Context, params []json.RawMessage) (any, error) {
	var addr, data string
	if err := requireParam(params, 0, &addr); err != nil {
		return nil, err
	}
	if err := requireParam(params, 1, &data); err != nil {
		return nil, err
	}

	return p.sign(ctx, data, addr)
}

// personalSign takes [data, address].
func (p *Provider) personalSign(ctx context.Context, params []json.RawMessage) (any, error) {
	var addr, data string
	if err := requireParam(params, 0, &data); err != nil {
		return nil, err
	}
	if _, err := param(params, 1, &addr); err != nil {
		return nil, err
	}

	return p.sign(ctx, data, addr)
}

func (p *Provider) sign(ctx context.Context, data string, addr string) (any, error) {
	if addr == "" {
		var err error
		if addr, err = p.sessions.ActiveAccount(); err != nil {
			return nil, errors.Wrap(ErrUnauthorized, err.Error())
		}
	}

	pending, err := p.signer.BeginSignRequest(ctx, data, addr)
	if err != nil {
		return nil, err
	}

	return pending.Wait(ctx)
}

func (p *Provider) call(ctx context.Context, params []json.RawMessage) (any, error) {
	var args callArgs
	if err := requireParam(params, 0, &args); err != nil {
		return nil, err
	}

	block, err := blockParam(params, 1)
	if err != nil {
		return nil, err
	}

	_, backend, err := p.activeBackend(ctx)
	if err != nil {
		return nil, err
	}

	out, err := backend.CallContract(ctx, args.toCallMsg(), block)
	if err != nil {
		return nil, err
	}

	return hexutil.Bytes(out), nil
}

// estimateGas falls back to FallbackGas whenever the node cannot estimate.
func (p *Provider) estimateGas(ctx context.Context, params []json.RawMessage) (any, error) {
	var args callArgs
	if err := requireParam(params, 0, &args); err != nil {
		return nil, err
	}

	log := util.LogFromContext(ctx)

	_, backend, err := p.activeBackend(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("No backend for gas estimate, using fallback")
		return hexutil.Uint64(FallbackGas), nil
	}

	gas, err := backend.EstimateGas(ctx, args.toCallMsg())
	if err != nil {
		log.Debug().Err(err).Msg("Failed to estimate gas, using fallback")
		return hexutil.Uint64(FallbackGas), nil
	}

	return hexutil.Uint64(gas), nil
}

func (p *Provider) chainID(ctx context.Context, _ []json.RawMessage) (any, error) {
	cfg, err := p.sessions.ActiveChain(ctx)
	if err != nil {
		return nil, err
	}

	return hexutil.Uint64(cfg.ChainID), nil
}

func (p *Provider) netVersion(ctx context.Context, _ []json.RawMessage) (any, error) {
	cfg, err := p.sessions.ActiveChain(ctx)
	if err != nil {
		return nil, err
	}

	return strconv.FormatInt(cfg.ChainID, 10), nil
}

// marshalBlock renders a block the way nodes answer eth_getBlockByNumber.
func marshalBlock(block *types.Block, fullTx bool) (map[string]any, error) {
	raw, err := json.Marshal(block.Header())
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal header")
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to decode header")
	}

	txs := block.Transactions()
	list := make([]any, len(txs))
	for i, tx := range txs {
		if fullTx {
			list[i] = tx
		} else {
			list[i] = tx.Hash()
		}
	}

	uncles := make([]common.Hash, 0, len(block.Uncles()))
	for _, u := range block.Uncles() {
		uncles = append(uncles, u.Hash())
	}

	fields["size"] = hexutil.Uint64(block.Size())
	fields["transactions"] = list
	fields["uncles"] = uncles

	return fields, nil
}
