package signer

import (
	"context"
	"strings"
	"sync"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/events"
	"github/keyless/go-connector/internal/metrics"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/broadcast"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/transaction"
	"github/keyless/go-connector/internal/wallet/vault"
)

type dispatcher struct {
	sessions  SessionSource
	chains    chain.Registry
	backends  Backends
	bus       *events.Bus
	metrics   *metrics.Service
	broadcast config.BroadcastServer
	clock     time2.Clock

	// signMu holds the keyring unlocked for a single signing call.
	signMu sync.Mutex

	mu          sync.Mutex
	state       State
	transaction *PendingTransaction
	signRequest *PendingSignRequest
	hashes      []string
}

// NewDispatcher creates a new signing dispatcher
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewDispatcher(
	sessions SessionSource,
	chains chain.Registry,
	backends Backends,
	bus *events.Bus,
	m *metrics.Service,
	cfg config.BroadcastServer,
	clock time2.Clock,
) Service {
	return &dispatcher{
		sessions:  sessions,
		chains:    chains,
		backends:  backends,
		bus:       bus,
		metrics:   m,
		broadcast: cfg,
		clock:     clock,
		state:     StateIdle,
	}
}

func (d *dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

func (d *dispatcher) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *dispatcher) CheckPin(ctx context.Context, pin string) bool {
	gw, err := d.sessions.Gateway()
	if err != nil {
		return false
	}

	ok, err := gw.ValidatePin(ctx, pin)
	if err != nil {
		util.LogFromContext(ctx).Debug().Err(err).Msg("Failed to validate pin")
		return false
	}

	return ok
}

func (d *dispatcher) Sign(ctx context.Context, rawTx *transaction.RawTransaction, pin string, chainID int64) (SignedTransaction, error) {
	log := util.LogFromContext(ctx)

	cfg, err := d.chains.Resolve(chainID)
	if err != nil {
		return "", err
	}
	strategy := StrategyFor(cfg.Family)

	d.signMu.Lock()
	defer d.signMu.Unlock()

	gw, err := d.restore(ctx, pin)
	if err != nil {
		d.setState(StateFailed)
		d.metrics.ObserveSignature(string(cfg.Family), true)
		return "", err
	}
	defer gw.Lock()

	d.setState(StateSigning)

	normalized := *rawTx
	normalized.From = NormalizeAddress(rawTx.From)
	if rawTx.To != "" {
		normalized.To = NormalizeAddress(rawTx.To)
	}

	signed, err := strategy.sign(ctx, gw, &normalized, pin, cfg)
	d.metrics.ObserveSignature(string(cfg.Family), err != nil)
	if err != nil {
		d.setState(StateFailed)
		log.Debug().Err(err).Int64("chainId", chainID).Str("family", string(cfg.Family)).Msg("Failed to sign transaction")
		return "", errors.Wrap(vault.ErrVault, err.Error())
	}

	d.setState(StateSigned)
	log.Debug().Int64("chainId", chainID).Bool("local", strategy.Local()).Msg("Signed transaction")

	return signed, nil
}

// restore unlocks the keyring with the session vault and the PIN. It must precede every signing call
// and the caller locks the keyring again once it has signed.
//
//nolint:ireturn
func (d *dispatcher) restore(ctx context.Context, pin string) (vault.Gateway, error) {
	d.setState(StateRestoring)

	snapshot, err := d.sessions.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snapshot.DecryptionKey.Zero()

	if !snapshot.IsLoggedIn() {
		return nil, errors.Wrap(vault.ErrVault, "no vault loaded")
	}

	gw, err := d.sessions.Gateway()
	if err != nil {
		return nil, err
	}

	if err := gw.RestoreKeyringState(ctx, snapshot.Vault, pin, snapshot.DecryptionKey); err != nil {
		if errors.Is(err, vault.ErrVault) {
			return nil, err
		}
		return nil, errors.Wrap(vault.ErrVault, err.Error())
	}

	return gw, nil
}

func (d *dispatcher) BeginTransaction(ctx context.Context, req *transaction.Request) (*PendingTransaction, error) {
	snapshot, err := d.sessions.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.DecryptionKey.Zero()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transaction != nil {
		return nil, ErrPendingBusy
	}

	d.transaction = newPendingTransaction(req, snapshot.ChainID)
	d.state = StateAwaitingPin

	util.LogFromContext(ctx).Debug().Str("id", d.transaction.ID).Int64("chainId", snapshot.ChainID).Msg("Transaction pending")

	return d.transaction, nil
}

func (d *dispatcher) PendingTransaction() (*PendingTransaction, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transaction == nil {
		return nil, false
	}

	return d.transaction.view(), true
}

func (d *dispatcher) SetGas(gasLimit string, maxFeePerGas string, maxPriorityFeePerGas string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transaction == nil {
		return ErrNoPending
	}
	if d.transaction.confirming {
		return ErrPendingBusy
	}

	d.transaction.Request.SetGas(gasLimit, maxFeePerGas, maxPriorityFeePerGas)

	return nil
}

func (d *dispatcher) ConfirmTransaction(ctx context.Context, pin string) (string, error) {
	d.mu.Lock()
	pending := d.transaction
	if pending == nil {
		d.mu.Unlock()
		return "", ErrNoPending
	}
	if pending.confirming {
		d.mu.Unlock()
		return "", ErrPendingBusy
	}
	pending.confirming = true
	d.mu.Unlock()

	hash, err := d.send(ctx, pending, pin)
	if err != nil && !errors.Is(err, broadcast.ErrBroadcast) {
		d.recordError(ctx, err)
	}

	d.mu.Lock()
	if d.transaction == pending {
		d.transaction = nil
		d.state = StateIdle
	}
	d.mu.Unlock()

	pending.settle(hash, err)

	return hash, err
}

// send builds, signs and submits the pending transaction and returns once the hash is known.
func (d *dispatcher) send(ctx context.Context, pending *PendingTransaction, pin string) (string, error) {
	log := util.LogFromContext(ctx)

	cfg, err := d.chains.Resolve(pending.ChainID)
	if err != nil {
		return "", err
	}
	strategy := StrategyFor(cfg.Family)

	req := *pending.Request
	req.From = NormalizeAddress(req.From)
	if req.To != "" {
		req.To = NormalizeAddress(req.To)
	}

	backend, err := d.backends.Get(ctx, cfg.ChainID)
	if err != nil {
		return "", err
	}

	rawTx, err := transaction.BuildWith(ctx, &req, cfg, backend, strategy.Shape)
	if err != nil {
		return "", err
	}

	signed, err := d.Sign(ctx, rawTx, pin, cfg.ChainID)
	if err != nil {
		return "", err
	}

	// the tracking goroutine outlives the request
	trackCtx := context.WithoutCancel(ctx)
	submitter := broadcast.NewSubmitter(backend, d.broadcast.PollInterval, d.broadcast.Confirmations)
	started := d.clock.Now()

	submitted := make(chan result, 1)
	var once sync.Once
	report := func(r result) { once.Do(func() { submitted <- r }) }

	go broadcast.Track(trackCtx, submitter.Submit(trackCtx, string(signed)), broadcast.Hooks{
		Submitted: func(hash common.Hash) {
			d.mu.Lock()
			d.hashes = append(d.hashes, hash.Hex())
			d.mu.Unlock()

			explorer, _ := d.chains.ExplorerTxURL(cfg.ChainID, hash.Hex())
			d.bus.Publish(events.TransactionSubmitted, events.Submitted{Hash: hash, ChainID: cfg.ChainID, ExplorerURL: explorer})
			report(result{value: hash.Hex()})
		},
		Confirmation: func(hash common.Hash, confirmations uint64) {
			log.Debug().Str("tx_hash", hash.Hex()).Uint64("confirmations", confirmations).Msg("Transaction confirmation")
		},
		Settled: func(o broadcast.Outcome) {
			d.metrics.ObserveBroadcast(cfg.ChainID, string(o.Status), d.clock.Now().Sub(started))

			res := events.Result{Hash: o.Hash, ChainID: cfg.ChainID, Receipt: o.Receipt, Reason: o.Reason}
			if o.Succeeded() {
				d.bus.Publish(events.TransactionSuccess, res)
			} else {
				d.recordError(trackCtx, errors.Wrap(broadcast.ErrBroadcast, o.Reason))
				d.bus.Publish(events.TransactionFailed, res)
			}
			d.bus.Publish(events.TransactionComplete, res)

			report(result{err: errors.Wrap(broadcast.ErrBroadcast, o.Reason)})
		},
	})

	select {
	case r := <-submitted:
		return r.value, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *dispatcher) BeginSignRequest(ctx context.Context, data string, address string) (*PendingSignRequest, error) {
	snapshot, err := d.sessions.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.DecryptionKey.Zero()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.signRequest != nil {
		return nil, ErrPendingBusy
	}

	d.signRequest = newPendingSignRequest(data, address, snapshot.ChainID)
	d.state = StateAwaitingPin

	return d.signRequest, nil
}

func (d *dispatcher) PendingSignRequest() (*PendingSignRequest, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.signRequest == nil {
		return nil, false
	}

	return d.signRequest.view(), true
}

// SignRequestData returns the pending message decoded as utf-8 text.
func (d *dispatcher) SignRequestData() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.signRequest == nil {
		return "", ErrNoPending
	}

	return string(messageBytes(d.signRequest.Data)), nil
}

func (d *dispatcher) ConfirmSignRequest(ctx context.Context, pin string) (string, error) {
	d.mu.Lock()
	pending := d.signRequest
	if pending == nil {
		d.mu.Unlock()
		return "", ErrNoPending
	}
	if pending.confirming {
		d.mu.Unlock()
		return "", ErrPendingBusy
	}
	pending.confirming = true
	d.mu.Unlock()

	signature, err := d.signMessage(ctx, pending, pin)
	if err != nil {
		d.recordError(ctx, err)
	}

	d.mu.Lock()
	if d.signRequest == pending {
		d.signRequest = nil
		d.state = StateIdle
	}
	d.mu.Unlock()

	pending.settle(signature, err)

	return signature, err
}

func (d *dispatcher) signMessage(ctx context.Context, pending *PendingSignRequest, pin string) (string, error) {
	cfg, err := d.chains.Resolve(pending.ChainID)
	if err != nil {
		return "", err
	}

	d.signMu.Lock()
	defer d.signMu.Unlock()

	gw, err := d.restore(ctx, pin)
	if err != nil {
		d.setState(StateFailed)
		return "", err
	}
	defer gw.Lock()

	d.setState(StateSigning)

	address := NormalizeAddress(pending.Address)
	if !common.IsHexAddress(address) {
		return "", errors.Wrapf(transaction.ErrValidation, "invalid address %q", pending.Address)
	}

	signature, err := gw.Sign(ctx, messageBytes(pending.Data), common.HexToAddress(address), pin, cfg.RPCURL)
	d.metrics.ObserveSignature(string(cfg.Family), err != nil)
	if err != nil {
		d.setState(StateFailed)
		return "", errors.Wrap(vault.ErrVault, err.Error())
	}

	d.setState(StateSigned)

	return signature, nil
}

func (d *dispatcher) RejectPending(ctx context.Context) error {
	d.mu.Lock()
	tx, req := d.transaction, d.signRequest
	if tx != nil && !tx.confirming {
		d.transaction = nil
	} else {
		tx = nil
	}
	if req != nil && !req.confirming {
		d.signRequest = nil
	} else {
		req = nil
	}
	if d.transaction == nil && d.signRequest == nil {
		d.state = StateIdle
	}
	d.mu.Unlock()

	if tx == nil && req == nil {
		return ErrNoPending
	}

	if tx != nil && tx.settle("", ErrUserRejected) {
		d.metrics.ObserveRejection("transaction")
	}
	if req != nil && req.settle("", ErrUserRejected) {
		d.metrics.ObserveRejection("sign")
	}

	util.LogFromContext(ctx).Debug().Bool("transaction", tx != nil).Bool("sign", req != nil).Msg("Pending requests rejected")

	return nil
}

func (d *dispatcher) TransactionHashes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.hashes...)
}

func (d *dispatcher) recordError(ctx context.Context, err error) {
	if err := d.sessions.RecordError(ctx, err.Error()); err != nil {
		util.LogFromContext(ctx).Warn().Err(err).Msg("Failed to record session error")
	}
}

// messageBytes decodes 0x prefixed hex and keeps anything else as raw text.
func messageBytes(data string) []byte {
	if strings.HasPrefix(data, "0x") {
		if b, err := hexutil.Decode(data); err == nil {
			return b
		}
	}

	return []byte(data)
}
