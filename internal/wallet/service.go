package wallet

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github/keyless/go-connector/internal/cloud"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/events"
	"github/keyless/go-connector/internal/metrics"
	"github/keyless/go-connector/internal/session"
	"github/keyless/go-connector/internal/util"
	"github/keyless/go-connector/internal/wallet/chain"
	"github/keyless/go-connector/internal/wallet/vault"
)

type service struct {
	store          session.Store
	cloud          CloudClient
	openVault      vault.Factory
	chains         chain.Registry
	bus            *events.Bus
	metrics        *metrics.Service
	defaultChainID int64

	// writeMu serializes every Load→Save of the store with Clear.
	writeMu sync.Mutex

	mu      sync.RWMutex
	state   State
	wallets []Wallet
	active  int
	gateway vault.Gateway
}

// NewService creates a new session manager. Nothing is loaded until Login or Resume.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(
	store session.Store,
	cloudClient CloudClient,
	openVault vault.Factory,
	chains chain.Registry,
	bus *events.Bus,
	m *metrics.Service,
	cfg config.ChainsServer,
) Service {
	return &service{
		store:          store,
		cloud:          cloudClient,
		openVault:      openVault,
		chains:         chains,
		bus:            bus,
		metrics:        m,
		defaultChainID: cfg.DefaultChainID,
		state:          StateLoggedOut,
	}
}

func (s *service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *service) Login(ctx context.Context, safleID string, password string, captcha string) (*session.Session, error) {
	log := util.LogFromContext(ctx).With().Str("safleID", safleID).Logger()

	s.setState(StateLoggingIn)

	sess, err := s.authenticate(ctx, safleID, password, captcha)
	s.metrics.ObserveLogin(err != nil)
	if err != nil {
		s.setState(StateLoggedOut)
		log.Debug().Err(err).Msg("Login failed")
		return nil, err
	}

	s.writeMu.Lock()
	err = s.store.Save(ctx, sess)
	s.writeMu.Unlock()
	if err != nil {
		sess.DecryptionKey.Zero()
		s.setState(StateLoggedOut)
		return nil, errors.Wrap(err, "failed to persist session")
	}

	s.setState(StateLoggedIn)

	if err := s.LoadVault(ctx); err != nil {
		sess.DecryptionKey.Zero()
		return nil, err
	}

	s.bus.Publish(events.LoginSuccessful, events.Login{
		SafleID:  safleID,
		IsMobile: sess.IsMobile,
		Accounts: len(s.Accounts(true)),
	})
	log.Info().Bool("isMobile", sess.IsMobile).Msg("Login successful")

	return sess, nil
}

// authenticate runs the cloud login flow. The raw password and the decrypted key never leave the process.
func (s *service) authenticate(ctx context.Context, safleID string, password string, captcha string) (*session.Session, error) {
	isMobile, err := s.cloud.VaultStorageStatus(ctx, safleID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get vault storage status")
	}

	pdKey := cloud.DerivePDKey(safleID, password)
	defer func() {
		for i := range pdKey {
			pdKey[i] = 0
		}
	}()
	pdKeyHash := cloud.PDKeyHash(pdKey)

	token, err := s.cloud.Login(ctx, safleID, pdKeyHash, captcha)
	if err != nil {
		return nil, err
	}

	blob, err := s.cloud.RetrieveVault(ctx, pdKeyHash, token)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.cloud.RetrieveEncryptionKey(ctx, pdKeyHash, token)
	if err != nil {
		return nil, err
	}

	key, err := cloud.DecryptEncryptionKey(pdKey, encrypted)
	if err != nil {
		return nil, errors.Wrap(cloud.ErrAuth, err.Error())
	}

	return &session.Session{
		Vault:         blob,
		DecryptionKey: key,
		SafleID:       safleID,
		IsMobile:      isMobile,
		ChainID:       s.defaultChainID,
	}, nil
}

func (s *service) Resume(ctx context.Context) error {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	defer sess.DecryptionKey.Zero()

	if !sess.IsLoggedIn() {
		return ErrNotLoggedIn
	}

	s.setState(StateLoggedIn)

	return s.LoadVault(ctx)
}

func (s *service) LoadVault(ctx context.Context) error {
	log := util.LogFromContext(ctx)

	s.setState(StateVaultLoading)

	sess, err := s.store.Load(ctx)
	if err != nil {
		s.setState(StateVaultLoadFailed)
		return err
	}
	defer sess.DecryptionKey.Zero()

	if !sess.IsLoggedIn() {
		s.setState(StateLoggedOut)
		return ErrNotLoggedIn
	}

	gw, err := s.openVault(sess.Vault)
	if err != nil {
		s.setState(StateVaultLoadFailed)
		return err
	}

	addresses, err := gw.GetAccounts(ctx, sess.DecryptionKey)
	if err != nil {
		s.setState(StateVaultLoadFailed)
		if errors.Is(err, vault.ErrVault) {
			return err
		}
		return errors.Wrap(vault.ErrVault, err.Error())
	}

	if len(addresses) == 0 {
		s.setState(StateVaultLoadFailed)
		log.Error().Str("safleID", sess.SafleID).Msg("Vault holds no accounts")
		return ErrEmptyVault
	}

	wallets := make([]Wallet, len(addresses))
	for i, addr := range addresses {
		wallets[i] = Wallet{Index: i, Address: addr.Hex()}
	}

	active := sess.ActiveWallet
	if active < 0 || active >= len(wallets) {
		active = 0
	}

	s.mu.Lock()
	if s.gateway != nil {
		s.gateway.Lock()
	}
	s.gateway = gw
	s.wallets = wallets
	s.active = active
	s.state = StateVaultReady
	s.mu.Unlock()

	log.Debug().Int("accounts", len(wallets)).Int("active", active).Msg("Vault loaded")

	return nil
}

func (s *service) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.gateway != nil {
		s.gateway.Lock()
	}
	s.gateway = nil
	s.wallets = nil
	s.active = 0
	s.state = StateLoggedOut
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}

	util.LogFromContext(ctx).Debug().Msg("Logged out")

	return nil
}

func (s *service) SwitchNetwork(ctx context.Context, chainID int64) (*chain.Config, error) {
	cfg, err := s.chains.Resolve(chainID)
	if err != nil {
		return nil, err
	}

	if err := s.update(ctx, func(sess *session.Session) { sess.ChainID = cfg.ChainID }); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (s *service) SwitchWallet(ctx context.Context, index int) (*Wallet, error) {
	s.mu.RLock()
	count := len(s.wallets)
	s.mu.RUnlock()

	if index < 0 || index >= count {
		return nil, errors.Wrapf(ErrWalletIndex, "index %d of %d", index, count)
	}

	if err := s.update(ctx, func(sess *session.Session) { sess.ActiveWallet = index }); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = index
	w := s.wallets[index]

	return &w, nil
}

// update applies a change to a logged in session.
func (s *service) update(ctx context.Context, apply func(sess *session.Session)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	defer sess.DecryptionKey.Zero()

	if !sess.IsLoggedIn() {
		return ErrNotLoggedIn
	}

	apply(sess)

	return s.store.Save(ctx, sess)
}

func (s *service) Accounts(all bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.wallets) == 0 {
		return []string{}
	}

	if !all {
		return []string{s.wallets[s.active].Address}
	}

	result := make([]string, len(s.wallets))
	for i, w := range s.wallets {
		result[i] = w.Address
	}

	return result
}

func (s *service) ActiveAccount() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateVaultReady || len(s.wallets) == 0 {
		return "", ErrNotLoggedIn
	}

	return s.wallets[s.active].Address, nil
}

func (s *service) ActiveChain(ctx context.Context) (*chain.Config, error) {
	sess, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sess.DecryptionKey.Zero()

	return s.chains.Resolve(sess.ChainID)
}

// IsLoggedIn reports whether a vault is loaded and ready to sign.
func (s *service) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state == StateVaultReady
}

func (s *service) IsMobileVault(ctx context.Context) bool {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return false
	}
	sess.DecryptionKey.Zero()

	return sess.IsMobile
}

func (s *service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *service) Status(ctx context.Context) (*Status, error) {
	sess, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sess.DecryptionKey.Zero()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Status{
		State:        s.state,
		SafleID:      sess.SafleID,
		IsMobile:     sess.IsMobile,
		ChainID:      sess.ChainID,
		ActiveWallet: s.active,
		Accounts:     append([]Wallet{}, s.wallets...),
		LastError:    sess.LastError,
	}, nil
}

func (s *service) Snapshot(ctx context.Context) (*session.Session, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if sess.ChainID == 0 {
		sess.ChainID = s.defaultChainID
	}

	return sess, nil
}

//nolint:ireturn
func (s *service) Gateway() (vault.Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.gateway == nil {
		return nil, ErrNotLoggedIn
	}

	return s.gateway, nil
}

// RecordError stores message as the session's last error. A cleared session only gets the message.
func (s *service) RecordError(ctx context.Context, message string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	defer sess.DecryptionKey.Zero()

	if !sess.IsLoggedIn() {
		sess = &session.Session{ChainID: sess.ChainID}
	}
	sess.LastError = message

	return s.store.Save(ctx, sess)
}
