package bsim

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/queue"
	"github/chapool/go-signer/internal/wallet/address"
)

const (
	// HardwareType is the registry type of BSIM wallets
	HardwareType = "bsim"

	// TransportAPDU is the only transport BSIM cards are reached through
	TransportAPDU = "apdu"
)

var supportedChains = []hardware.ChainType{hardware.ChainEthereum, hardware.ChainConflux}

// Wallet adapts a BSIM Session to hardware.Wallet. Account index and hardware key index are
// the same number, accounts live at m/44'/<coin>'/0'/0/<index>.
type Wallet struct {
	session      *Session
	provisioners map[hardware.ChainType]*Provisioner
	accountLimit int

	mu        sync.RWMutex
	connected bool
	version   string

	log zerolog.Logger
}

var (
	_ hardware.Wallet = (*Wallet)(nil)
	_ hardware.Queued = (*Wallet)(nil)
)

// NewWallet creates a wallet over session, provisioning accounts of every supported chain
func NewWallet(session *Session, opts ...ProvisionerOption) (*Wallet, error) {
	w := &Wallet{
		session:      session,
		provisioners: make(map[hardware.ChainType]*Provisioner, len(supportedChains)),
		log:          log.With().Str("component", "bsim_wallet").Logger(),
	}

	for _, chainType := range supportedChains {
		p, err := NewProvisioner(session, append(opts, WithChain(chainType))...)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create %s provisioner", chainType)
		}
		w.provisioners[chainType] = p
		w.accountLimit = p.AccountLimit()
	}

	return w, nil
}

// Queue returns the queue serializing card access
func (w *Wallet) Queue() *queue.Queue {
	return w.session.Queue()
}

// Provisioner returns the provisioner of chainType
func (w *Wallet) Provisioner(chainType hardware.ChainType) (*Provisioner, error) {
	p, ok := w.provisioners[chainType]
	if !ok {
		return nil, errors.Wrapf(hardware.ErrChainUnsupported, "bsim does not support chain %q", chainType)
	}
	return p, nil
}

// Version returns the applet version read on Connect
func (w *Wallet) Version() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// Connect initializes the card and reads its applet version
func (w *Wallet) Connect(ctx context.Context, opts *hardware.ConnectOptions) error {
	if opts != nil && opts.Transport != "" && opts.Transport != TransportAPDU {
		return errors.Wrapf(hardware.ErrNotImplemented, "transport %q", opts.Transport)
	}

	if err := w.session.EnsureInitialized(ctx); err != nil {
		return err
	}

	version, err := w.session.Version(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.connected = true
	w.version = version
	w.mu.Unlock()

	w.log.Info().Str("version", version).Msg("Connected to BSIM")
	return nil
}

// Disconnect closes the card session, calling it while disconnected is a no-op
func (w *Wallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	wasConnected := w.connected
	w.connected = false
	w.mu.Unlock()

	if !wasConnected && !w.session.Initialized() {
		return nil
	}

	return w.session.Close(ctx)
}

// IsConnected reports whether Connect succeeded and the session has not been closed since
func (w *Wallet) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected && w.session.Initialized()
}

// ListAccounts returns the accounts already provisioned for chainType
func (w *Wallet) ListAccounts(ctx context.Context, chainType hardware.ChainType) ([]hardware.Account, error) {
	p, err := w.Provisioner(chainType)
	if err != nil {
		return nil, err
	}
	if err := w.session.EnsureInitialized(ctx); err != nil {
		return nil, err
	}

	provisioned, err := p.fetchAccounts(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]hardware.Account, 0, len(provisioned))
	for _, account := range provisioned {
		converted, err := toAccount(p, account)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, converted)
	}

	return accounts, nil
}

// DeriveAccount returns the account at index, provisioning keys on the card up to index first
func (w *Wallet) DeriveAccount(ctx context.Context, index int, chainType hardware.ChainType) (hardware.Account, error) {
	p, err := w.Provisioner(chainType)
	if err != nil {
		return hardware.Account{}, err
	}
	if index < 0 || index >= p.AccountLimit() {
		return hardware.Account{}, errors.Wrapf(hardware.ErrAccountLimit, "index %d outside [0, %d)", index, p.AccountLimit())
	}

	if err := p.ProvisionToIndex(ctx, index); err != nil {
		return hardware.Account{}, err
	}

	account, err := w.findAccount(ctx, p, index)
	if err != nil {
		return hardware.Account{}, err
	}

	return toAccount(p, account)
}

// DeriveAddress returns the address of the account at path. The key must already exist.
func (w *Wallet) DeriveAddress(ctx context.Context, path string, chainType hardware.ChainType) (string, error) {
	p, err := w.Provisioner(chainType)
	if err != nil {
		return "", err
	}

	index, err := pathIndex(p, path)
	if err != nil {
		return "", err
	}

	if err := w.session.EnsureInitialized(ctx); err != nil {
		return "", err
	}

	account, err := w.findAccount(ctx, p, index)
	if err != nil {
		return "", err
	}

	return account.Address, nil
}

// Sign signs the payload with the card key at the derivation path of signingContext
func (w *Wallet) Sign(ctx context.Context, signingContext *hardware.SigningContext) (*hardware.SignResult, error) {
	if signingContext == nil || signingContext.Payload == nil {
		return nil, errors.Wrap(hardware.ErrInvalidPayload, "signing context without payload")
	}

	p, err := w.Provisioner(signingContext.ChainType)
	if err != nil {
		return nil, err
	}

	index, err := pathIndex(p, signingContext.DerivationPath)
	if err != nil {
		return nil, err
	}

	digest, err := hardware.PayloadDigest(signingContext.Payload)
	if err != nil {
		return nil, err
	}

	if err := w.session.EnsureInitialized(ctx); err != nil {
		return nil, err
	}

	return queue.Do(ctx, w.session.Queue(), "sign_payload", func(ctx context.Context) (*hardware.SignResult, error) {
		if err := w.verifyBPIN(ctx); err != nil {
			return nil, err
		}

		account, err := w.findAccount(ctx, p, index)
		if err != nil {
			return nil, err
		}

		signer, err := address.ParsePublicKey(account.PublicKey)
		if err != nil {
			return nil, err
		}

		cardSig, err := w.session.Sign(ctx, digest.Bytes(), p.CoinType(), index)
		if err != nil {
			return nil, err
		}

		canonical, err := Canonicalize(cardSig)
		if err != nil {
			return nil, err
		}

		sig, err := RecoverySignature(digest.Bytes(), canonical, crypto.PubkeyToAddress(*signer))
		if err != nil {
			return nil, err
		}

		w.log.Debug().
			Str("chain", string(signingContext.ChainType)).
			Str("payload", string(signingContext.Payload.Kind)).
			Int("index", index).
			Msg("Signed payload with BSIM")

		return hardware.BuildResult(signingContext.ChainType, signingContext.Payload, digest, sig)
	})
}

// verifyBPIN runs BPIN verification, cards without a BPIN answer A000 which is not an error
func (w *Wallet) verifyBPIN(ctx context.Context) error {
	err := w.session.VerifyBPIN(ctx)
	if err == nil {
		return nil
	}
	if IsCardStatus(err, StatusUnknown) {
		w.log.Debug().Msg("BPIN verification not available, continuing")
		return nil
	}
	return err
}

// Capabilities describes BSIM cards
func (w *Wallet) Capabilities() hardware.Capabilities {
	chains := make([]hardware.ChainType, len(supportedChains))
	copy(chains, supportedChains)

	return hardware.Capabilities{
		Type:         HardwareType,
		Chains:       chains,
		AccountLimit: w.accountLimit,
	}
}

func (w *Wallet) findAccount(ctx context.Context, p *Provisioner, index int) (ProvisionedAccount, error) {
	accounts, err := p.fetchAccounts(ctx)
	if err != nil {
		return ProvisionedAccount{}, err
	}

	for _, account := range accounts {
		if account.Index == index {
			return account, nil
		}
	}

	return ProvisionedAccount{}, errors.Wrapf(hardware.ErrAccountNotFound, "no %s key at index %d", p.ChainType(), index)
}

// pathIndex extracts the key index of m/44'/<coin>'/0'/0/<index>, the coin must match p
func pathIndex(p *Provisioner, path string) (int, error) {
	segments, err := address.ParseBIP44Path(path)
	if err != nil {
		return 0, err
	}

	const (
		purpose  = 44 + 0x80000000
		hardened = 0x80000000
	)
	if len(segments) != 5 || segments[0] != purpose || segments[1] != p.CoinType()+hardened ||
		segments[2] != hardened || segments[3] != 0 {
		return 0, errors.Wrapf(address.ErrInvalidPath, "%q is not a %s account path", path, p.ChainType())
	}

	index := int(segments[4])
	if index >= p.AccountLimit() {
		return 0, errors.Wrapf(hardware.ErrAccountLimit, "index %d outside [0, %d)", index, p.AccountLimit())
	}

	return index, nil
}

func toAccount(p *Provisioner, account ProvisionedAccount) (hardware.Account, error) {
	pub, err := address.ParsePublicKey(account.PublicKey)
	if err != nil {
		return hardware.Account{}, err
	}

	return hardware.Account{
		Index:          account.Index,
		ChainType:      p.ChainType(),
		Address:        account.Address,
		DerivationPath: address.BIP44Path(p.CoinType(), account.Index),
		PublicKey:      "0x" + hex.EncodeToString(crypto.FromECDSAPub(pub)),
	}, nil
}
