package bsim

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/queue"
	"github/chapool/go-signer/internal/wallet/address"
)

// ProvisionedAccount is a card key mapped to its chain address
type ProvisionedAccount struct {
	Index     int    `json:"index"`
	Address   string `json:"hexAddress"`
	PublicKey string `json:"publicKey"` // normalized hex as derived from the card record
}

// ProvisionerOption configures a Provisioner
type ProvisionerOption func(*Provisioner)

// WithChain provisions keys for chainType instead of Ethereum
func WithChain(chainType hardware.ChainType) ProvisionerOption {
	return func(p *Provisioner) {
		p.chainType = chainType
	}
}

// WithAccountLimit overrides AccountLimit
func WithAccountLimit(limit int) ProvisionerOption {
	return func(p *Provisioner) {
		p.accountLimit = limit
	}
}

// WithAlgorithm selects the algorithm of newly derived keys
func WithAlgorithm(algorithm byte) ProvisionerOption {
	return func(p *Provisioner) {
		p.algorithm = algorithm
	}
}

// Provisioner lists the accounts held by the card and creates new ones. The card picks the
// index of every new key, the provisioner only verifies that indices grow.
type Provisioner struct {
	session      *Session
	chainType    hardware.ChainType
	coinType     uint32
	algorithm    byte
	accountLimit int
	log          zerolog.Logger
}

// NewProvisioner creates a provisioner for the chain selected by opts (Ethereum by default)
func NewProvisioner(session *Session, opts ...ProvisionerOption) (*Provisioner, error) {
	if session == nil {
		return nil, errors.New("session must not be nil")
	}

	p := &Provisioner{
		session:      session,
		chainType:    hardware.ChainEthereum,
		algorithm:    AlgorithmSecp256k1,
		accountLimit: AccountLimit,
	}
	for _, opt := range opts {
		opt(p)
	}

	coinType, err := address.CoinType(p.chainType)
	if err != nil {
		return nil, err
	}
	if p.accountLimit <= 0 || p.accountLimit > maxKeyIndex+1 {
		return nil, errors.Errorf("account limit %d out of range", p.accountLimit)
	}

	p.coinType = coinType
	p.log = log.With().Str("component", "bsim_provisioner").Str("chain", string(p.chainType)).Logger()

	return p, nil
}

// ChainType returns the chain the provisioner derives addresses for
func (p *Provisioner) ChainType() hardware.ChainType {
	return p.chainType
}

// CoinType returns the coin type of the keys the provisioner manages
func (p *Provisioner) CoinType() uint32 {
	return p.coinType
}

// AccountLimit returns the highest index plus one the provisioner creates
func (p *Provisioner) AccountLimit() int {
	return p.accountLimit
}

// EnsureInitialized initializes the card session once
func (p *Provisioner) EnsureInitialized(ctx context.Context) error {
	return p.session.EnsureInitialized(ctx)
}

// ListAccounts returns the accounts on the card sorted by index. Any failure yields an empty
// list, callers use emptiness to decide whether to provision a first account.
func (p *Provisioner) ListAccounts(ctx context.Context) []ProvisionedAccount {
	if err := p.session.EnsureInitialized(ctx); err != nil {
		p.log.Warn().Err(err).Msg("Listing BSIM accounts failed, reporting none")
		return []ProvisionedAccount{}
	}

	accounts, err := p.fetchAccounts(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("Listing BSIM accounts failed, reporting none")
		return []ProvisionedAccount{}
	}

	return accounts
}

// fetchAccounts reads the key table, keeps the provisioner's coin type, drops duplicate
// indices and sorts ascending
func (p *Provisioner) fetchAccounts(ctx context.Context) ([]ProvisionedAccount, error) {
	keys, err := p.session.ExportPubkeys(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(keys))
	accounts := make([]ProvisionedAccount, 0, len(keys))
	for _, key := range keys {
		if key.CoinType != p.coinType {
			continue
		}
		if _, dup := seen[key.Index]; dup {
			p.log.Warn().Int("index", key.Index).Msg("Card reported duplicate key index")
			continue
		}

		normalized := address.NormalizePublicKey(key.Key)
		addr, err := address.PublicKeyToAddress(normalized, p.chainType)
		if err != nil {
			p.log.Warn().Err(err).Int("index", key.Index).Msg("Skipping card key without valid address")
			continue
		}

		seen[key.Index] = struct{}{}
		accounts = append(accounts, ProvisionedAccount{
			Index:     key.Index,
			Address:   addr,
			PublicKey: normalized,
		})
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Index < accounts[j].Index
	})

	return accounts, nil
}

func maxIndex(accounts []ProvisionedAccount) int {
	if len(accounts) == 0 {
		return -1
	}
	return accounts[len(accounts)-1].Index
}

// CreateNewAccount asks the card for a new key and returns the highest indexed account
// afterwards. Fails with hardware.ErrAccountCreationFailed if that account is not newer than
// every account known before the call.
func (p *Provisioner) CreateNewAccount(ctx context.Context) (ProvisionedAccount, error) {
	if err := p.session.EnsureInitialized(ctx); err != nil {
		return ProvisionedAccount{}, err
	}

	return queue.Do(ctx, p.session.Queue(), "create_account", func(ctx context.Context) (ProvisionedAccount, error) {
		return p.createNewAccount(ctx)
	})
}

func (p *Provisioner) createNewAccount(ctx context.Context) (ProvisionedAccount, error) {
	previousMax := maxIndex(p.ListAccounts(ctx))

	if err := p.session.DeriveKey(ctx, p.coinType, p.algorithm); err != nil {
		return ProvisionedAccount{}, errors.Wrap(err, "failed to derive key on card")
	}

	accounts, err := p.fetchAccounts(ctx)
	if err != nil {
		return ProvisionedAccount{}, errors.Wrapf(hardware.ErrAccountCreationFailed, "re-reading accounts: %v", err)
	}

	if len(accounts) == 0 || maxIndex(accounts) <= previousMax {
		return ProvisionedAccount{}, errors.Wrapf(hardware.ErrAccountCreationFailed,
			"new key not found (highest index before %d, after %d)", previousMax, maxIndex(accounts))
	}

	created := accounts[len(accounts)-1]
	p.log.Info().Int("index", created.Index).Str("address", created.Address).Msg("Created BSIM account")

	return created, nil
}

// ProvisionToIndex creates accounts until one with index >= target exists. It makes no
// creation call when the card already holds such an account, whatever the account limit. Every created index must exceed
// the previous one, the loop runs at most target-max times.
func (p *Provisioner) ProvisionToIndex(ctx context.Context, target int) error {
	if target < 0 {
		return errors.Errorf("target index %d must not be negative", target)
	}

	if err := p.session.EnsureInitialized(ctx); err != nil {
		return err
	}

	_, err := queue.Do(ctx, p.session.Queue(), "provision", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.provisionToIndex(ctx, target)
	})
	return err
}

func (p *Provisioner) provisionToIndex(ctx context.Context, target int) error {
	accounts, err := p.fetchAccounts(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list accounts")
	}

	current := maxIndex(accounts)
	if current >= target {
		return nil
	}
	if target >= p.accountLimit {
		return errors.Wrapf(hardware.ErrAccountLimit, "target index %d, card holds %d accounts", target, p.accountLimit)
	}

	for remaining := target - current; remaining > 0; remaining-- {
		created, err := p.createNewAccount(ctx)
		if err != nil {
			return err
		}

		if created.Index <= current {
			return errors.Wrapf(hardware.ErrAccountCreationFailed, "card returned index %d after %d", created.Index, current)
		}
		current = created.Index

		if current >= target {
			return nil
		}
	}

	return errors.Wrapf(hardware.ErrAccountCreationFailed, "target index %d not reached, highest is %d", target, current)
}

// Connect initializes the card and returns one usable account: the lowest indexed existing
// account, or a freshly created one when the card holds none or cannot be listed.
func (p *Provisioner) Connect(ctx context.Context) ([]ProvisionedAccount, error) {
	if err := p.session.EnsureInitialized(ctx); err != nil {
		return nil, err
	}

	accounts, err := p.fetchAccounts(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("Listing BSIM accounts failed, creating one")
	}

	if err == nil && len(accounts) > 0 {
		return accounts[:1], nil
	}

	created, err := p.CreateNewAccount(ctx)
	if err != nil {
		return nil, err
	}

	return []ProvisionedAccount{created}, nil
}
