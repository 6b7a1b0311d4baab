package bsim

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/util"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/seed"
)

const (
	simCardVersion = "0100"

	statusWrongData   = "6A80"
	statusMemoryFull  = "6A84"
	statusWrongParams = "6A86"
)

// simKey is one row of the SimCard key table
type simKey struct {
	CoinType  uint32 `toml:"coin_type"`
	Index     int    `toml:"index"`
	Algorithm byte   `toml:"algorithm"`
}

type simState struct {
	Keys []simKey `toml:"keys"`
}

// SimCardOption configures a SimCard
type SimCardOption func(*SimCard)

// WithStateFile persists the key table to path as TOML. Without it the table lives in memory.
func WithStateFile(path string) SimCardOption {
	return func(c *SimCard) {
		c.statePath = path
	}
}

// WithMissingCard makes Create fail as if no card was inserted
func WithMissingCard() SimCardOption {
	return func(c *SimCard) {
		c.missing = true
	}
}

// WithLockedCard makes every command answer 6983
func WithLockedCard() SimCardOption {
	return func(c *SimCard) {
		c.locked = true
	}
}

// WithoutBPIN makes VerifyBPIN answer A000 like cards without a configured BPIN
func WithoutBPIN() SimCardOption {
	return func(c *SimCard) {
		c.noBPIN = true
	}
}

// WithHighS makes Sign return the high-S form of every signature
func WithHighS() SimCardOption {
	return func(c *SimCard) {
		c.highS = true
	}
}

// SimCard is a software BSIM card. Keys are derived with BIP32 from the seed of a
// seed.Manager at m/44'/<coin>'/0'/0/<index>, so a table restored from its state file yields
// the same keys again.
type SimCard struct {
	seeds     seed.Manager
	statePath string
	missing   bool
	locked    bool
	noBPIN    bool
	highS     bool

	mu     sync.Mutex
	open   bool
	state  simState
	loaded bool
}

var _ Card = (*SimCard)(nil)

// NewSimCard creates a SimCard over an initialized seed manager
func NewSimCard(seeds seed.Manager, opts ...SimCardOption) (*SimCard, error) {
	if seeds == nil || !seeds.IsInitialized() {
		return nil, errors.New("sim card requires an initialized seed")
	}

	c := &SimCard{seeds: seeds}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Create opens the card, loading the key table on first use
func (c *SimCard) Create(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.missing {
		return NewTransportError(TransportDeviceNotFound, "no sim card inserted", nil)
	}
	if c.locked {
		return NewCardError(StatusLocked)
	}

	if !c.loaded {
		if err := c.load(); err != nil {
			return err
		}
		c.loaded = true
		util.LogFromContext(ctx).Debug().Int("keys", len(c.state.Keys)).Str("state", c.statePath).Msg("Loaded sim card")
	}

	c.open = true
	return nil
}

func (c *SimCard) load() error {
	if c.statePath == "" {
		return nil
	}

	if _, err := toml.DecodeFile(c.statePath, &c.state); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "failed to read sim card state %s", c.statePath)
	}

	return nil
}

func (c *SimCard) persist() error {
	if c.statePath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.statePath), 0o700); err != nil {
		return errors.Wrap(err, "failed to create sim card state directory")
	}

	file, err := os.OpenFile(c.statePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrap(err, "failed to open sim card state")
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(c.state); err != nil {
		return errors.Wrap(err, "failed to write sim card state")
	}

	return nil
}

func (c *SimCard) ready() error {
	if !c.open {
		return NewTransportError(TransportChannelNotOpen, "sim card channel is not open", nil)
	}
	if c.locked {
		return NewCardError(StatusLocked)
	}
	return nil
}

// Version returns the applet version
func (c *SimCard) Version(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return "", err
	}
	return simCardVersion, nil
}

// ExportPubkeys returns the key table with keys in the 00 || X || Y form real cards emit
func (c *SimCard) ExportPubkeys(_ context.Context) ([]RawPubkey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return nil, err
	}

	records := make([]RawPubkey, 0, len(c.state.Keys))
	for _, key := range c.state.Keys {
		privateKey, err := c.privateKey(key.CoinType, key.Index)
		if err != nil {
			return nil, err
		}

		uncompressed := crypto.FromECDSAPub(&privateKey.PublicKey)
		records = append(records, RawPubkey{
			fieldCoinType:  key.CoinType,
			fieldIndex:     key.Index,
			fieldAlgorithm: key.Algorithm,
			fieldKey:       "00" + hex.EncodeToString(uncompressed[1:]),
		})
	}

	return records, nil
}

// DeriveKey appends a key for coinType at the next free index
func (c *SimCard) DeriveKey(ctx context.Context, coinType uint32, algorithm byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}
	if algorithm != AlgorithmSecp256k1 {
		return NewCardError(statusWrongParams)
	}

	next := 0
	for _, key := range c.state.Keys {
		if key.CoinType == coinType && key.Index >= next {
			next = key.Index + 1
		}
	}
	if next >= AccountLimit {
		return NewCardError(statusMemoryFull)
	}

	c.state.Keys = append(c.state.Keys, simKey{CoinType: coinType, Index: next, Algorithm: algorithm})
	if err := c.persist(); err != nil {
		c.state.Keys = c.state.Keys[:len(c.state.Keys)-1]
		return err
	}

	util.LogFromContext(ctx).Debug().Uint32("coin_type", coinType).Int("index", next).Msg("Sim card derived key")
	return nil
}

// Sign signs digest with the key at (coinType, index)
func (c *SimCard) Sign(_ context.Context, digest []byte, coinType uint32, index int) (*Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return nil, err
	}
	if len(digest) != digestLength {
		return nil, NewCardError(statusWrongData)
	}

	found := false
	for _, key := range c.state.Keys {
		if key.CoinType == coinType && key.Index == index {
			found = true
			break
		}
	}
	if !found {
		return nil, NewCardError(statusWrongData)
	}

	privateKey, err := c.privateKey(coinType, index)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "sim card signing failed")
	}

	out := new(Signature)
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])

	if c.highS {
		var s secp256k1.ModNScalar
		s.SetByteSlice(out.S[:])
		out.S = s.Negate().Bytes()
	}

	return out, nil
}

// VerifyBPIN succeeds unless the card was built WithoutBPIN
func (c *SimCard) VerifyBPIN(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}
	if c.noBPIN {
		return NewCardError(StatusUnknown)
	}
	return nil
}

// Close closes the channel, the key table stays
func (c *SimCard) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = false
	return nil
}

// SetLocked locks or unlocks the card
func (c *SimCard) SetLocked(locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.locked = locked
}

func (c *SimCard) privateKey(coinType uint32, index int) (*ecdsa.PrivateKey, error) {
	seedBytes := c.seeds.GetSeed()
	defer address.Zero(seedBytes)

	raw, err := address.DerivePrivateKey(seedBytes, address.BIP44Path(coinType, index))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to derive sim card key %d/%d", coinType, index)
	}
	defer address.Zero(raw)

	return crypto.ToECDSA(raw)
}
