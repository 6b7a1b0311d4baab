package bsim_test

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/bsim"
	"github/chapool/go-signer/internal/wallet/address"
)

// fakeCard is a scripted Card. DeriveKey places the new key at nextIndex(current max).
type fakeCard struct {
	t *testing.T

	mu          sync.Mutex
	keys        []bsim.RawPubkey
	createCalls int
	deriveCalls int
	createErr   error
	exportErr   error
	createGate  chan struct{}

	nextIndex func(currentMax int) (int, bool)
}

func newFakeCard(t *testing.T, indices ...int) *fakeCard {
	t.Helper()

	c := &fakeCard{
		t: t,
		nextIndex: func(currentMax int) (int, bool) {
			return currentMax + 1, true
		},
	}
	for _, index := range indices {
		c.addKey(address.CoinTypeEthereum, index)
	}
	return c
}

func testPubkey(t *testing.T) string {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	return "00" + hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey)[1:])
}

func (c *fakeCard) addKey(coinType uint32, index int) {
	c.keys = append(c.keys, bsim.RawPubkey{
		"coinType": coinType,
		"index":    index,
		"alg":      bsim.AlgorithmSecp256k1,
		"key":      testPubkey(c.t),
	})
}

func (c *fakeCard) derives() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deriveCalls
}

func (c *fakeCard) creates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createCalls
}

func (c *fakeCard) Create(_ context.Context) error {
	if c.createGate != nil {
		<-c.createGate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.createCalls++
	err := c.createErr
	c.createErr = nil
	return err
}

func (c *fakeCard) Version(_ context.Context) (string, error) {
	return "0102", nil
}

func (c *fakeCard) ExportPubkeys(_ context.Context) ([]bsim.RawPubkey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exportErr != nil {
		return nil, c.exportErr
	}
	return append([]bsim.RawPubkey(nil), c.keys...), nil
}

func (c *fakeCard) DeriveKey(_ context.Context, coinType uint32, _ byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deriveCalls++

	currentMax := -1
	for _, key := range c.keys {
		if key["coinType"] == coinType {
			if index, ok := key["index"].(int); ok && index > currentMax {
				currentMax = index
			}
		}
	}

	if next, ok := c.nextIndex(currentMax); ok {
		c.addKey(coinType, next)
	}
	return nil
}

func (c *fakeCard) Sign(_ context.Context, _ []byte, _ uint32, _ int) (*bsim.Signature, error) {
	return nil, bsim.NewCardError("6A80")
}

func (c *fakeCard) VerifyBPIN(_ context.Context) error {
	return nil
}

func (c *fakeCard) Close(_ context.Context) error {
	return nil
}
