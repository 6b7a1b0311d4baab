package vault

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/wallet/address"
	"github/chapool/go-signer/internal/wallet/seed"
)

// VerificationAccountIndex is the account whose address is stored to check a decrypted vault
const VerificationAccountIndex = 0

// ErrVerificationFailed is returned when a decrypted vault does not yield the stored address
var ErrVerificationFailed = errors.New("vault verification failed")

func addressOfKey(privateKey []byte, chainType hardware.ChainType) (string, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert to ECDSA private key")
	}

	return address.FormatAddress(crypto.PubkeyToAddress(key.PublicKey), chainType)
}

func hdVerificationAddress(mnemonic string, prefix string, chainType hardware.ChainType) (string, error) {
	seedBytes := seed.FromMnemonic(mnemonic, "")
	defer address.Zero(seedBytes)

	record := Record{DerivationPath: prefix}
	path, err := record.AccountPath(VerificationAccountIndex)
	if err != nil {
		return "", err
	}

	privateKey, err := address.DerivePrivateKey(seedBytes, path)
	if err != nil {
		return "", errors.Wrap(err, "failed to derive verification key")
	}
	defer address.Zero(privateKey)

	return addressOfKey(privateKey, chainType)
}

// Verify compares the address derived from the decrypted vault against the stored one.
// Records without a verification address pass.
func (r *Record) Verify(derivedAddress string) error {
	if r.VerificationAddress == "" {
		return nil
	}

	if r.VerificationAddress != derivedAddress {
		return errors.Wrapf(ErrVerificationFailed, "derived %s, vault expects %s", derivedAddress, r.VerificationAddress)
	}

	return nil
}
