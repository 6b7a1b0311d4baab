package seed

import "github.com/pkg/errors"

var (
	ErrEmptyMnemonic = errors.New("mnemonic must not be empty")
	ErrEmptySeed     = errors.New("seed must not be empty")
)

// Manager provides seed management functionality
type Manager interface {
	// Initialize derives the seed from mnemonic and password (called at startup)
	Initialize(mnemonic string, password string) error

	// InitializeFromSeed stores an already derived seed
	InitializeFromSeed(seed []byte) error

	// GetSeed gets the seed (from memory)
	GetSeed() []byte

	// IsInitialized checks if seed is initialized
	IsInitialized() bool

	// Clear clears the seed from memory
	Clear()
}
