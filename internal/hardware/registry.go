package hardware

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrAdapterExists is returned when registering a second adapter for the same type and hardware id
var ErrAdapterExists = errors.New("adapter already registered")

const defaultHardwareID = "<default>"

// Descriptor lists a registered adapter
type Descriptor struct {
	Type         string
	HardwareID   string
	Capabilities Capabilities
}

type registryKey struct {
	kind       string
	hardwareID string
}

// Registry holds hardware wallet adapters keyed by type and optional hardware id
type Registry struct {
	mu       sync.RWMutex
	adapters map[registryKey]Wallet
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[registryKey]Wallet),
	}
}

func newRegistryKey(kind string, hardwareID string) registryKey {
	return registryKey{
		kind:       strings.ToLower(strings.TrimSpace(kind)),
		hardwareID: strings.TrimSpace(hardwareID),
	}
}

// Register adds an adapter. An empty hardwareID registers the default adapter of the type.
func (r *Registry) Register(kind string, hardwareID string, wallet Wallet) error {
	if wallet == nil {
		return errors.New("adapter must not be nil")
	}

	key := newRegistryKey(kind, hardwareID)
	if key.kind == "" {
		return errors.New("adapter type must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.adapters[key]; ok {
		id := hardwareID
		if id == "" {
			id = defaultHardwareID
		}
		return errors.Wrapf(ErrAdapterExists, "type %s (hardwareId=%s)", kind, id)
	}

	r.adapters[key] = wallet
	return nil
}

// Get returns the adapter for hardwareID, falling back to the default adapter of the type
func (r *Registry) Get(kind string, hardwareID string) (Wallet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := newRegistryKey(kind, hardwareID)
	if key.hardwareID != "" {
		if wallet, ok := r.adapters[key]; ok {
			return wallet, true
		}
	}

	wallet, ok := r.adapters[newRegistryKey(kind, "")]
	return wallet, ok
}

// Has reports whether a default or hardware specific adapter exists for the type
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalized := newRegistryKey(kind, "").kind
	for key := range r.adapters {
		if key.kind == normalized {
			return true
		}
	}
	return false
}

// Len returns the number of registered adapters
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.adapters)
}

// List returns descriptors of all adapters, capabilities are queried on every call
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.adapters))
	for key, wallet := range r.adapters {
		descriptors = append(descriptors, Descriptor{
			Type:         key.kind,
			HardwareID:   key.hardwareID,
			Capabilities: wallet.Capabilities(),
		})
	}

	sort.Slice(descriptors, func(i, j int) bool {
		if descriptors[i].Type != descriptors[j].Type {
			return descriptors[i].Type < descriptors[j].Type
		}
		return descriptors[i].HardwareID < descriptors[j].HardwareID
	})

	return descriptors
}
