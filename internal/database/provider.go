package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/rollcall/internal/config"
)

// Backend bundles the stores of one storage backend.
type Backend struct {
	Roster RosterWriter
	Ledger Ledger
	// Signatures is set only by backends that keep signatures in the database.
	// When nil, the caller supplies a file-backed store.
	Signatures SignatureStore
	close      func() error
}

// NewBackend assembles a backend; closeFn may be nil.
func NewBackend(roster RosterWriter, ledger Ledger, sigs SignatureStore, closeFn func() error) *Backend {
	return &Backend{Roster: roster, Ledger: ledger, Signatures: sigs, close: closeFn}
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenFunc opens a backend from configuration.
type OpenFunc func(ctx context.Context, cfg *config.Config) (*Backend, error)

var (
	backends   = map[string]OpenFunc{}
	backendsMu sync.RWMutex
)

// RegisterBackend registers a backend constructor under a name.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Open opens the backend named by cfg.Database.Backend.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	backendsMu.RLock()
	open, ok := backends[cfg.Database.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage backend %q not registered (available: %v)", cfg.Database.Backend, RegisteredBackends())
	}
	b, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Database.Backend, err)
	}
	return b, nil
}

// RegisteredBackends returns the registered backend names, sorted.
func RegisteredBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
