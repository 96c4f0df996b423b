// Package mock provides in-memory implementations of database interfaces for
// tests and for the memory storage backend.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
)

func init() {
	database.RegisterBackend(config.BackendMemory, func(ctx context.Context, cfg *config.Config) (*database.Backend, error) {
		return NewBackend(), nil
	})
}

// MockRoster is an in-memory database.RosterWriter
type MockRoster struct {
	mu         sync.RWMutex
	identities []database.Identity
	byKey      map[string]int // normalized name -> index into identities
	nextID     int64

	// Error injection
	ListAllError   error
	GetByNameError error
	CountError     error
	InsertError    error
}

// NewMockRoster creates a new empty roster
func NewMockRoster() *MockRoster {
	return &MockRoster{
		byKey:  make(map[string]int),
		nextID: 1,
	}
}

// ListAll returns identities in insertion order
func (m *MockRoster) ListAll(ctx context.Context) ([]database.Identity, error) {
	if m.ListAllError != nil {
		return nil, m.ListAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Identity, len(m.identities))
	copy(out, m.identities)
	return out, nil
}

// GetByName retrieves an identity by normalized name
func (m *MockRoster) GetByName(ctx context.Context, name string) (*database.Identity, error) {
	if m.GetByNameError != nil {
		return nil, m.GetByNameError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byKey[facematch.NormalizePersonName(name)]
	if !ok {
		return nil, nil
	}
	id := m.identities[i]
	return &id, nil
}

// Count returns the number of identities
func (m *MockRoster) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// Insert adds an identity
func (m *MockRoster) Insert(ctx context.Context, name, signatureRef string) (database.Identity, error) {
	if m.InsertError != nil {
		return database.Identity{}, m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := facematch.NormalizePersonName(name)
	if key == "" {
		return database.Identity{}, database.ErrInvalidName
	}
	if facematch.IsReservedName(name) {
		return database.Identity{}, fmt.Errorf("insert %q: name is reserved: %w", name, database.ErrInvalidName)
	}
	if _, ok := m.byKey[key]; ok {
		return database.Identity{}, fmt.Errorf("insert %q: %w", name, database.ErrDuplicateIdentity)
	}
	id := database.Identity{
		ID:           m.nextID,
		Name:         name,
		SignatureRef: signatureRef,
		CreatedAt:    time.Now().UTC(),
	}
	m.nextID++
	m.byKey[key] = len(m.identities)
	m.identities = append(m.identities, id)
	return id, nil
}

// MockSignatureStore is an in-memory database.SignatureStore
type MockSignatureStore struct {
	mu         sync.RWMutex
	signatures map[string][]float32

	// Error injection
	SaveError   error
	LoadError   error
	DeleteError error
	// LoadErrors fails Load for specific references
	LoadErrors map[string]error
}

// NewMockSignatureStore creates a new empty signature store
func NewMockSignatureStore() *MockSignatureStore {
	return &MockSignatureStore{
		signatures: make(map[string][]float32),
		LoadErrors: make(map[string]error),
	}
}

// Save stores a copy of the signature under a new uuid
func (m *MockSignatureStore) Save(ctx context.Context, signature []float32) (string, error) {
	if m.SaveError != nil {
		return "", m.SaveError
	}
	ref := uuid.NewString()
	m.Put(ref, signature)
	return ref, nil
}

// Put stores a signature under a caller-chosen reference
func (m *MockSignatureStore) Put(ref string, signature []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signatures[ref] = append([]float32(nil), signature...)
}

// Load returns a copy of the stored signature
func (m *MockSignatureStore) Load(ctx context.Context, ref string) ([]float32, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.LoadErrors[ref]; ok {
		return nil, err
	}
	sig, ok := m.signatures[ref]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", ref, database.ErrSignatureNotFound)
	}
	return append([]float32(nil), sig...), nil
}

// Delete removes a signature
func (m *MockSignatureStore) Delete(ctx context.Context, ref string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.signatures, ref)
	return nil
}

// Len returns the number of stored signatures
func (m *MockSignatureStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.signatures)
}

// MockLedger is an in-memory database.Ledger
type MockLedger struct {
	mu      sync.RWMutex
	entries []database.AttendanceEntry
	nextID  int64

	// Now assigns timestamps; defaults to time.Now in UTC
	Now func() time.Time

	// Error injection
	RecordError   error
	EntryForError error
	HistoryError  error
	ClearError    error
}

// NewMockLedger creates a new empty ledger
func NewMockLedger() *MockLedger {
	return &MockLedger{
		nextID: 1,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record appends one entry
func (m *MockLedger) Record(ctx context.Context, name string) (database.AttendanceEntry, error) {
	entries, err := m.RecordBatch(ctx, []string{name})
	if err != nil {
		return database.AttendanceEntry{}, err
	}
	return entries[0], nil
}

// RecordBatch appends entries atomically
func (m *MockLedger) RecordBatch(ctx context.Context, names []string) ([]database.AttendanceEntry, error) {
	if m.RecordError != nil {
		return nil, m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	out := make([]database.AttendanceEntry, 0, len(names))
	for _, name := range names {
		e := database.AttendanceEntry{ID: m.nextID, Name: name, Timestamp: now}
		m.nextID++
		out = append(out, e)
	}
	m.entries = append(m.entries, out...)
	return out, nil
}

// EntryFor returns the newest entry for name
func (m *MockLedger) EntryFor(ctx context.Context, name string) (database.AttendanceEntry, error) {
	if m.EntryForError != nil {
		return database.AttendanceEntry{}, m.EntryForError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		best  database.AttendanceEntry
		found bool
	)
	for _, e := range m.entries {
		if e.Name != name {
			continue
		}
		if !found || newer(e, best) {
			best, found = e, true
		}
	}
	if !found {
		return database.AttendanceEntry{}, fmt.Errorf("entry for %q: %w", name, database.ErrEntryNotFound)
	}
	return best, nil
}

// History returns entries newest first
func (m *MockLedger) History(ctx context.Context) ([]database.AttendanceEntry, error) {
	if m.HistoryError != nil {
		return nil, m.HistoryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceEntry, len(m.entries))
	copy(out, m.entries)
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out, nil
}

// Clear removes all entries
func (m *MockLedger) Clear(ctx context.Context) (int64, error) {
	if m.ClearError != nil {
		return 0, m.ClearError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.entries))
	m.entries = nil
	return n, nil
}

// newer orders by timestamp then ID, matching ORDER BY date DESC, id DESC.
func newer(a, b database.AttendanceEntry) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

// NewBackend returns an in-memory backend with its own signature store.
func NewBackend() *database.Backend {
	return database.NewBackend(NewMockRoster(), NewMockLedger(), NewMockSignatureStore(), nil)
}

// Names returns the names of entries in History order.
func Names(entries []database.AttendanceEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

var _ database.RosterWriter = (*MockRoster)(nil)
var _ database.SignatureStore = (*MockSignatureStore)(nil)
var _ database.Ledger = (*MockLedger)(nil)
