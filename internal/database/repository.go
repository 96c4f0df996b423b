package database

import (
	"context"
)

// RosterReader provides read-only access to enrolled identities
type RosterReader interface {
	// ListAll returns every enrolled identity in insertion order
	ListAll(ctx context.Context) ([]Identity, error)
	// GetByName retrieves an identity by normalized name, returns nil if not found
	GetByName(ctx context.Context, name string) (*Identity, error)
	// Count returns the number of enrolled identities
	Count(ctx context.Context) (int, error)
}

// RosterWriter provides write access to the roster
type RosterWriter interface {
	RosterReader

	// Insert adds an identity row and returns it with ID and CreatedAt assigned.
	// Returns ErrDuplicateIdentity if the normalized name already exists.
	Insert(ctx context.Context, name, signatureRef string) (Identity, error)
}

// SignatureStore persists raw signature vectors under opaque references
type SignatureStore interface {
	// Save writes a signature and returns the reference it is stored under
	Save(ctx context.Context, signature []float32) (string, error)
	// Load reads a signature. Missing references fail with ErrSignatureNotFound.
	Load(ctx context.Context, ref string) ([]float32, error)
	// Delete removes a signature; deleting a missing reference is not an error
	Delete(ctx context.Context, ref string) error
}

// LedgerReader provides read-only access to attendance history
type LedgerReader interface {
	// EntryFor returns the most recent entry for name, or ErrEntryNotFound
	EntryFor(ctx context.Context, name string) (AttendanceEntry, error)
	// History returns every entry, newest first
	History(ctx context.Context) ([]AttendanceEntry, error)
}

// Ledger is the append-only attendance log
type Ledger interface {
	LedgerReader

	// Record appends one entry with a ledger-assigned timestamp
	Record(ctx context.Context, name string) (AttendanceEntry, error)
	// RecordBatch appends one entry per name in a single transaction, preserving order.
	// Either every entry is written or none is.
	RecordBatch(ctx context.Context, names []string) ([]AttendanceEntry, error)
	// Clear deletes every entry and returns how many were removed
	Clear(ctx context.Context) (int64, error)
}
