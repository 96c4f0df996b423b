package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/rollcall/internal/database"
)

// SignatureStore keeps signatures in a pgvector column, keyed by uuid.
type SignatureStore struct {
	pool *Pool
}

// NewSignatureStore creates a pgvector-backed signature store.
func NewSignatureStore(pool *Pool) *SignatureStore {
	return &SignatureStore{pool: pool}
}

// Save stores the signature under a new reference.
func (s *SignatureStore) Save(ctx context.Context, signature []float32) (string, error) {
	if len(signature) == 0 {
		return "", fmt.Errorf("save signature: %w", database.ErrDegenerateSignature)
	}
	ref := uuid.NewString()
	vec := pgvector.NewVector(signature)
	_, err := s.pool.Exec(ctx,
		"INSERT INTO signatures (ref, embedding, dim) VALUES ($1, $2, $3)",
		ref, vec, len(signature))
	if err != nil {
		return "", fmt.Errorf("insert signature: %w", err)
	}
	return ref, nil
}

// Load reads a signature by reference.
func (s *SignatureStore) Load(ctx context.Context, ref string) ([]float32, error) {
	var (
		vec pgvector.Vector
		dim int
	)
	err := s.pool.QueryRow(ctx, "SELECT embedding, dim FROM signatures WHERE ref = $1", ref).Scan(&vec, &dim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", ref, database.ErrSignatureNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query signature: %w", err)
	}
	out := vec.Slice()
	if len(out) != dim {
		return nil, fmt.Errorf("signature %s: stored dim %d, vector has %d", ref, dim, len(out))
	}
	return out, nil
}

// Delete removes a signature; missing references are ignored.
func (s *SignatureStore) Delete(ctx context.Context, ref string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM signatures WHERE ref = $1", ref); err != nil {
		return fmt.Errorf("delete signature: %w", err)
	}
	return nil
}

var _ database.SignatureStore = (*SignatureStore)(nil)
