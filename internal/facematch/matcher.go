// Package facematch resolves face signatures to enrolled identities and keeps
// the per-face records of one image aligned.
package facematch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/logging"
)

// Unknown returns the result for a signature that matches nobody.
func Unknown() database.MatchResult {
	return database.MatchResult{Name: constants.UnknownName}
}

// Matcher is the linear-scan matcher. Every call lists the roster and loads
// every signature from the store; nothing is cached between calls.
type Matcher struct {
	roster     database.RosterReader
	signatures database.SignatureStore
	threshold  float64
	logger     *zap.Logger
}

// NewMatcher creates a linear-scan matcher. A candidate must strictly exceed
// threshold to be accepted.
func NewMatcher(roster database.RosterReader, signatures database.SignatureStore, threshold float64, logger *zap.Logger) *Matcher {
	return &Matcher{
		roster:     roster,
		signatures: signatures,
		threshold:  threshold,
		logger:     logging.OrNop(logger),
	}
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match compares query against every enrolled identity in roster order.
// The first identity to reach the highest similarity wins. A stored signature
// that fails to load aborts the whole match with a StorageError; stored
// signatures that are degenerate or of another dimension are skipped. A
// degenerate query resolves to Unknown.
func (m *Matcher) Match(ctx context.Context, query []float32) (database.MatchResult, error) {
	if database.IsDegenerate(query) {
		m.logger.Warn("Degenerate query signature, treating as unknown", zap.Int("dim", len(query)))
		return Unknown(), nil
	}

	identities, err := m.roster.ListAll(ctx)
	if err != nil {
		return database.MatchResult{}, database.NewStorageError("list roster", err)
	}

	s := newScan(m.threshold)
	for _, identity := range identities {
		if err := ctx.Err(); err != nil {
			return database.MatchResult{}, err
		}

		stored, err := m.signatures.Load(ctx, identity.SignatureRef)
		if err != nil {
			m.logger.Error("Failed to load signature",
				zap.Int64("identity_id", identity.ID),
				zap.String("name", identity.Name),
				zap.Error(err))
			return database.MatchResult{}, database.NewStorageError(
				fmt.Sprintf("load signature for %q", identity.Name), err)
		}

		s.consider(identity, query, stored, m.logger)
	}
	return s.result(), nil
}

// scan tracks the running best candidate, seeded with the threshold as an
// implicit "no match" candidate.
type scan struct {
	best       float64
	name       string
	identified bool
}

func newScan(threshold float64) *scan {
	return &scan{best: threshold, name: constants.UnknownName}
}

func (s *scan) consider(identity database.Identity, query, stored []float32, logger *zap.Logger) {
	sim, err := database.CosineSimilarity(query, stored)
	switch {
	case errors.Is(err, database.ErrDegenerateSignature):
		logger.Warn("Skipping degenerate stored signature",
			zap.Int64("identity_id", identity.ID),
			zap.String("name", identity.Name))
		return
	case errors.Is(err, database.ErrDimensionMismatch):
		logger.Warn("Skipping stored signature with different dimension",
			zap.Int64("identity_id", identity.ID),
			zap.String("name", identity.Name),
			zap.Int("stored_dim", len(stored)),
			zap.Int("query_dim", len(query)))
		return
	case err != nil:
		return
	}

	if sim > s.best {
		s.best = sim
		s.name = identity.Name
		s.identified = true
	}
}

func (s *scan) result() database.MatchResult {
	if !s.identified {
		return Unknown()
	}
	return database.MatchResult{Identified: true, Name: s.name, Similarity: s.best}
}
