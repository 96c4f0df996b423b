package facematch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/logging"
)

// IndexedMatcher narrows the roster with an HNSW index and then re-scores the
// candidates exactly, with signatures freshly loaded from the store. It applies
// the same threshold and tie-break as Matcher, so on small rosters (k covering
// everyone) both return identical results.
type IndexedMatcher struct {
	roster     database.RosterReader
	signatures database.SignatureStore
	threshold  float64
	k          int
	logger     *zap.Logger

	mu         sync.Mutex
	index      *database.HNSWIndex
	rosterSize int // identities listed at the last build, -1 before the first
}

// NewIndexedMatcher creates an HNSW-backed matcher; k <= 0 uses the default.
func NewIndexedMatcher(roster database.RosterReader, signatures database.SignatureStore, threshold float64, k int, logger *zap.Logger) *IndexedMatcher {
	if k <= 0 {
		k = constants.IndexSearchK
	}
	return &IndexedMatcher{
		roster:     roster,
		signatures: signatures,
		threshold:  threshold,
		k:          k,
		logger:     logging.OrNop(logger),
		index:      database.NewHNSWIndex(),
		rosterSize: -1,
	}
}

// Rebuild reloads the whole roster into the index.
func (m *IndexedMatcher) Rebuild(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuildLocked(ctx)
}

func (m *IndexedMatcher) rebuildLocked(ctx context.Context) error {
	identities, err := m.roster.ListAll(ctx)
	if err != nil {
		return database.NewStorageError("list roster", err)
	}

	items := make([]database.IndexedSignature, 0, len(identities))
	for _, identity := range identities {
		sig, err := m.signatures.Load(ctx, identity.SignatureRef)
		if err != nil {
			return database.NewStorageError(fmt.Sprintf("load signature for %q", identity.Name), err)
		}
		items = append(items, database.IndexedSignature{Identity: identity, Signature: sig})
	}

	m.index.Build(items)
	m.rosterSize = len(identities)
	m.logger.Info("Built face index",
		zap.Int("identities", len(identities)),
		zap.Int("indexed", m.index.Count()))
	return nil
}

// ensureFresh rebuilds the index when the roster size changed since the last build.
func (m *IndexedMatcher) ensureFresh(ctx context.Context) error {
	n, err := m.roster.Count(ctx)
	if err != nil {
		return database.NewStorageError("count roster", err)
	}
	if n == m.rosterSize {
		return nil
	}
	return m.rebuildLocked(ctx)
}

// Match resolves query against the nearest indexed identities. A degenerate
// query resolves to Unknown.
func (m *IndexedMatcher) Match(ctx context.Context, query []float32) (database.MatchResult, error) {
	if database.IsDegenerate(query) {
		m.logger.Warn("Degenerate query signature, treating as unknown", zap.Int("dim", len(query)))
		return Unknown(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureFresh(ctx); err != nil {
		return database.MatchResult{}, err
	}
	if m.index.Count() == 0 {
		return Unknown(), nil
	}

	candidates, _, err := m.index.Search(query, m.k)
	if err != nil {
		return database.MatchResult{}, fmt.Errorf("search index: %w", err)
	}

	// Re-score in roster enumeration order so ties resolve like the linear scan.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Identity.ID < candidates[j].Identity.ID
	})

	s := newScan(m.threshold)
	for _, c := range candidates {
		stored, err := m.signatures.Load(ctx, c.Identity.SignatureRef)
		if err != nil {
			return database.MatchResult{}, database.NewStorageError(
				fmt.Sprintf("load signature for %q", c.Identity.Name), err)
		}
		s.consider(c.Identity, query, stored, m.logger)
	}
	return s.result(), nil
}

// Size returns the number of indexed identities.
func (m *IndexedMatcher) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index.Count()
}
