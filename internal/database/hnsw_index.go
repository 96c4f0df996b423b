package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// ErrIndexNotInitialized is returned by Search before anything has been indexed.
var ErrIndexNotInitialized = errors.New("index not initialized")

// IndexedSignature is one roster member with its loaded signature.
type IndexedSignature struct {
	Identity  Identity
	Signature []float32
}

// HNSWIndex wraps an HNSW graph over roster signatures, keyed by identity ID.
type HNSWIndex struct {
	graph *hnsw.Graph[int64]
	byID  map[int64]*IndexedSignature
	dim   int // dimension of indexed signatures, 0 while empty
	mu    sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		byID: make(map[int64]*IndexedSignature),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents. Degenerate signatures, and signatures
// whose dimension differs from the first indexed one, are not indexed.
func (h *HNSWIndex) Build(items []IndexedSignature) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.dim = 0
	h.byID = make(map[int64]*IndexedSignature, len(items))
	for i := range items {
		h.addLocked(&items[i])
	}
}

// Add indexes a single identity.
func (h *HNSWIndex) Add(item IndexedSignature) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(&item)
}

func (h *HNSWIndex) addLocked(item *IndexedSignature) {
	if IsDegenerate(item.Signature) {
		return
	}
	if h.graph == nil {
		h.graph = newGraph()
		h.dim = len(item.Signature)
	}
	if len(item.Signature) != h.dim {
		return
	}
	h.graph.Add(hnsw.MakeNode(item.Identity.ID, item.Signature))
	h.byID[item.Identity.ID] = item
}

// Search finds up to k nearest identities to the query.
// Returns the candidates and their cosine distances. A query of another
// dimension than the indexed signatures has no candidates.
func (h *HNSWIndex) Search(query []float32, k int) ([]IndexedSignature, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, ErrIndexNotInitialized
	}
	if len(query) != h.dim {
		return nil, nil, nil
	}

	neighbors := h.graph.Search(query, k)

	items := make([]IndexedSignature, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		item, ok := h.byID[n.Key]
		if !ok {
			continue
		}
		items = append(items, *item)
		distances = append(distances, CosineDistance(query, n.Value))
	}
	return items, distances, nil
}

// Dim returns the dimension of indexed signatures, 0 while empty.
func (h *HNSWIndex) Dim() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dim
}

// Count returns the number of indexed identities.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}
