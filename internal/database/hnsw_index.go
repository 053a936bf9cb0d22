package database

import (
	"errors"
	"math"
	"math/rand"
	"sync"

	"github.com/coder/hnsw"
)

// ReferenceIndex wraps the HNSW graph for nearest-reference search.
type ReferenceIndex struct {
	graph    *hnsw.Graph[int64]
	idToRef  map[int64]*StoredReference // Maps HNSW node ID to reference
	metric   string
	distance DistanceFunc
	mu       sync.RWMutex
}

// NewReferenceIndex creates a new empty index using the named metric.
func NewReferenceIndex(metric string) *ReferenceIndex {
	return &ReferenceIndex{
		idToRef:  make(map[int64]*StoredReference),
		metric:   metric,
		distance: Metric(metric),
	}
}

// newGraph creates a graph with a fixed seed so builds are reproducible.
func newGraph(metric string) *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1 / math.Log(HNSWMaxNeighbors) // mL = 1/ln(M)
	g.EfSearch = HNSWEfSearch
	g.Rng = rand.New(rand.NewSource(HNSWSeed)) //nolint:gosec // level assignment, not security
	if metric == MetricCosine {
		g.Distance = hnsw.CosineDistance
	} else {
		g.Distance = hnsw.EuclideanDistance
	}
	return g
}

// Build builds the index from a slice of references.
// References are added in slice order; callers pass them sorted.
func (h *ReferenceIndex) Build(refs []StoredReference) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.idToRef = make(map[int64]*StoredReference, len(refs))

	if len(refs) == 0 {
		h.graph = nil
		return nil
	}

	g := newGraph(h.metric)
	for i := range refs {
		ref := &refs[i]
		if len(ref.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(ref.ID, ref.Embedding))
		h.idToRef[ref.ID] = ref
	}

	h.graph = g
	return nil
}

// Search finds the k nearest references to the query embedding.
// Distances are recomputed exactly with the index metric.
func (h *ReferenceIndex) Search(query []float32, k int) ([]*StoredReference, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(query, k)

	refs := make([]*StoredReference, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		ref, ok := h.idToRef[n.Key]
		if !ok {
			continue
		}
		refs = append(refs, ref)
		distances = append(distances, h.distance(query, ref.Embedding))
	}

	return refs, distances, nil
}

// Count returns the number of indexed references.
func (h *ReferenceIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToRef)
}

// IsEmpty returns true if the index has no graph.
func (h *ReferenceIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil
}
