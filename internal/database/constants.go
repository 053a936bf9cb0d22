package database

// Distance metric names accepted by Metric and MATCH_METRIC.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

// HNSW index parameters for 128-dim face descriptors
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 200

	// HNSWSearchK is how many candidates a query asks the graph for.
	HNSWSearchK = 64

	// HNSWSeed seeds level assignment so that rebuilding from the same profile
	// yields the same graph.
	HNSWSeed = 42
)
