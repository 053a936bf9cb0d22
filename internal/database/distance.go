package database

import "math"

// DistanceFunc computes a distance between two embeddings; lower is more similar.
type DistanceFunc func(a, b []float32) float64

// EuclideanDistance computes the L2 distance between two vectors.
// Returns +Inf for mismatched or empty input.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// EuclideanDistanceWithin computes the L2 distance between a and b unless it
// exceeds bound, in which case it stops early and reports false. When it
// reports true the distance equals EuclideanDistance(a, b).
func EuclideanDistanceWithin(a, b []float32, bound float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1), math.IsInf(bound, 1)
	}

	// Slack keeps a distance equal to bound from being cut by rounding.
	limit := bound * bound * (1 + 1e-9)
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
		if sum > limit {
			return math.Inf(1), false
		}
	}
	dist := math.Sqrt(sum)
	return dist, dist <= bound
}

// CosineDistance computes the cosine distance between two vectors
// Returns a value between 0 (identical) and 2 (opposite)
// Cosine distance = 1 - cosine similarity
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0 // Maximum distance for zero vectors
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// Metric returns the distance function registered under name.
// Unknown names fall back to Euclidean distance.
func Metric(name string) DistanceFunc {
	if name == MetricCosine {
		return CosineDistance
	}
	return EuclideanDistance
}
