package utils

import "math"

// NormalizeL2 scales x in place to unit L2 norm. Every embedder returns unit vectors so
// squared L2 distance between any two of them is 2 - 2*cosine, and the index ranks by
// cosine similarity without storing norms. A zero vector is left unchanged.
func NormalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}
