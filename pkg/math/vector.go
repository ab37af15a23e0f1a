// Package math provides the float32 vector primitives used by the feature,
// cluster, profile, and rank packages. Accumulation happens in float64 to
// limit rounding error; storage stays float32 to halve memory for the
// all-items feature matrix.
package math

import (
	"math"
)

// CosineSimilarity computes cosine similarity between two float32 vectors.
// Returns a value in [-1, 1] where 1 = identical direction. Empty or
// zero-magnitude input yields 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) != len(b) {
		// Use shorter length
		if len(a) > len(b) {
			a = a[:len(b)]
		} else {
			b = b[:len(a)]
		}
	}

	// Compute dot product and magnitudes in a single pass
	var dot, magA, magB float64
	n := len(a)

	// Process 4 elements at a time for better CPU pipelining
	i := 0
	for ; i <= n-4; i += 4 {
		dot += float64(a[i])*float64(b[i]) +
			float64(a[i+1])*float64(b[i+1]) +
			float64(a[i+2])*float64(b[i+2]) +
			float64(a[i+3])*float64(b[i+3])

		magA += float64(a[i])*float64(a[i]) +
			float64(a[i+1])*float64(a[i+1]) +
			float64(a[i+2])*float64(a[i+2]) +
			float64(a[i+3])*float64(a[i+3])

		magB += float64(b[i])*float64(b[i]) +
			float64(b[i+1])*float64(b[i+1]) +
			float64(b[i+2])*float64(b[i+2]) +
			float64(b[i+3])*float64(b[i+3])
	}

	// Handle remaining elements
	for ; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(magA * magB)
	if denom == 0 {
		return 0
	}

	similarity := dot / denom
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1.0 {
		similarity = 1.0
	} else if similarity < -1.0 {
		similarity = -1.0
	}

	return similarity
}

// EuclideanDistance computes L2 squared distance between two float32 vectors.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.MaxFloat64
	}

	var sum float64
	n := len(a)

	// Process 4 elements at a time
	i := 0
	for ; i <= n-4; i += 4 {
		d0 := float64(a[i]) - float64(b[i])
		d1 := float64(a[i+1]) - float64(b[i+1])
		d2 := float64(a[i+2]) - float64(b[i+2])
		d3 := float64(a[i+3]) - float64(b[i+3])
		sum += d0*d0 + d1*d1 + d2*d2 + d3*d3
	}

	for ; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return sum
}

// DotProduct computes inner product between two float32 vectors.
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var sum float64
	n := len(a)

	// Process 4 elements at a time
	i := 0
	for ; i <= n-4; i += 4 {
		sum += float64(a[i])*float64(b[i]) +
			float64(a[i+1])*float64(b[i+1]) +
			float64(a[i+2])*float64(b[i+2]) +
			float64(a[i+3])*float64(b[i+3])
	}

	for ; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}

// Norm returns the L2 norm of a vector.
func Norm(v []float32) float64 {
	return math.Sqrt(DotProduct(v, v))
}

// NormalizeInPlace normalizes a vector to unit length in-place.
// A zero vector is left untouched.
func NormalizeInPlace(v []float32) {
	if len(v) == 0 {
		return
	}

	mag := Norm(v)
	if mag == 0 {
		return
	}

	invMag := float32(1.0 / mag)
	for i := range v {
		v[i] *= invMag
	}
}

// ScaleVector multiplies all elements by a scalar in-place.
func ScaleVector(v []float32, scalar float32) {
	for i := range v {
		v[i] *= scalar
	}
}

// AccumulateScaled adds w*src to dst element-wise. dst and src must have
// equal length.
func AccumulateScaled(dst, src []float32, w float64) {
	for i := range dst {
		dst[i] += float32(float64(src[i]) * w)
	}
}

// MinMaxEpsilon guards min-max normalization against a constant series.
const MinMaxEpsilon = 1e-6

// MinMaxNormalize rescales values to [0, ~1] using (x-min)/(max-min+eps).
// Returns a new slice; the input is not modified.
func MinMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo + MinMaxEpsilon
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}
