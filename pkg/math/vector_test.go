package math

import (
	stdmath "math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return stdmath.Abs(a-b) <= tol
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"scaled copy", []float32{1, 2, 3, 4, 5}, []float32{2, 4, 6, 8, 10}, 1.0},
		{"empty a", nil, []float32{1, 2}, 0.0},
		{"empty b", []float32{1, 2}, nil, 0.0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if !approxEqual(got, tt.want, 1e-6) {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	// Longer vector is truncated to the shorter length
	a := []float32{1, 0, 0, 0, 0}
	b := []float32{1, 0}
	if got := CosineSimilarity(a, b); !approxEqual(got, 1.0, 1e-6) {
		t.Errorf("CosineSimilarity() = %v, want 1.0", got)
	}
}

func TestEuclideanDistance(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 2}
	// Squared L2 distance, not the root
	if got := EuclideanDistance(a, b); !approxEqual(got, 9.0, 1e-6) {
		t.Errorf("EuclideanDistance() = %v, want 9.0", got)
	}

	if got := EuclideanDistance(a, a); got != 0 {
		t.Errorf("EuclideanDistance(a, a) = %v, want 0", got)
	}

	if got := EuclideanDistance([]float32{1}, []float32{1, 2}); got != stdmath.MaxFloat64 {
		t.Errorf("mismatched lengths = %v, want MaxFloat64", got)
	}
}

func TestDotProduct(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5}
	b := []float32{5, 4, 3, 2, 1}
	if got := DotProduct(a, b); !approxEqual(got, 35.0, 1e-6) {
		t.Errorf("DotProduct() = %v, want 35.0", got)
	}
}

func TestNorm(t *testing.T) {
	if got := Norm([]float32{3, 4}); !approxEqual(got, 5.0, 1e-6) {
		t.Errorf("Norm() = %v, want 5.0", got)
	}
}

func TestNormalizeInPlace(t *testing.T) {
	v := []float32{3, 4, 0, 0, 0}
	NormalizeInPlace(v)
	if got := Norm(v); !approxEqual(got, 1.0, 1e-5) {
		t.Errorf("norm after normalize = %v, want 1.0", got)
	}

	// Zero vector stays untouched
	zero := []float32{0, 0, 0}
	NormalizeInPlace(zero)
	for i, x := range zero {
		if x != 0 {
			t.Errorf("zero[%d] = %v, want 0", i, x)
		}
	}
}

func TestScaleVector(t *testing.T) {
	v := []float32{1, 2, 3}
	ScaleVector(v, 0.5)
	want := []float32{0.5, 1, 1.5}
	for i := range v {
		if v[i] != want[i] {
			t.Errorf("v[%d] = %v, want %v", i, v[i], want[i])
		}
	}
}

func TestAccumulateScaled(t *testing.T) {
	dst := []float32{1, 1, 1}
	src := []float32{2, 4, 6}
	AccumulateScaled(dst, src, 0.5)
	want := []float32{2, 3, 4}
	for i := range dst {
		if !approxEqual(float64(dst[i]), float64(want[i]), 1e-6) {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestMinMaxNormalize(t *testing.T) {
	out := MinMaxNormalize([]float64{10, 20, 30})
	if !approxEqual(out[0], 0, 1e-6) {
		t.Errorf("out[0] = %v, want 0", out[0])
	}
	if out[2] >= 1.0 || !approxEqual(out[2], 1.0, 1e-4) {
		t.Errorf("out[2] = %v, want just under 1.0", out[2])
	}
	if out[0] >= out[1] || out[1] >= out[2] {
		t.Errorf("order not preserved: %v", out)
	}
}

func TestMinMaxNormalize_Constant(t *testing.T) {
	// Epsilon keeps a constant series from dividing by zero
	out := MinMaxNormalize([]float64{5, 5, 5})
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0", i, v)
		}
	}
}

func TestMinMaxNormalize_Empty(t *testing.T) {
	if out := MinMaxNormalize(nil); len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}

func BenchmarkCosineSimilarity(b *testing.B) {
	a := make([]float32, 64)
	c := make([]float32, 64)
	for i := range a {
		a[i] = float32(i)
		c[i] = float32(64 - i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CosineSimilarity(a, c)
	}
}
