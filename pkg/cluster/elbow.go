package cluster

import (
	"context"
	"fmt"

	"github.com/Siddhant-K-code/recourse/pkg/types"
)

// Elbow sweep bounds.
const (
	DefaultKMin = 2
	DefaultKMax = 15
)

// ElbowOptions configures the cluster-count sweep.
type ElbowOptions struct {
	KMin, KMax int

	// MaxIterations, Restarts, and Workers are forwarded to each candidate
	// fit; zero values take the package defaults.
	MaxIterations int
	Restarts      int
	Workers       int

	// Progress, when set, is invoked after each candidate k is evaluated.
	Progress func(k int)
}

// SelectK chooses the number of clusters by sweeping candidate counts and
// locating the sharpest bend in the inertia curve: the first difference of
// inertia across k, then the second difference (discrete curvature), taking
// the first occurrence of the maximum. This is a heuristic, not a guarantee
// of the "true" cluster count.
//
// The selected k is argmax(secondDiff) + kMin + 2, clamped to [kMin+1, kMax].
// With fewer than 3 candidates the sweep defaults to kMin+1.
func SelectK(ctx context.Context, matrix [][]float32, opts ElbowOptions) (int, []types.InertiaPoint, error) {
	kMin, kMax := opts.KMin, opts.KMax
	if kMin <= 0 {
		kMin = DefaultKMin
	}
	if kMax <= 0 {
		kMax = DefaultKMax
	}
	if kMax > len(matrix) {
		kMax = len(matrix)
	}
	if kMin > kMax {
		return 0, nil, fmt.Errorf("k range [%d, %d] is empty for %d samples", kMin, kMax, len(matrix))
	}

	curve := make([]types.InertiaPoint, 0, kMax-kMin+1)
	for k := kMin; k <= kMax; k++ {
		cfg := Config{
			K:             k,
			MaxIterations: opts.MaxIterations,
			Restarts:      opts.Restarts,
			Workers:       opts.Workers,
		}
		model, _, err := Fit(ctx, matrix, cfg)
		if err != nil {
			return 0, nil, fmt.Errorf("elbow sweep at k=%d: %w", k, err)
		}
		curve = append(curve, types.InertiaPoint{K: k, Inertia: model.Inertia})
		if opts.Progress != nil {
			opts.Progress(k)
		}
	}

	inertias := make([]float64, len(curve))
	for i, p := range curve {
		inertias[i] = p.Inertia
	}

	return selectFromCurve(inertias, kMin, kMax), curve, nil
}

// selectFromCurve applies the curvature heuristic to a raw inertia series
// whose first entry corresponds to kMin.
func selectFromCurve(inertias []float64, kMin, kMax int) int {
	if len(inertias) < 3 {
		k := kMin + 1
		if k > kMax {
			k = kMax
		}
		return k
	}

	firstDiff := make([]float64, len(inertias)-1)
	for i := range firstDiff {
		firstDiff[i] = inertias[i+1] - inertias[i]
	}

	secondDiff := make([]float64, len(firstDiff)-1)
	for i := range secondDiff {
		secondDiff[i] = firstDiff[i+1] - firstDiff[i]
	}

	argmax := 0
	for i, v := range secondDiff {
		if v > secondDiff[argmax] {
			argmax = i
		}
	}

	// Offset by kMin+2 to undo the double-diff index shift.
	k := argmax + kMin + 2
	if k < kMin+1 {
		k = kMin + 1
	}
	if k > kMax {
		k = kMax
	}
	return k
}
