// Package cluster implements the K-Means model that partitions the course
// feature space, the elbow heuristic that picks the cluster count, and the
// training-time evaluation metrics. Fits are deterministic: the seed is
// pinned, so repeated fits on identical data produce identical assignments.
package cluster

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	vecmath "github.com/Siddhant-K-code/recourse/pkg/math"
)

// Seed is pinned so training runs are reproducible.
const Seed int64 = 42

// Defaults for the Lloyd iteration.
const (
	DefaultMaxIterations = 300
	DefaultRestarts      = 10
)

// Config holds K-Means fit parameters.
type Config struct {
	// K is the number of clusters.
	K int

	// MaxIterations limits Lloyd iterations per restart. Default: 300.
	MaxIterations int

	// Restarts is the number of independent initializations; the fit with
	// the lowest inertia wins. Default: 10.
	Restarts int

	// Workers is the number of parallel workers for the assignment step.
	// Default: NumCPU.
	Workers int
}

// DefaultConfig returns fit parameters for k clusters.
func DefaultConfig(k int) Config {
	return Config{
		K:             k,
		MaxIterations: DefaultMaxIterations,
		Restarts:      DefaultRestarts,
		Workers:       runtime.NumCPU(),
	}
}

func (c *Config) normalize(n int) error {
	if c.K < 1 {
		return fmt.Errorf("k must be positive, got %d", c.K)
	}
	if c.K > n {
		return fmt.Errorf("k=%d exceeds sample count %d", c.K, n)
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Restarts <= 0 {
		c.Restarts = DefaultRestarts
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}

// Model is a trained K-Means model. Assignment for unseen vectors uses
// nearest-centroid distance and never retrains.
type Model struct {
	K         int         `json:"k"`
	Centroids [][]float32 `json:"centroids"`

	// Inertia is the total within-cluster squared distance of the
	// winning fit.
	Inertia float64 `json:"inertia"`
}

// Fit trains a model on the feature matrix. The fit restarts Restarts times
// from seeded initializations and keeps the lowest-inertia result.
func Fit(ctx context.Context, matrix [][]float32, cfg Config) (*Model, []int, error) {
	n := len(matrix)
	if n == 0 {
		return nil, nil, fmt.Errorf("empty feature matrix")
	}
	if err := cfg.normalize(n); err != nil {
		return nil, nil, err
	}

	dim := len(matrix[0])
	rng := rand.New(rand.NewSource(Seed))

	var best *Model
	var bestAssign []int

	for restart := 0; restart < cfg.Restarts; restart++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		centroids := initCentroids(rng, matrix, cfg.K, dim)
		assignments := make([]int, n)

		for iter := 0; iter < cfg.MaxIterations; iter++ {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			default:
			}

			changed := assignConcurrent(matrix, centroids, assignments, cfg.Workers)
			if !changed && iter > 0 {
				break
			}
			updateCentroids(matrix, assignments, centroids, cfg.K, dim)
		}

		inertia := totalInertia(matrix, centroids, assignments)
		if best == nil || inertia < best.Inertia {
			best = &Model{K: cfg.K, Centroids: centroids, Inertia: inertia}
			bestAssign = append([]int(nil), assignments...)
		}
	}

	return best, bestAssign, nil
}

// Assign returns the id of the nearest centroid for a single vector.
func (m *Model) Assign(vec []float32) int {
	minDist := math.MaxFloat64
	minIdx := 0
	for i, c := range m.Centroids {
		dist := vecmath.EuclideanDistance(vec, c)
		if dist < minDist {
			minDist = dist
			minIdx = i
		}
	}
	return minIdx
}

// AssignAll assigns every row of the matrix to its nearest centroid.
func (m *Model) AssignAll(matrix [][]float32) []int {
	assignments := make([]int, len(matrix))
	assignConcurrent(matrix, m.Centroids, assignments, runtime.NumCPU())
	return assignments
}

// initCentroids selects k distinct rows as initial centroids.
func initCentroids(rng *rand.Rand, matrix [][]float32, k, dim int) [][]float32 {
	centroids := make([][]float32, k)
	perm := rng.Perm(len(matrix))
	for i := 0; i < k; i++ {
		centroids[i] = make([]float32, dim)
		copy(centroids[i], matrix[perm[i]])
	}
	return centroids
}

// assignConcurrent assigns each row to its nearest centroid in parallel.
// Returns true if any assignment changed.
func assignConcurrent(matrix [][]float32, centroids [][]float32, assignments []int, workers int) bool {
	n := len(matrix)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers
	var wg sync.WaitGroup
	changedFlags := make([]bool, workers)

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(workerID, start, end int) {
			defer wg.Done()
			changed := false

			for i := start; i < end; i++ {
				nearest := nearestCentroid(matrix[i], centroids)
				if assignments[i] != nearest {
					assignments[i] = nearest
					changed = true
				}
			}

			changedFlags[workerID] = changed
		}(w, start, end)
	}

	wg.Wait()

	for _, c := range changedFlags {
		if c {
			return true
		}
	}
	return false
}

func nearestCentroid(vec []float32, centroids [][]float32) int {
	minDist := math.MaxFloat64
	minIdx := 0
	for i, c := range centroids {
		dist := vecmath.EuclideanDistance(vec, c)
		if dist < minDist {
			minDist = dist
			minIdx = i
		}
	}
	return minIdx
}

// updateCentroids recalculates centroids as the mean of assigned rows.
// An empty cluster keeps its previous centroid.
func updateCentroids(matrix [][]float32, assignments []int, centroids [][]float32, k, dim int) {
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}

	for rowIdx, clusterIdx := range assignments {
		counts[clusterIdx]++
		for d := 0; d < dim; d++ {
			sums[clusterIdx][d] += float64(matrix[rowIdx][d])
		}
	}

	for i := 0; i < k; i++ {
		if counts[i] == 0 {
			continue
		}
		invCount := 1.0 / float64(counts[i])
		for d := 0; d < dim; d++ {
			centroids[i][d] = float32(sums[i][d] * invCount)
		}
	}
}

// totalInertia sums squared distances from each row to its centroid.
func totalInertia(matrix [][]float32, centroids [][]float32, assignments []int) float64 {
	var total float64
	for i, a := range assignments {
		total += vecmath.EuclideanDistance(matrix[i], centroids[a])
	}
	return total
}
