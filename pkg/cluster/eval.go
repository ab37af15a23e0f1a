package cluster

import (
	"math"

	vecmath "github.com/Siddhant-K-code/recourse/pkg/math"
)

// Silhouette computes the mean silhouette coefficient over all samples using
// Euclidean distance. For each sample, a is the mean distance to others in
// its own cluster and b is the lowest mean distance to any other cluster;
// the coefficient is (b-a)/max(a,b). Samples in singleton clusters score 0.
func Silhouette(matrix [][]float32, assignments []int, k int) float64 {
	n := len(matrix)
	if n < 2 || k < 2 {
		return 0
	}

	counts := make([]int, k)
	for _, a := range assignments {
		counts[a]++
	}

	var total float64
	for i := 0; i < n; i++ {
		own := assignments[i]
		if counts[own] < 2 {
			continue
		}

		sums := make([]float64, k)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			d := math.Sqrt(vecmath.EuclideanDistance(matrix[i], matrix[j]))
			sums[assignments[j]] += d
		}

		a := sums[own] / float64(counts[own]-1)
		b := math.MaxFloat64
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			mean := sums[c] / float64(counts[c])
			if mean < b {
				b = mean
			}
		}
		if b == math.MaxFloat64 {
			continue
		}

		max := a
		if b > max {
			max = b
		}
		if max > 0 {
			total += (b - a) / max
		}
	}

	return total / float64(n)
}

// IntraClusterCosine computes the average pairwise cosine similarity within
// clusters: the mean over all clusters of at least two members of their mean
// upper-triangle similarity. Returns 0 when no cluster has two members.
func IntraClusterCosine(matrix [][]float32, assignments []int, k int) float64 {
	members := make([][]int, k)
	for i, a := range assignments {
		members[a] = append(members[a], i)
	}

	var clusterMeans []float64
	for _, m := range members {
		if len(m) < 2 {
			continue
		}
		var sum float64
		var pairs int
		for i := 0; i < len(m); i++ {
			for j := i + 1; j < len(m); j++ {
				sum += vecmath.CosineSimilarity(matrix[m[i]], matrix[m[j]])
				pairs++
			}
		}
		clusterMeans = append(clusterMeans, sum/float64(pairs))
	}

	if len(clusterMeans) == 0 {
		return 0
	}
	var total float64
	for _, v := range clusterMeans {
		total += v
	}
	return total / float64(len(clusterMeans))
}
