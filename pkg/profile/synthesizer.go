// Package profile synthesizes a user-preference vector from sparse, optional
// preference signals. The result lives in the same feature space as the item
// vectors so it can be compared to them with cosine similarity.
package profile

import (
	"strings"

	vecmath "github.com/Siddhant-K-code/recourse/pkg/math"
	"github.com/Siddhant-K-code/recourse/pkg/types"
)

// LowConfidenceWeight scales the profile when no course matches the stated
// preferences and the full catalog is used instead.
const LowConfidenceWeight = 0.5

// Request carries the optional preference signals. An empty liked-title
// list, an empty organization list, and an empty difficulty are all
// equivalent to "no constraint" and never an error.
type Request struct {
	Difficulty    string
	LikedTitles   []string
	Organizations []string

	// RatingBias in [0, 1] weights higher-rated pool members more heavily.
	RatingBias float64
}

// Synthesizer builds profiles against a fixed catalog and its precomputed
// feature matrix. Both are shared read-only; Synthesize allocates only
// per-request state.
type Synthesizer struct {
	courses []types.Course
	matrix  [][]float32
}

// NewSynthesizer returns a Synthesizer over the catalog and its feature
// matrix, which must be row-aligned.
func NewSynthesizer(courses []types.Course, matrix [][]float32) *Synthesizer {
	return &Synthesizer{courses: courses, matrix: matrix}
}

// Synthesize narrows the catalog to courses matching the request, averages
// their feature vectors (optionally rating-weighted), and L2-normalizes the
// result. A zero vector stays zero.
func (s *Synthesizer) Synthesize(req Request) []float32 {
	if len(s.courses) == 0 || len(s.matrix) == 0 {
		return nil
	}

	pool := s.narrow(req)

	// No matches at all: fall back to the full catalog with reduced
	// confidence so the profile signals "preferences not found".
	weight := 1.0
	if len(pool) == 0 {
		pool = allIndices(len(s.courses))
		weight = LowConfidenceWeight
	}

	dim := len(s.matrix[0])
	sum := make([]float32, dim)

	if req.RatingBias > 0 {
		ratings := make([]float64, len(pool))
		for i, idx := range pool {
			ratings[i] = s.courses[idx].Rating
		}
		norm := vecmath.MinMaxNormalize(ratings)
		for i, idx := range pool {
			vecmath.AccumulateScaled(sum, s.matrix[idx], 1+req.RatingBias*norm[i])
		}
	} else {
		for _, idx := range pool {
			vecmath.AccumulateScaled(sum, s.matrix[idx], 1)
		}
	}

	scale := weight / float64(len(pool))
	vecmath.ScaleVector(sum, float32(scale))
	vecmath.NormalizeInPlace(sum)
	return sum
}

// narrow applies the preference filters in order: difficulty (exact), liked
// titles (exact membership, then case-insensitive literal substring OR, then
// no narrowing), and organizations (only when at least one matches).
func (s *Synthesizer) narrow(req Request) []int {
	pool := allIndices(len(s.courses))

	if req.Difficulty != "" {
		pool = filter(pool, func(idx int) bool {
			return s.courses[idx].Difficulty == req.Difficulty
		})
	}

	if len(req.LikedTitles) > 0 {
		liked := make(map[string]bool, len(req.LikedTitles))
		for _, t := range req.LikedTitles {
			liked[t] = true
		}
		exact := filter(pool, func(idx int) bool {
			return liked[s.courses[idx].Title]
		})
		if len(exact) > 0 {
			pool = exact
		} else {
			// Literal substring matching, not pattern matching; liked
			// titles containing regex metacharacters must not surprise.
			lowered := make([]string, len(req.LikedTitles))
			for i, t := range req.LikedTitles {
				lowered[i] = strings.ToLower(t)
			}
			partial := filter(pool, func(idx int) bool {
				title := strings.ToLower(s.courses[idx].Title)
				for _, t := range lowered {
					if strings.Contains(title, t) {
						return true
					}
				}
				return false
			})
			if len(partial) > 0 {
				pool = partial
			}
		}
	}

	if len(req.Organizations) > 0 {
		orgs := make(map[string]bool, len(req.Organizations))
		for _, o := range req.Organizations {
			orgs[o] = true
		}
		matched := filter(pool, func(idx int) bool {
			return orgs[s.courses[idx].Organization]
		})
		if len(matched) > 0 {
			pool = matched
		}
	}

	return pool
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func filter(indices []int, keep func(int) bool) []int {
	var out []int
	for _, idx := range indices {
		if keep(idx) {
			out = append(out, idx)
		}
	}
	return out
}
