// Package rank scores catalog items against a user profile, applies cluster
// and popularity boosts, filters already-seen titles, and attaches a
// human-readable explanation to every result.
package rank

import (
	"fmt"
	"sort"
	"strings"

	vecmath "github.com/Siddhant-K-code/recourse/pkg/math"
	"github.com/Siddhant-K-code/recourse/pkg/types"
)

// Boost weights. Cosine similarity remains the primary signal; the additive
// weights are deliberately small.
const (
	SameClusterBoost      = 1.2
	RatingBoostWeight     = 0.05
	EnrollmentBoostWeight = 0.03
)

// Explanation thresholds.
const (
	HighRatingThreshold  = 4.5
	PopularEnrollment    = 1_000_000
	FallbackExplanation  = "similar content and features"
)

// Candidate is one scorable catalog item: the course, its feature vector,
// its precomputed cluster id, and its parsed enrollment count.
type Candidate struct {
	Course     types.Course
	Vector     []float32
	Cluster    int
	Enrollment float64
}

// Options controls ranking and explanation building. PreferredDifficulty and
// PreferredOrganizations feed explanations only; the narrowing itself happens
// during profile synthesis.
type Options struct {
	Limit                  int
	ExcludeTitles          []string
	LikedTitles            []string
	PreferredDifficulty    string
	PreferredOrganizations []string
}

// Rank scores every candidate against the profile and returns at most
// Limit results in descending score order. Ties keep the original catalog
// order. An empty result is a valid outcome, not an error.
func Rank(candidates []Candidate, userProfile []float32, userCluster int, opts Options) []types.Recommendation {
	if len(candidates) == 0 {
		return nil
	}

	scores := make([]float64, len(candidates))
	ratings := make([]float64, len(candidates))
	enrollments := make([]float64, len(candidates))

	for i, c := range candidates {
		scores[i] = vecmath.CosineSimilarity(userProfile, c.Vector)
		if c.Cluster == userCluster {
			scores[i] *= SameClusterBoost
		}
		ratings[i] = c.Course.Rating
		enrollments[i] = c.Enrollment
	}

	// Secondary boosts are normalized over the full candidate set so that
	// exclusions below cannot shift the scale.
	ratingNorm := vecmath.MinMaxNormalize(ratings)
	enrollNorm := vecmath.MinMaxNormalize(enrollments)
	for i := range scores {
		scores[i] += RatingBoostWeight*ratingNorm[i] + EnrollmentBoostWeight*enrollNorm[i]
	}

	// Already-seen titles are never re-recommended.
	excluded := make(map[string]bool, len(opts.ExcludeTitles)+len(opts.LikedTitles))
	for _, t := range opts.ExcludeTitles {
		excluded[t] = true
	}
	for _, t := range opts.LikedTitles {
		excluded[t] = true
	}

	order := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if !excluded[c.Course.Title] {
			order = append(order, i)
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if opts.Limit > 0 && len(order) > opts.Limit {
		order = order[:opts.Limit]
	}

	results := make([]types.Recommendation, 0, len(order))
	for _, idx := range order {
		c := candidates[idx]
		results = append(results, types.Recommendation{
			Course:          c.Course,
			SimilarityScore: scores[idx],
			Cluster:         c.Cluster,
			Explanation:     explain(c, userCluster, opts),
		})
	}
	return results
}

// explain concatenates the reasons that hold for a result, in a fixed order,
// joined by "; ".
func explain(c Candidate, userCluster int, opts Options) string {
	var parts []string

	if c.Cluster == userCluster {
		parts = append(parts, "same cluster as your preferences")
	}
	if opts.PreferredDifficulty != "" && c.Course.Difficulty == opts.PreferredDifficulty {
		parts = append(parts, fmt.Sprintf("matches your %s difficulty preference", opts.PreferredDifficulty))
	}
	for _, org := range opts.PreferredOrganizations {
		if c.Course.Organization == org {
			parts = append(parts, fmt.Sprintf("from preferred organization: %s", org))
			break
		}
	}
	if c.Course.Rating >= HighRatingThreshold {
		parts = append(parts, "highly rated course")
	}
	if c.Enrollment >= PopularEnrollment {
		parts = append(parts, "popular course (1M+ enrollments)")
	}

	if len(parts) == 0 {
		return FallbackExplanation
	}
	return strings.Join(parts, "; ")
}
