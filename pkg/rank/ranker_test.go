package rank

import (
	"strings"
	"testing"

	"github.com/Siddhant-K-code/recourse/pkg/types"
)

func testCandidates() []Candidate {
	return []Candidate{
		{
			Course:     types.Course{Title: "Python Basics", Organization: "IBM", Rating: 4.2, Difficulty: "Beginner"},
			Vector:     []float32{1, 0, 0},
			Cluster:    0,
			Enrollment: 500_000,
		},
		{
			Course:     types.Course{Title: "Python for Data Science", Organization: "IBM", Rating: 4.7, Difficulty: "Beginner"},
			Vector:     []float32{0.9, 0.1, 0},
			Cluster:    0,
			Enrollment: 1_500_000,
		},
		{
			Course:     types.Course{Title: "Machine Learning", Organization: "Stanford University", Rating: 4.9, Difficulty: "Intermediate"},
			Vector:     []float32{0, 1, 0},
			Cluster:    1,
			Enrollment: 3_800_000,
		},
		{
			Course:     types.Course{Title: "Art History", Organization: "MoMA", Rating: 3.9, Difficulty: "Mixed"},
			Vector:     []float32{0, 0, 1},
			Cluster:    2,
			Enrollment: 20_000,
		},
	}
}

func TestRank_OrderedByScore(t *testing.T) {
	candidates := testCandidates()
	profile := []float32{1, 0, 0}

	results := Rank(candidates, profile, 0, Options{Limit: 10})
	if len(results) != len(candidates) {
		t.Fatalf("results = %d, want %d", len(results), len(candidates))
	}

	for i := 1; i < len(results); i++ {
		if results[i].SimilarityScore > results[i-1].SimilarityScore {
			t.Errorf("results out of order at %d: %v > %v",
				i, results[i].SimilarityScore, results[i-1].SimilarityScore)
		}
	}

	if results[0].Title != "Python Basics" && results[0].Title != "Python for Data Science" {
		t.Errorf("top result = %q, want a python course", results[0].Title)
	}
}

func TestRank_SameClusterBoost(t *testing.T) {
	// Two identical candidates in different clusters; the one sharing the
	// user's cluster must outrank the other
	candidates := []Candidate{
		{Course: types.Course{Title: "A", Rating: 4.0}, Vector: []float32{1, 0}, Cluster: 0},
		{Course: types.Course{Title: "B", Rating: 4.0}, Vector: []float32{1, 0}, Cluster: 1},
	}
	profile := []float32{1, 0}

	results := Rank(candidates, profile, 1, Options{})
	if results[0].Title != "B" {
		t.Errorf("top result = %q, want same-cluster candidate B", results[0].Title)
	}
	if results[0].SimilarityScore <= results[1].SimilarityScore {
		t.Errorf("boosted score %v not above unboosted %v",
			results[0].SimilarityScore, results[1].SimilarityScore)
	}
}

func TestRank_Limit(t *testing.T) {
	results := Rank(testCandidates(), []float32{1, 0, 0}, 0, Options{Limit: 2})
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
}

func TestRank_ExcludesTitles(t *testing.T) {
	candidates := testCandidates()
	profile := []float32{1, 0, 0}

	results := Rank(candidates, profile, 0, Options{
		ExcludeTitles: []string{"Python Basics"},
		LikedTitles:   []string{"Python for Data Science"},
	})

	for _, r := range results {
		if r.Title == "Python Basics" || r.Title == "Python for Data Science" {
			t.Errorf("excluded title %q appeared in results", r.Title)
		}
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2 after exclusions", len(results))
	}
}

func TestRank_Empty(t *testing.T) {
	if got := Rank(nil, []float32{1}, 0, Options{}); got != nil {
		t.Errorf("Rank(nil) = %v, want nil", got)
	}

	// Excluding everything yields an empty, non-error result
	candidates := testCandidates()
	all := make([]string, len(candidates))
	for i, c := range candidates {
		all[i] = c.Course.Title
	}
	if got := Rank(candidates, []float32{1, 0, 0}, 0, Options{ExcludeTitles: all}); len(got) != 0 {
		t.Errorf("Rank with all excluded = %d results, want 0", len(got))
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		name        string
		candidate   Candidate
		userCluster int
		opts        Options
		want        []string
	}{
		{
			name: "same cluster",
			candidate: Candidate{
				Course:  types.Course{Title: "A", Rating: 4.0},
				Cluster: 2,
			},
			userCluster: 2,
			want:        []string{"same cluster as your preferences"},
		},
		{
			name: "difficulty and rating",
			candidate: Candidate{
				Course: types.Course{Title: "A", Rating: 4.8, Difficulty: "Beginner"},
			},
			userCluster: 1,
			opts:        Options{PreferredDifficulty: "Beginner"},
			want: []string{
				"matches your Beginner difficulty preference",
				"highly rated course",
			},
		},
		{
			name: "organization and popularity",
			candidate: Candidate{
				Course:     types.Course{Title: "A", Organization: "IBM", Rating: 4.0},
				Enrollment: 2_000_000,
			},
			userCluster: 1,
			opts:        Options{PreferredOrganizations: []string{"IBM"}},
			want: []string{
				"from preferred organization: IBM",
				"popular course (1M+ enrollments)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := explain(tt.candidate, tt.userCluster, tt.opts)
			for _, part := range tt.want {
				if !strings.Contains(got, part) {
					t.Errorf("explanation %q missing %q", got, part)
				}
			}
		})
	}
}

func TestExplain_Fallback(t *testing.T) {
	c := Candidate{
		Course:  types.Course{Title: "A", Rating: 3.0},
		Cluster: 5,
	}
	got := explain(c, 1, Options{})
	if got != FallbackExplanation {
		t.Errorf("explanation = %q, want %q", got, FallbackExplanation)
	}
}

func TestExplain_JoinsWithSemicolon(t *testing.T) {
	c := Candidate{
		Course:     types.Course{Title: "A", Rating: 4.9},
		Cluster:    0,
		Enrollment: 5_000_000,
	}
	got := explain(c, 0, Options{})
	if !strings.Contains(got, "; ") {
		t.Errorf("multi-reason explanation %q not joined with semicolons", got)
	}
}
