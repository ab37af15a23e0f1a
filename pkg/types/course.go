package types

// Difficulty levels recognized in the catalog.
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
	DifficultyMixed        = "Mixed"
)

// DifficultyLevels returns the recognized difficulty labels in display order.
func DifficultyLevels() []string {
	return []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyMixed}
}

// ValidDifficulty reports whether s is one of the four recognized levels.
func ValidDifficulty(s string) bool {
	switch s {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyMixed:
		return true
	}
	return false
}

// Course is one catalog entry. The title acts as the natural key.
// Courses are immutable once loaded from the catalog table.
type Course struct {
	Title            string  `json:"course_title"`
	Organization     string  `json:"course_organization"`
	CertificateType  string  `json:"course_certificate_type"`
	Rating           float64 `json:"course_rating"`
	Difficulty       string  `json:"course_difficulty"`
	StudentsEnrolled string  `json:"course_students_enrolled"` // human-readable magnitude, e.g. "1.2M", "950K", "500"
}

// Recommendation is a single ranked result. Produced fresh per request.
// SimilarityScore is not bounded to [0,1] after boosting.
type Recommendation struct {
	Course
	SimilarityScore float64 `json:"similarity_score"`
	Cluster         int     `json:"cluster"`
	Explanation     string  `json:"explanation"`
}

// OrganizationCount pairs an organization with its membership count.
type OrganizationCount struct {
	Organization string `json:"organization"`
	Count        int    `json:"count"`
}

// ClusterInfo summarizes a cluster's membership statistics.
type ClusterInfo struct {
	ClusterID              int                 `json:"cluster_id"`
	Count                  int                 `json:"n_courses"`
	AvgRating              float64             `json:"avg_rating"`
	DifficultyDistribution map[string]int      `json:"difficulty_distribution"`
	TopOrganizations       []OrganizationCount `json:"top_organizations"`
	SampleCourses          []string            `json:"sample_courses"`
}

// InertiaPoint is one entry of the inertia-by-k sweep.
type InertiaPoint struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// TrainingMetrics is the evaluation artifact written once per training run.
// Informational only; serving never reads it.
type TrainingMetrics struct {
	SelectedK              int            `json:"optimal_k"`
	SilhouetteScore        float64        `json:"silhouette_score"`
	IntraClusterSimilarity float64        `json:"intra_cluster_similarity"`
	SampleCount            int            `json:"n_samples"`
	FeatureCount           int            `json:"n_features"`
	InertiaByK             []InertiaPoint `json:"inertia_by_k,omitempty"`
}
