package recommender

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Siddhant-K-code/recourse/pkg/artifact"
	"github.com/Siddhant-K-code/recourse/pkg/cluster"
	"github.com/Siddhant-K-code/recourse/pkg/feature"
	"github.com/Siddhant-K-code/recourse/pkg/telemetry"
	"github.com/Siddhant-K-code/recourse/pkg/types"
)

func testService(t *testing.T) *Service {
	t.Helper()

	courses := []types.Course{
		{Title: "Beginner Python Programming", Organization: "IBM", CertificateType: "Course", Rating: 4.5, Difficulty: "Beginner", StudentsEnrolled: "1.2M"},
		{Title: "Beginner Python Basics", Organization: "IBM", CertificateType: "Course", Rating: 4.7, Difficulty: "Beginner", StudentsEnrolled: "900K"},
		{Title: "Python Data Structures", Organization: "University of Michigan", CertificateType: "Course", Rating: 4.9, Difficulty: "Beginner", StudentsEnrolled: "2.1M"},
		{Title: "Advanced Machine Learning", Organization: "HSE University", CertificateType: "Specialization", Rating: 4.5, Difficulty: "Advanced", StudentsEnrolled: "250K"},
		{Title: "Advanced Deep Learning Methods", Organization: "HSE University", CertificateType: "Specialization", Rating: 4.4, Difficulty: "Advanced", StudentsEnrolled: "120K"},
		{Title: "Advanced Neural Networks", Organization: "Stanford University", CertificateType: "Course", Rating: 4.8, Difficulty: "Advanced", StudentsEnrolled: "600K"},
	}

	b := feature.NewBuilder()
	matrix, state, err := b.FitTransform(courses)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	model, assignments, err := cluster.Fit(context.Background(), matrix, cluster.DefaultConfig(2))
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	svc, err := New(&artifact.Bundle{
		RunID:    "test-run",
		State:    state,
		Model:    model,
		Courses:  courses,
		Clusters: assignments,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc
}

// TestRecommend_SmallCatalogRanking pins the full pipeline on a tiny
// catalog where the correct answer can be worked out by hand. Two of the
// three courses are Beginner; the highly rated, heavily enrolled one must
// come first and carry both boost phrases in its explanation.
func TestRecommend_SmallCatalogRanking(t *testing.T) {
	courses := []types.Course{
		{Title: "Data Science Fundamentals", Organization: "Galileo University", CertificateType: "Course", Rating: 5.0, Difficulty: "Beginner", StudentsEnrolled: "2M"},
		{Title: "Intro to Spreadsheets", Organization: "Startup Academy", CertificateType: "Course", Rating: 3.0, Difficulty: "Beginner", StudentsEnrolled: "100"},
		{Title: "Compiler Construction", Organization: "Galileo University", CertificateType: "Course", Rating: 4.0, Difficulty: "Advanced", StudentsEnrolled: "500K"},
	}

	b := feature.NewBuilder()
	matrix, state, err := b.FitTransform(courses)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	model, assignments, err := cluster.Fit(context.Background(), matrix, cluster.DefaultConfig(2))
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	svc, err := New(&artifact.Bundle{
		RunID:    "small-catalog",
		State:    state,
		Model:    model,
		Courses:  courses,
		Clusters: assignments,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := svc.Recommend(context.Background(), Request{
		Difficulty: "Beginner",
		Limit:      2,
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	want := []string{"Data Science Fundamentals", "Intro to Spreadsheets"}
	if len(resp.Recommendations) != len(want) {
		t.Fatalf("got %d recommendations, want %d", len(resp.Recommendations), len(want))
	}
	for i, title := range want {
		if got := resp.Recommendations[i].Title; got != title {
			t.Errorf("recommendation[%d] = %q, want %q", i, got, title)
		}
	}

	expl := resp.Recommendations[0].Explanation
	if !strings.Contains(expl, "highly rated course") {
		t.Errorf("explanation %q missing the rating phrase", expl)
	}
	if !strings.Contains(expl, "popular course (1M+ enrollments)") {
		t.Errorf("explanation %q missing the popularity phrase", expl)
	}
}

func TestRecommend_WithTracer(t *testing.T) {
	svc := testService(t)

	tracer, err := telemetry.Init(context.Background(), telemetry.DefaultConfig())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	svc.SetTracer(tracer)
	svc.SetTracer(nil) // ignored, provider stays set

	resp, err := svc.Recommend(context.Background(), Request{Difficulty: "Beginner"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Recommendations) == 0 {
		t.Error("no recommendations returned with tracing enabled")
	}
}

func TestRecommend(t *testing.T) {
	svc := testService(t)

	resp, err := svc.Recommend(context.Background(), Request{
		LikedCourses: []string{"Beginner Python Programming"},
		Difficulty:   "Beginner",
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if resp.TotalCourses != 6 {
		t.Errorf("TotalCourses = %d, want 6", resp.TotalCourses)
	}
	if len(resp.Recommendations) == 0 {
		t.Fatal("no recommendations returned")
	}

	// The liked course itself never comes back
	for _, rec := range resp.Recommendations {
		if rec.Title == "Beginner Python Programming" {
			t.Error("liked course appeared in recommendations")
		}
	}

	// A sibling beginner python course should rank near the top
	top := resp.Recommendations[0]
	if top.Difficulty != "Beginner" {
		t.Errorf("top recommendation difficulty = %q, want Beginner", top.Difficulty)
	}
	if top.Explanation == "" {
		t.Error("top recommendation missing explanation")
	}

	// Scores descend
	for i := 1; i < len(resp.Recommendations); i++ {
		if resp.Recommendations[i].SimilarityScore > resp.Recommendations[i-1].SimilarityScore {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestRecommend_Validation(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"bad difficulty", Request{Difficulty: "Expert"}, ErrInvalidDifficulty},
		{"negative limit", Request{Limit: -1}, ErrInvalidLimit},
		{"limit too large", Request{Limit: MaxLimit + 1}, ErrInvalidLimit},
		{"negative bias", Request{RatingBias: -0.1}, ErrInvalidRatingBias},
		{"bias above one", Request{RatingBias: 1.5}, ErrInvalidRatingBias},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Recommend(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Recommend() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecommend_DefaultLimit(t *testing.T) {
	svc := testService(t)

	resp, err := svc.Recommend(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Recommendations) > DefaultLimit {
		t.Errorf("results = %d, want <= %d", len(resp.Recommendations), DefaultLimit)
	}
}

func TestRecommend_ExcludeTitles(t *testing.T) {
	svc := testService(t)

	resp, err := svc.Recommend(context.Background(), Request{
		ExcludeTitles: []string{"Python Data Structures"},
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for _, rec := range resp.Recommendations {
		if rec.Title == "Python Data Structures" {
			t.Error("excluded title appeared in recommendations")
		}
	}
}

func TestRecommend_CancelledContext(t *testing.T) {
	svc := testService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Recommend(ctx, Request{}); err == nil {
		t.Error("expected context error")
	}
}

func TestRecommend_NilService(t *testing.T) {
	var svc *Service
	_, err := svc.Recommend(context.Background(), Request{})
	if !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Recommend() error = %v, want ErrNotLoaded", err)
	}
}

func TestClusterInfo(t *testing.T) {
	svc := testService(t)

	info, err := svc.ClusterInfo(0)
	if err != nil {
		t.Fatalf("ClusterInfo() error = %v", err)
	}
	if info.ClusterID != 0 {
		t.Errorf("ClusterID = %d, want 0", info.ClusterID)
	}
	if info.Count == 0 {
		t.Error("cluster 0 reported empty")
	}
	if info.AvgRating <= 0 || info.AvgRating > 5 {
		t.Errorf("AvgRating = %v, want within (0, 5]", info.AvgRating)
	}
	if len(info.SampleCourses) == 0 {
		t.Error("no sample courses")
	}
	if len(info.TopOrganizations) == 0 {
		t.Error("no top organizations")
	}

	// Organization counts descend
	for i := 1; i < len(info.TopOrganizations); i++ {
		if info.TopOrganizations[i].Count > info.TopOrganizations[i-1].Count {
			t.Errorf("organization counts not descending at %d", i)
		}
	}
}

func TestClusterInfo_InvalidID(t *testing.T) {
	svc := testService(t)

	for _, id := range []int{-1, svc.K()} {
		if _, err := svc.ClusterInfo(id); !errors.Is(err, ErrInvalidCluster) {
			t.Errorf("ClusterInfo(%d) error = %v, want ErrInvalidCluster", id, err)
		}
	}
}

func TestClusters(t *testing.T) {
	svc := testService(t)

	infos, err := svc.Clusters()
	if err != nil {
		t.Fatalf("Clusters() error = %v", err)
	}
	if len(infos) != svc.K() {
		t.Fatalf("clusters = %d, want %d", len(infos), svc.K())
	}

	total := 0
	for i, info := range infos {
		if info.ClusterID != i {
			t.Errorf("infos[%d].ClusterID = %d, want %d", i, info.ClusterID, i)
		}
		total += info.Count
	}
	if total != 6 {
		t.Errorf("cluster membership sums to %d, want 6", total)
	}
}

func TestListCourses(t *testing.T) {
	svc := testService(t)

	page, err := svc.ListCourses(1, 4)
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	if len(page.Courses) != 4 {
		t.Errorf("page 1 size = %d, want 4", len(page.Courses))
	}
	if page.Total != 6 {
		t.Errorf("Total = %d, want 6", page.Total)
	}

	page2, err := svc.ListCourses(2, 4)
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	if len(page2.Courses) != 2 {
		t.Errorf("page 2 size = %d, want 2", len(page2.Courses))
	}

	// Past the end is an empty page, not an error
	page3, err := svc.ListCourses(3, 4)
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	if len(page3.Courses) != 0 {
		t.Errorf("page 3 size = %d, want 0", len(page3.Courses))
	}
}

func TestListCourses_Validation(t *testing.T) {
	svc := testService(t)

	for _, tc := range []struct{ page, size int }{
		{0, 10}, {-1, 10}, {1, 0}, {1, 101},
	} {
		if _, err := svc.ListCourses(tc.page, tc.size); !errors.Is(err, ErrInvalidPage) {
			t.Errorf("ListCourses(%d, %d) error = %v, want ErrInvalidPage", tc.page, tc.size, err)
		}
	}
}

func TestHealth(t *testing.T) {
	svc := testService(t)

	h := svc.Health()
	if h.Status != "healthy" || !h.ModelLoaded {
		t.Errorf("Health() = %+v, want healthy", h)
	}
	if h.CourseCount != 6 {
		t.Errorf("CourseCount = %d, want 6", h.CourseCount)
	}
	if h.K != 2 {
		t.Errorf("K = %d, want 2", h.K)
	}
	if h.RunID != "test-run" {
		t.Errorf("RunID = %q, want test-run", h.RunID)
	}
}

func TestHealth_NilService(t *testing.T) {
	var svc *Service
	h := svc.Health()
	if h.Status != "degraded" || h.ModelLoaded {
		t.Errorf("Health() = %+v, want degraded", h)
	}
	if svc.K() != 0 {
		t.Errorf("K() = %d, want 0", svc.K())
	}
}

func TestNew_MisalignedBundle(t *testing.T) {
	svc := testService(t)

	_, err := New(&artifact.Bundle{
		RunID:    "r",
		State:    &feature.State{},
		Courses:  svc.courses,
		Clusters: []int{0},
	})
	if err == nil {
		t.Error("expected error for misaligned clusters")
	}
}
