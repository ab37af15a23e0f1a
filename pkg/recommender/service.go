// Package recommender is the serving core: it holds one trained model in
// memory and answers recommendation, cluster and catalog queries against it.
// A Service is built once from a loaded artifact bundle and is safe for
// concurrent use; all of its state is read-only after construction.
package recommender

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Siddhant-K-code/recourse/pkg/artifact"
	"github.com/Siddhant-K-code/recourse/pkg/cluster"
	"github.com/Siddhant-K-code/recourse/pkg/feature"
	"github.com/Siddhant-K-code/recourse/pkg/profile"
	"github.com/Siddhant-K-code/recourse/pkg/rank"
	"github.com/Siddhant-K-code/recourse/pkg/telemetry"
	"github.com/Siddhant-K-code/recourse/pkg/types"
)

// Request validation errors. The HTTP layer maps these to 4xx responses.
var (
	ErrNotLoaded         = errors.New("no trained model loaded")
	ErrInvalidDifficulty = errors.New("invalid difficulty level")
	ErrInvalidLimit      = errors.New("limit out of range")
	ErrInvalidRatingBias = errors.New("rating bias out of range")
	ErrInvalidCluster    = errors.New("cluster id out of range")
	ErrInvalidPage       = errors.New("page out of range")
)

// Recommendation limits.
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Cluster summary limits.
const (
	topOrganizationCount = 5
	sampleCourseCount    = 10
)

// Request describes one user's preferences.
type Request struct {
	Difficulty    string   // one of the catalog levels, or empty
	LikedCourses  []string // exact titles, or free-text fragments
	Organizations []string
	RatingBias    float64 // 0 disables, 1 weighs fully by rating
	ExcludeTitles []string
	Limit         int // 0 means DefaultLimit
}

// Response carries the ranked results plus the context they were ranked in.
type Response struct {
	Recommendations []types.Recommendation `json:"recommendations"`
	UserCluster     int                    `json:"user_cluster"`
	TotalCourses    int                    `json:"total_courses"`
}

// Health reports whether the service is ready to recommend.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	CourseCount int    `json:"n_courses"`
	K           int    `json:"k,omitempty"`
	RunID       string `json:"run_id,omitempty"`
}

// CoursePage is one page of the catalog listing.
type CoursePage struct {
	Courses  []types.Course `json:"courses"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// Service answers queries against one trained model. Zero value is not
// usable; construct with New.
type Service struct {
	runID       string
	courses     []types.Course
	matrix      [][]float32
	assignments []int
	model       *cluster.Model
	synthesizer *profile.Synthesizer
	candidates  []rank.Candidate
	tracer      *telemetry.Provider
}

// New builds a Service from a loaded artifact bundle. The course matrix is
// reconstructed from the persisted feature space, so the vectors served are
// exactly the vectors the model was trained on.
func New(b *artifact.Bundle) (*Service, error) {
	if len(b.Clusters) != len(b.Courses) {
		return nil, fmt.Errorf("cluster assignments (%d) do not match courses (%d)", len(b.Clusters), len(b.Courses))
	}

	builder := feature.FromState(b.State)
	matrix, err := builder.Transform(b.Courses)
	if err != nil {
		return nil, fmt.Errorf("rebuild course vectors: %w", err)
	}

	candidates := make([]rank.Candidate, len(b.Courses))
	for i, c := range b.Courses {
		candidates[i] = rank.Candidate{
			Course:     c,
			Vector:     matrix[i],
			Cluster:    b.Clusters[i],
			Enrollment: feature.ParseEnrollment(c.StudentsEnrolled),
		}
	}

	return &Service{
		runID:       b.RunID,
		courses:     b.Courses,
		matrix:      matrix,
		assignments: b.Clusters,
		model:       b.Model,
		synthesizer: profile.NewSynthesizer(b.Courses, matrix),
		candidates:  candidates,
		tracer:      telemetry.Noop(),
	}, nil
}

// SetTracer swaps in a tracing provider so pipeline stages emit spans.
// The service starts with a noop provider; a nil argument is ignored.
func (s *Service) SetTracer(p *telemetry.Provider) {
	if p != nil {
		s.tracer = p
	}
}

// Recommend synthesizes a profile vector from the request, assigns it to a
// cluster and returns the boosted, filtered, explained ranking.
func (s *Service) Recommend(ctx context.Context, req Request) (*Response, error) {
	if s == nil {
		return nil, ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.Difficulty != "" && !types.ValidDifficulty(req.Difficulty) {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrInvalidDifficulty, req.Difficulty, types.DifficultyLevels())
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidLimit, req.Limit, MaxLimit)
	}
	if req.RatingBias < 0 || req.RatingBias > 1 {
		return nil, fmt.Errorf("%w: %g (want 0..1)", ErrInvalidRatingBias, req.RatingBias)
	}

	_, profileSpan := s.tracer.StartProfile(ctx, len(req.LikedCourses), req.Difficulty)
	userProfile := s.synthesizer.Synthesize(profile.Request{
		Difficulty:    req.Difficulty,
		LikedTitles:   req.LikedCourses,
		Organizations: req.Organizations,
		RatingBias:    req.RatingBias,
	})
	userCluster := s.model.Assign(userProfile)
	profileSpan.End()

	_, rankSpan := s.tracer.StartRanking(ctx, len(s.candidates), limit)
	recs := rank.Rank(s.candidates, userProfile, userCluster, rank.Options{
		Limit:                  limit,
		ExcludeTitles:          req.ExcludeTitles,
		LikedTitles:            req.LikedCourses,
		PreferredDifficulty:    req.Difficulty,
		PreferredOrganizations: req.Organizations,
	})
	rankSpan.End()

	return &Response{
		Recommendations: recs,
		UserCluster:     userCluster,
		TotalCourses:    len(s.courses),
	}, nil
}

// ClusterInfo summarizes one cluster's membership.
func (s *Service) ClusterInfo(id int) (*types.ClusterInfo, error) {
	if s == nil {
		return nil, ErrNotLoaded
	}
	if id < 0 || id >= s.model.K {
		return nil, fmt.Errorf("%w: %d (model has %d clusters)", ErrInvalidCluster, id, s.model.K)
	}

	info := &types.ClusterInfo{
		ClusterID:              id,
		DifficultyDistribution: make(map[string]int),
	}
	orgCounts := make(map[string]int)
	var ratingSum float64
	for i, c := range s.courses {
		if s.assignments[i] != id {
			continue
		}
		info.Count++
		ratingSum += c.Rating
		info.DifficultyDistribution[c.Difficulty]++
		orgCounts[c.Organization]++
		if len(info.SampleCourses) < sampleCourseCount {
			info.SampleCourses = append(info.SampleCourses, c.Title)
		}
	}
	if info.Count > 0 {
		info.AvgRating = ratingSum / float64(info.Count)
	}
	info.TopOrganizations = topOrganizations(orgCounts, topOrganizationCount)
	return info, nil
}

// Clusters summarizes every cluster of the model in id order.
func (s *Service) Clusters() ([]types.ClusterInfo, error) {
	if s == nil {
		return nil, ErrNotLoaded
	}
	out := make([]types.ClusterInfo, 0, s.model.K)
	for id := 0; id < s.model.K; id++ {
		info, err := s.ClusterInfo(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

// ListCourses returns one page of the catalog in catalog order. Pages are
// 1-based; a page past the end returns an empty page, not an error.
func (s *Service) ListCourses(page, pageSize int) (*CoursePage, error) {
	if s == nil {
		return nil, ErrNotLoaded
	}
	if page < 1 || pageSize < 1 || pageSize > 100 {
		return nil, fmt.Errorf("%w: page=%d page_size=%d", ErrInvalidPage, page, pageSize)
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(s.courses) {
		start = len(s.courses)
	}
	if end > len(s.courses) {
		end = len(s.courses)
	}
	return &CoursePage{
		Courses:  s.courses[start:end],
		Total:    len(s.courses),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Health reports readiness. A nil Service (no artifacts on disk) reports a
// degraded state instead of failing.
func (s *Service) Health() Health {
	if s == nil {
		return Health{Status: "degraded", ModelLoaded: false}
	}
	return Health{
		Status:      "healthy",
		ModelLoaded: true,
		CourseCount: len(s.courses),
		K:           s.model.K,
		RunID:       s.runID,
	}
}

// K returns the number of clusters in the loaded model.
func (s *Service) K() int {
	if s == nil {
		return 0
	}
	return s.model.K
}

func topOrganizations(counts map[string]int, n int) []types.OrganizationCount {
	out := make([]types.OrganizationCount, 0, len(counts))
	for org, count := range counts {
		out = append(out, types.OrganizationCount{Organization: org, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Organization < out[j].Organization
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
