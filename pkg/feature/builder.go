// Package feature converts heterogeneous course records into fixed-dimensional
// numeric vectors. All normalization state (scaler statistics, text vocabulary,
// category levels) is captured once at fit time and applied unchanged at every
// transform: the ordered feature-name list is the schema contract, and the
// output dimensionality never changes after fitting.
package feature

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Siddhant-K-code/recourse/pkg/types"
)

// ErrNotFitted is returned when Transform is called before any fitted state exists.
var ErrNotFitted = errors.New("feature space not fitted")

// DefaultTextFeatures is the fixed width of the title TF-IDF block.
const DefaultTextFeatures = 50

// State holds the fitted normalization parameters. Created once at training
// time, read-only thereafter. FeatureNames is authoritative: its length always
// equals the width of any matrix produced from this state.
type State struct {
	FeatureNames  []string  `json:"feature_names"`
	NumericMeans  []float64 `json:"numeric_means"`  // rating, enrollment, difficulty
	NumericScales []float64 `json:"numeric_scales"` // population std; 1.0 for constant columns
	Organizations []string  `json:"organizations"`  // sorted fit-time categories
	Certificates  []string  `json:"certificates"`   // sorted fit-time categories
	Vocabulary    []string  `json:"vocabulary"`     // sorted fit-time title terms
	IDF           []float64 `json:"idf"`            // parallel to Vocabulary
}

// Dim returns the feature-space dimensionality.
func (s *State) Dim() int {
	return len(s.FeatureNames)
}

// Builder constructs the feature space. Fit mutates the builder once;
// Transform is side-effect-free.
type Builder struct {
	// MaxTextFeatures caps the title vocabulary size. Defaults to
	// DefaultTextFeatures when zero.
	MaxTextFeatures int

	state *State
}

// NewBuilder returns a Builder ready for FitTransform.
func NewBuilder() *Builder {
	return &Builder{MaxTextFeatures: DefaultTextFeatures}
}

// FromState returns a Builder that applies previously fitted state.
// This is the serving-time constructor: Transform works immediately and
// FitTransform is not expected to be called.
func FromState(state *State) *Builder {
	return &Builder{MaxTextFeatures: DefaultTextFeatures, state: state}
}

// State returns the fitted state, or nil before fitting.
func (b *Builder) State() *State {
	return b.state
}

// FitTransform derives normalization state from courses and returns the
// feature matrix plus the state. Call exactly once per model generation;
// refitting on different data produces an incompatible schema.
func (b *Builder) FitTransform(courses []types.Course) ([][]float32, *State, error) {
	if len(courses) == 0 {
		return nil, nil, fmt.Errorf("fit requires at least one course")
	}

	maxText := b.MaxTextFeatures
	if maxText <= 0 {
		maxText = DefaultTextFeatures
	}

	// Numeric columns: rating, normalized enrollment, encoded difficulty.
	numeric := numericColumns(courses)
	scaler := fitScaler(numeric)

	// Category levels observed at fit time, sorted for a stable column order.
	orgs := distinctSorted(courses, func(c types.Course) string { return c.Organization })
	certs := distinctSorted(courses, func(c types.Course) string { return c.CertificateType })

	// Title vocabulary and document frequencies.
	titles := make([]string, len(courses))
	for i, c := range courses {
		titles[i] = c.Title
	}
	vocab, idf := fitVocabulary(titles, maxText)

	state := &State{
		NumericMeans:  scaler.means,
		NumericScales: scaler.scales,
		Organizations: orgs,
		Certificates:  certs,
		Vocabulary:    vocab,
		IDF:           idf,
	}
	state.FeatureNames = featureNames(state)

	b.state = state

	matrix, err := b.Transform(courses)
	if err != nil {
		return nil, nil, err
	}
	return matrix, state, nil
}

// Transform applies the fitted state to arbitrary courses. Categories absent
// from the fitted set are dropped; fitted categories absent from the input
// stay zero. The output width always equals State().Dim().
func (b *Builder) Transform(courses []types.Course) ([][]float32, error) {
	if b.state == nil {
		return nil, ErrNotFitted
	}

	s := b.state
	dim := s.Dim()

	orgIndex := indexOf(s.Organizations)
	certIndex := indexOf(s.Certificates)
	termIndex := indexOf(s.Vocabulary)

	orgOffset := len(numericNames)
	certOffset := orgOffset + len(s.Organizations)
	textOffset := certOffset + len(s.Certificates)

	matrix := make([][]float32, len(courses))
	for i, c := range courses {
		row := make([]float32, dim)

		raw := [numericCount]float64{
			c.Rating,
			ParseEnrollment(c.StudentsEnrolled),
			EncodeDifficulty(c.Difficulty),
		}
		for j := 0; j < numericCount; j++ {
			row[j] = float32((raw[j] - s.NumericMeans[j]) / s.NumericScales[j])
		}

		if idx, ok := orgIndex[c.Organization]; ok {
			row[orgOffset+idx] = 1
		}
		if idx, ok := certIndex[c.CertificateType]; ok {
			row[certOffset+idx] = 1
		}

		tfidfRow(row[textOffset:], c.Title, termIndex, s.IDF)
		matrix[i] = row
	}

	return matrix, nil
}

const numericCount = 3

var numericNames = []string{"rating_scaled", "enrollment_scaled", "difficulty_scaled"}

// featureNames builds the ordered schema: scaled numerics, organization
// one-hots, certificate one-hots, title TF-IDF columns.
func featureNames(s *State) []string {
	names := make([]string, 0, numericCount+len(s.Organizations)+len(s.Certificates)+len(s.Vocabulary))
	names = append(names, numericNames...)
	for _, org := range s.Organizations {
		names = append(names, "org_"+org)
	}
	for _, cert := range s.Certificates {
		names = append(names, "cert_"+cert)
	}
	for i := range s.Vocabulary {
		names = append(names, fmt.Sprintf("title_tfidf_%d", i))
	}
	return names
}

func numericColumns(courses []types.Course) [][numericCount]float64 {
	out := make([][numericCount]float64, len(courses))
	for i, c := range courses {
		out[i] = [numericCount]float64{
			c.Rating,
			ParseEnrollment(c.StudentsEnrolled),
			EncodeDifficulty(c.Difficulty),
		}
	}
	return out
}

func distinctSorted(courses []types.Course, key func(types.Course) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range courses {
		k := key(c)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func indexOf(values []string) map[string]int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[v] = i
	}
	return idx
}
