// Package artifact persists and loads the model state produced by a training
// run: the fitted feature space, the trained K-Means model, the catalog
// augmented with cluster assignments, and the evaluation metrics. The three
// load-bearing artifacts carry a shared run id and a data hash; mixing state
// from different runs is refused at load time.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Siddhant-K-code/recourse/pkg/cluster"
	"github.com/Siddhant-K-code/recourse/pkg/feature"
	"github.com/Siddhant-K-code/recourse/pkg/types"
)

// Sentinel errors surfaced to the serving boundary.
var (
	// ErrMissingArtifact marks an absent artifact file ("model not trained").
	ErrMissingArtifact = errors.New("model artifact missing")

	// ErrRunMismatch marks artifacts that were not produced by the same
	// training run.
	ErrRunMismatch = errors.New("model artifacts belong to different training runs")
)

// Artifact file names within the artifacts directory.
const (
	FeatureSpaceFile = "feature_space.json"
	ModelFile        = "kmeans_model.json"
	CoursesFile      = "courses_with_clusters.csv"
	MetricsFile      = "model_metrics.json"
)

// Bundle is everything serving needs, loaded once and shared read-only.
type Bundle struct {
	RunID    string
	State    *feature.State
	Model    *cluster.Model
	Courses  []types.Course
	Clusters []int // parallel to Courses
}

type featureSpaceArtifact struct {
	RunID string         `json:"run_id"`
	State *feature.State `json:"state"`
}

type modelArtifact struct {
	RunID    string         `json:"run_id"`
	DataHash string         `json:"data_hash"` // SHA-256 of the courses CSV
	Model    *cluster.Model `json:"model"`
}

type metricsArtifact struct {
	RunID string `json:"run_id"`
	types.TrainingMetrics
}

// NewRunID returns an identifier for one training run: a UTC timestamp plus
// a short hash of the fitted schema, enough to tell runs apart.
func NewRunID(state *feature.State) string {
	h := sha256.New()
	for _, name := range state.FeatureNames {
		h.Write([]byte(name))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405Z"), hex.EncodeToString(h.Sum(nil))[:8])
}

// Save writes all four artifacts into dir, creating it if needed. The CSV is
// written first so its hash can be recorded in the model artifact.
func Save(dir string, b *Bundle, metrics types.TrainingMetrics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}

	csvBytes, err := marshalCoursesCSV(b.Courses, b.Clusters)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, CoursesFile), csvBytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", CoursesFile, err)
	}

	hash := sha256.Sum256(csvBytes)
	dataHash := hex.EncodeToString(hash[:])

	if err := writeJSON(filepath.Join(dir, FeatureSpaceFile), featureSpaceArtifact{
		RunID: b.RunID,
		State: b.State,
	}); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(dir, ModelFile), modelArtifact{
		RunID:    b.RunID,
		DataHash: dataHash,
		Model:    b.Model,
	}); err != nil {
		return err
	}

	return writeJSON(filepath.Join(dir, MetricsFile), metricsArtifact{
		RunID:           b.RunID,
		TrainingMetrics: metrics,
	})
}

// Load reads the serving artifacts from dir and verifies that they come
// from a single training run. The metrics artifact is informational and
// not loaded here.
func Load(dir string) (*Bundle, error) {
	var fs featureSpaceArtifact
	if err := readJSON(filepath.Join(dir, FeatureSpaceFile), &fs); err != nil {
		return nil, err
	}

	var ma modelArtifact
	if err := readJSON(filepath.Join(dir, ModelFile), &ma); err != nil {
		return nil, err
	}

	csvPath := filepath.Join(dir, CoursesFile)
	csvBytes, err := os.ReadFile(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", CoursesFile, ErrMissingArtifact)
		}
		return nil, fmt.Errorf("read %s: %w", CoursesFile, err)
	}

	if fs.RunID != ma.RunID {
		return nil, fmt.Errorf("feature space run %q vs model run %q: %w", fs.RunID, ma.RunID, ErrRunMismatch)
	}
	hash := sha256.Sum256(csvBytes)
	if hex.EncodeToString(hash[:]) != ma.DataHash {
		return nil, fmt.Errorf("%s does not match the hash recorded at training time: %w", CoursesFile, ErrRunMismatch)
	}

	courses, clusters, err := unmarshalCoursesCSV(csvBytes)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", CoursesFile, err)
	}

	return &Bundle{
		RunID:    fs.RunID,
		State:    fs.State,
		Model:    ma.Model,
		Courses:  courses,
		Clusters: clusters,
	}, nil
}

// LoadMetrics reads the evaluation metrics artifact.
func LoadMetrics(dir string) (types.TrainingMetrics, error) {
	var m metricsArtifact
	if err := readJSON(filepath.Join(dir, MetricsFile), &m); err != nil {
		return types.TrainingMetrics{}, err
	}
	return m.TrainingMetrics, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrMissingArtifact)
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
