package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Siddhant-K-code/recourse/pkg/artifact"
	"github.com/Siddhant-K-code/recourse/pkg/types"
	"github.com/spf13/cobra"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Inspect the clusters of a trained model",
	Long: `Prints a per-cluster summary of a trained model: course counts,
average ratings, difficulty distributions, and top organizations, along
with the training quality metrics.

Examples:
  recourse clusters
  recourse clusters --id 3
  recourse clusters --artifacts ./artifacts --json`,
	RunE: runClusters,
}

func init() {
	rootCmd.AddCommand(clustersCmd)

	clustersCmd.Flags().StringP("artifacts", "a", "artifacts", "directory containing trained model artifacts")
	clustersCmd.Flags().Int("id", -1, "inspect a single cluster id")
	clustersCmd.Flags().Bool("json", false, "output as JSON")
}

func runClusters(cmd *cobra.Command, args []string) error {
	artifactsDir, _ := cmd.Flags().GetString("artifacts")
	clusterID, _ := cmd.Flags().GetInt("id")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	svc, err := loadService(artifactsDir)
	if err != nil {
		return err
	}

	var infos []types.ClusterInfo
	if clusterID >= 0 {
		info, err := svc.ClusterInfo(clusterID)
		if err != nil {
			return fmt.Errorf("failed to summarize cluster %d: %w", clusterID, err)
		}
		infos = []types.ClusterInfo{*info}
	} else {
		infos, err = svc.Clusters()
		if err != nil {
			return fmt.Errorf("failed to summarize clusters: %w", err)
		}
	}

	metrics, err := artifact.LoadMetrics(artifactsDir)
	haveMetrics := err == nil
	if err != nil && !errors.Is(err, artifact.ErrMissingArtifact) {
		return fmt.Errorf("failed to load training metrics: %w", err)
	}

	if jsonOutput {
		out := map[string]interface{}{"clusters": infos}
		if haveMetrics {
			out["metrics"] = metrics
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println("=== Cluster Summary ===")
	fmt.Println()

	for _, info := range infos {
		fmt.Printf("Cluster %d: %d courses, avg rating %.2f\n",
			info.ClusterID, info.Count, info.AvgRating)
		fmt.Printf("  Difficulty: %s\n", formatDifficultyDist(info.DifficultyDistribution))
		if len(info.TopOrganizations) > 0 {
			orgs := make([]string, len(info.TopOrganizations))
			for i, oc := range info.TopOrganizations {
				orgs[i] = fmt.Sprintf("%s (%d)", oc.Organization, oc.Count)
			}
			fmt.Printf("  Top orgs:   %s\n", strings.Join(orgs, ", "))
		}
		for _, title := range info.SampleCourses {
			fmt.Printf("    - %s\n", title)
		}
		fmt.Println()
	}

	if haveMetrics {
		fmt.Println("=== Training Metrics ===")
		fmt.Printf("  Optimal k:              %d\n", metrics.SelectedK)
		fmt.Printf("  Silhouette score:       %.4f\n", metrics.SilhouetteScore)
		fmt.Printf("  Intra-cluster cosine:   %.4f\n", metrics.IntraClusterSimilarity)
		fmt.Printf("  Samples x features:     %d x %d\n", metrics.SampleCount, metrics.FeatureCount)
	}

	return nil
}
