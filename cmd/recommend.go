package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Siddhant-K-code/recourse/pkg/artifact"
	"github.com/Siddhant-K-code/recourse/pkg/recommender"
	"github.com/Siddhant-K-code/recourse/pkg/types"
	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Get course recommendations from a trained model",
	Long: `Ranks courses against a taste profile built from the flags you pass.

Examples:
  # Recommend for a beginner who liked a Python course
  recourse recommend --liked "Python for Everybody" --difficulty Beginner

  # Prefer highly rated courses from specific organizations
  recourse recommend --org "Stanford University" --rating-bias 0.8 --limit 5

  # Machine-readable output
  recourse recommend --liked "Machine Learning" --json`,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("artifacts", "a", "artifacts", "directory containing trained model artifacts")
	recommendCmd.Flags().StringSliceP("liked", "l", nil, "titles of courses the user liked")
	recommendCmd.Flags().StringP("difficulty", "d", "", "preferred difficulty (Beginner, Intermediate, Advanced, Mixed)")
	recommendCmd.Flags().StringSliceP("org", "o", nil, "preferred organizations")
	recommendCmd.Flags().Float64P("rating-bias", "b", 0, "bias toward highly rated courses (0 to 1)")
	recommendCmd.Flags().IntP("limit", "n", recommender.DefaultLimit, "number of recommendations")
	recommendCmd.Flags().StringSliceP("exclude", "x", nil, "titles to exclude from results")
	recommendCmd.Flags().Bool("json", false, "output as JSON")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	artifactsDir, _ := cmd.Flags().GetString("artifacts")
	liked, _ := cmd.Flags().GetStringSlice("liked")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	orgs, _ := cmd.Flags().GetStringSlice("org")
	ratingBias, _ := cmd.Flags().GetFloat64("rating-bias")
	limit, _ := cmd.Flags().GetInt("limit")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	svc, err := loadService(artifactsDir)
	if err != nil {
		return err
	}

	resp, err := svc.Recommend(context.Background(), recommender.Request{
		Difficulty:    difficulty,
		LikedCourses:  liked,
		Organizations: orgs,
		RatingBias:    ratingBias,
		ExcludeTitles: exclude,
		Limit:         limit,
	})
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printRecommendations(resp)
	return nil
}

// loadService loads the trained artifacts and builds a recommender,
// with a friendly error when no model has been trained yet.
func loadService(artifactsDir string) (*recommender.Service, error) {
	bundle, err := artifact.Load(artifactsDir)
	if err != nil {
		if errors.Is(err, artifact.ErrMissingArtifact) {
			return nil, fmt.Errorf("no trained model in %s, run 'recourse train' first", artifactsDir)
		}
		return nil, fmt.Errorf("failed to load artifacts: %w", err)
	}

	svc, err := recommender.New(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to build recommender: %w", err)
	}
	return svc, nil
}

func printRecommendations(resp *recommender.Response) {
	fmt.Printf("User cluster: %d (of %d courses)\n\n", resp.UserCluster, resp.TotalCourses)

	if len(resp.Recommendations) == 0 {
		fmt.Println("No recommendations matched the given profile.")
		return
	}

	for i, rec := range resp.Recommendations {
		fmt.Printf("%2d. %s\n", i+1, rec.Title)
		fmt.Printf("    %s | %s | %.1f★ | %s enrolled\n",
			rec.Organization, rec.Difficulty, rec.Rating, rec.StudentsEnrolled)
		fmt.Printf("    score %.4f | cluster %d | %s\n",
			rec.SimilarityScore, rec.Cluster, rec.Explanation)
		if i < len(resp.Recommendations)-1 {
			fmt.Println()
		}
	}
}

func formatDifficultyDist(dist map[string]int) string {
	if len(dist) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(dist))
	for _, level := range []string{types.DifficultyBeginner, types.DifficultyIntermediate, types.DifficultyAdvanced, types.DifficultyMixed} {
		if n, ok := dist[level]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d", level, n))
		}
	}
	return strings.Join(parts, ", ")
}
