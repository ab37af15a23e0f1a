package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Siddhant-K-code/recourse/pkg/artifact"
	"github.com/Siddhant-K-code/recourse/pkg/cluster"
	"github.com/Siddhant-K-code/recourse/pkg/feature"
	"github.com/Siddhant-K-code/recourse/pkg/telemetry"
	"github.com/Siddhant-K-code/recourse/pkg/types"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the clustering model from a course catalog CSV",
	Long: `Reads a course catalog CSV, builds the feature space, selects the
number of clusters with an inertia-curve sweep, trains the final K-Means
model and writes all artifacts to the artifacts directory.

Example:
  recourse train --file coursea_data.csv --artifacts ./artifacts

A fixed random seed makes training fully reproducible: the same catalog
always produces the same clusters.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	// Input
	trainCmd.Flags().StringP("file", "f", "", "path to course catalog CSV (required)")
	_ = trainCmd.MarkFlagRequired("file")

	// Output
	trainCmd.Flags().StringP("artifacts", "a", "artifacts", "directory to write model artifacts")

	// Clustering settings
	trainCmd.Flags().IntP("clusters", "k", 0, "number of clusters (0 = auto via elbow)")
	trainCmd.Flags().Int("k-min", cluster.DefaultKMin, "minimum k for the elbow sweep")
	trainCmd.Flags().Int("k-max", cluster.DefaultKMax, "maximum k for the elbow sweep")
	trainCmd.Flags().Int("text-features", feature.DefaultTextFeatures, "maximum TF-IDF title features")

	// Performance settings
	trainCmd.Flags().IntP("workers", "w", 0, "number of parallel workers (0 = NumCPU)")
	trainCmd.Flags().Int("max-iterations", cluster.DefaultMaxIterations, "maximum K-Means iterations per fit")
	trainCmd.Flags().Int("restarts", cluster.DefaultRestarts, "K-Means restarts per k")

	// Tracing settings
	trainCmd.Flags().Bool("tracing", false, "enable OpenTelemetry tracing")
	trainCmd.Flags().String("trace-exporter", "otlp", "trace exporter (otlp, stdout, none)")
	trainCmd.Flags().String("trace-endpoint", "localhost:4317", "OTLP collector endpoint")

	// Bind to viper
	_ = viper.BindPFlag("training.k_min", trainCmd.Flags().Lookup("k-min"))
	_ = viper.BindPFlag("training.k_max", trainCmd.Flags().Lookup("k-max"))
	_ = viper.BindPFlag("artifacts.dir", trainCmd.Flags().Lookup("artifacts"))
}

func runTrain(cmd *cobra.Command, args []string) error {
	// Get flags
	filePath, _ := cmd.Flags().GetString("file")
	artifactsDir, _ := cmd.Flags().GetString("artifacts")
	clusters, _ := cmd.Flags().GetInt("clusters")
	kMin, _ := cmd.Flags().GetInt("k-min")
	kMax, _ := cmd.Flags().GetInt("k-max")
	textFeatures, _ := cmd.Flags().GetInt("text-features")
	workers, _ := cmd.Flags().GetInt("workers")
	maxIterations, _ := cmd.Flags().GetInt("max-iterations")
	restarts, _ := cmd.Flags().GetInt("restarts")
	tracingEnabled, _ := cmd.Flags().GetBool("tracing")
	traceExporter, _ := cmd.Flags().GetString("trace-exporter")
	traceEndpoint, _ := cmd.Flags().GetString("trace-endpoint")
	verbose := viper.GetBool("verbose")

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	// Load catalog
	fmt.Fprintf(os.Stderr, "Loading courses from %s...\n", filePath)
	loadStart := time.Now()
	courses, err := artifact.LoadCourses(filePath)
	if err != nil {
		return fmt.Errorf("failed to load courses: %w", err)
	}
	loadDuration := time.Since(loadStart)

	if len(courses) == 0 {
		fmt.Println("No courses found in file.")
		return nil
	}

	fmt.Fprintf(os.Stderr, "Loaded %d courses in %v\n", len(courses), loadDuration)

	// Tracing
	tracer, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     tracingEnabled,
		Exporter:    traceExporter,
		Endpoint:    traceEndpoint,
		SampleRate:  1.0,
		ServiceName: "recourse",
		Insecure:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	ctx, trainSpan := tracer.StartTraining(ctx, len(courses))
	defer trainSpan.End()

	// Build feature space
	fmt.Fprintln(os.Stderr, "Building feature space...")
	builder := feature.NewBuilder()
	builder.MaxTextFeatures = textFeatures

	matrix, state, err := builder.FitTransform(courses)
	if err != nil {
		return fmt.Errorf("feature construction failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Feature dimension: %d (%d numeric, %d categorical, %d text)\n",
			state.Dim(), 3, len(state.Organizations)+len(state.Certificates), len(state.Vocabulary))
	}

	// Select k
	k := clusters
	var inertiaByK []types.InertiaPoint

	if k == 0 {
		fmt.Fprintf(os.Stderr, "Selecting cluster count (k=%d..%d)...\n", kMin, kMax)

		bar := progressbar.NewOptions(
			kMax-kMin+1,
			progressbar.OptionSetDescription("Sweeping k"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true),
		)

		elbowCtx, elbowSpan := tracer.StartElbow(ctx, kMin, kMax)
		k, inertiaByK, err = cluster.SelectK(elbowCtx, matrix, cluster.ElbowOptions{
			KMin:          kMin,
			KMax:          kMax,
			MaxIterations: maxIterations,
			Restarts:      restarts,
			Workers:       workers,
			Progress:      func(int) { _ = bar.Add(1) },
		})
		elbowSpan.End()
		if err != nil {
			return fmt.Errorf("cluster count selection failed: %w", err)
		}

		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Selected k=%d\n", k)
	}

	// Final fit
	fmt.Fprintf(os.Stderr, "Training final model (k=%d)...\n", k)
	fitStart := time.Now()

	cfg := cluster.DefaultConfig(k)
	cfg.MaxIterations = maxIterations
	cfg.Restarts = restarts
	cfg.Workers = workers

	model, assignments, err := cluster.Fit(ctx, matrix, cfg)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	fitDuration := time.Since(fitStart)

	// Evaluate
	silhouette := cluster.Silhouette(matrix, assignments, model.K)
	intraSim := cluster.IntraClusterCosine(matrix, assignments, model.K)

	metrics := types.TrainingMetrics{
		SelectedK:              model.K,
		SilhouetteScore:        silhouette,
		IntraClusterSimilarity: intraSim,
		SampleCount:            len(courses),
		FeatureCount:           state.Dim(),
		InertiaByK:             inertiaByK,
	}

	// Persist artifacts
	bundle := &artifact.Bundle{
		RunID:    artifact.NewRunID(state),
		State:    state,
		Model:    model,
		Courses:  courses,
		Clusters: assignments,
	}
	if err := artifact.Save(artifactsDir, bundle, metrics); err != nil {
		return fmt.Errorf("failed to save artifacts: %w", err)
	}

	printTrainSummary(metrics, fitDuration, artifactsDir, verbose)
	return nil
}

func printTrainSummary(metrics types.TrainingMetrics, fitDuration time.Duration, artifactsDir string, verbose bool) {
	fmt.Println()
	fmt.Println("=== Training Complete ===")
	fmt.Println()
	fmt.Printf("Courses:              %d\n", metrics.SampleCount)
	fmt.Printf("Features:             %d\n", metrics.FeatureCount)
	fmt.Printf("Clusters:             %d\n", metrics.SelectedK)
	fmt.Printf("Silhouette score:     %.4f\n", metrics.SilhouetteScore)
	fmt.Printf("Intra-cluster cosine: %.4f\n", metrics.IntraClusterSimilarity)
	fmt.Printf("Final fit duration:   %v\n", fitDuration.Round(time.Millisecond))
	fmt.Printf("Artifacts written to: %s\n", artifactsDir)
	fmt.Println()

	if verbose && len(metrics.InertiaByK) > 0 {
		fmt.Println("Inertia by k:")
		for _, p := range metrics.InertiaByK {
			fmt.Printf("  k=%-3d %.2f\n", p.K, p.Inertia)
		}
		fmt.Println()
	}
}
