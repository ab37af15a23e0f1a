package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Siddhant-K-code/recourse/pkg/artifact"
	"github.com/Siddhant-K-code/recourse/pkg/cache"
	"github.com/Siddhant-K-code/recourse/pkg/metrics"
	"github.com/Siddhant-K-code/recourse/pkg/recommender"
	"github.com/Siddhant-K-code/recourse/pkg/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation HTTP server",
	Long: `Starts an HTTP server that answers recommendation queries against
the trained model artifacts.

Example:
  recourse serve --port 8080 --artifacts ./artifacts

The server exposes:
  POST /v1/recommend     - Personalized course recommendations
  GET  /v1/clusters      - Summary of every cluster
  GET  /v1/clusters/{id} - Single cluster summary
  GET  /v1/courses       - Paginated catalog listing
  GET  /health           - Health check
  GET  /metrics          - Prometheus metrics

If no artifacts exist yet the server starts degraded: /health reports
model_loaded=false and recommendation endpoints return 503 until a
model is trained.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server settings
	serveCmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")

	// Model settings
	serveCmd.Flags().StringP("artifacts", "a", "artifacts", "directory containing trained model artifacts")

	// Auth settings
	serveCmd.Flags().String("api-keys", "", "comma-separated API keys (or use RECOURSE_API_KEYS)")

	// Cache settings
	serveCmd.Flags().Bool("cache", true, "cache recommendation responses")
	serveCmd.Flags().Duration("cache-ttl", cache.DefaultTTL, "response cache TTL")
	serveCmd.Flags().Int("cache-size", cache.DefaultMaxEntries, "maximum cached responses")

	// Tracing settings
	serveCmd.Flags().Bool("tracing", false, "enable OpenTelemetry tracing")
	serveCmd.Flags().String("trace-exporter", "otlp", "trace exporter (otlp, stdout, none)")
	serveCmd.Flags().String("trace-endpoint", "localhost:4317", "OTLP collector endpoint")

	// Bind to viper
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

// Server holds the HTTP serving state. The service pointer is nil while
// no model is loaded.
type Server struct {
	svc       *recommender.Service
	cache     *cache.ResponseCache
	metrics   *metrics.Metrics
	tracer    *telemetry.Provider
	validKeys map[string]bool
}

// RecommendRequest is the JSON request body for /v1/recommend.
type RecommendRequest struct {
	Difficulty    string   `json:"difficulty,omitempty"`
	LikedCourses  []string `json:"liked_courses,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	RatingBias    float64  `json:"rating_bias,omitempty"`
	ExcludeTitles []string `json:"exclude_titles,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	// Get flags
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	artifactsDir, _ := cmd.Flags().GetString("artifacts")
	apiKeysStr, _ := cmd.Flags().GetString("api-keys")
	cacheEnabled, _ := cmd.Flags().GetBool("cache")
	cacheTTL, _ := cmd.Flags().GetDuration("cache-ttl")
	cacheSize, _ := cmd.Flags().GetInt("cache-size")
	tracingEnabled, _ := cmd.Flags().GetBool("tracing")
	traceExporter, _ := cmd.Flags().GetString("trace-exporter")
	traceEndpoint, _ := cmd.Flags().GetString("trace-endpoint")

	// Resolve API keys from environment
	if apiKeysStr == "" {
		apiKeysStr = os.Getenv("RECOURSE_API_KEYS")
	}
	validKeys := make(map[string]bool)
	for _, key := range strings.Split(apiKeysStr, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			validKeys[key] = true
		}
	}

	ctx := context.Background()

	// Load the model artifacts; start degraded when missing
	var svc *recommender.Service
	bundle, err := artifact.Load(artifactsDir)
	switch {
	case err == nil:
		svc, err = recommender.New(bundle)
		if err != nil {
			return fmt.Errorf("failed to build recommender: %w", err)
		}
	case errors.Is(err, artifact.ErrMissingArtifact):
		fmt.Fprintf(os.Stderr, "Warning: no trained model in %s, starting degraded (run 'recourse train' first)\n", artifactsDir)
	default:
		return fmt.Errorf("failed to load artifacts: %w", err)
	}

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

	if svc != nil {
		svc.SetTracer(tracer)
	}

	// Response cache
	var respCache *cache.ResponseCache
	if cacheEnabled {
		respCache = cache.NewResponseCache(cache.Options{
			MaxEntries: cacheSize,
			TTL:        cacheTTL,
		})
		defer respCache.Close()
	}

	server := &Server{
		svc:       svc,
		cache:     respCache,
		metrics:   metrics.New(),
		tracer:    tracer,
		validKeys: validKeys,
	}

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/recommend", server.metrics.Middleware("/v1/recommend", server.withAuth(server.handleRecommend)))
	mux.HandleFunc("/v1/clusters", server.metrics.Middleware("/v1/clusters", server.withAuth(server.handleClusters)))
	mux.HandleFunc("/v1/clusters/", server.metrics.Middleware("/v1/clusters", server.withAuth(server.handleCluster)))
	mux.HandleFunc("/v1/courses", server.metrics.Middleware("/v1/courses", server.withAuth(server.handleCourses)))
	mux.HandleFunc("/health", server.handleHealth)
	mux.Handle("/metrics", server.metrics.Handler())
	mux.HandleFunc("/", server.handleRoot)

	handler := corsMiddleware(mux)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Fprintln(os.Stderr, "\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	// Start server
	fmt.Printf("Recourse server starting on %s\n", addr)
	fmt.Printf("  Model loaded: %v\n", svc != nil)
	if svc != nil {
		fmt.Printf("  Clusters: %d\n", svc.K())
	}
	fmt.Printf("  Auth: %v (%d keys)\n", len(validKeys) > 0, len(validKeys))
	fmt.Printf("  Cache: %v\n", cacheEnabled)
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Printf("  POST http://%s/v1/recommend\n", addr)
	fmt.Printf("  GET  http://%s/v1/clusters\n", addr)
	fmt.Printf("  GET  http://%s/v1/courses\n", addr)
	fmt.Printf("  GET  http://%s/health\n", addr)
	fmt.Println()

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	fmt.Println("Server stopped")
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAuth enforces bearer-token auth when API keys are configured.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	if len(s.validKeys) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if !s.validKeys[token] {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"name":    "Recourse API",
		"version": "0.1.0",
		"endpoints": map[string]string{
			"recommend": "POST /v1/recommend",
			"clusters":  "GET /v1/clusters",
			"courses":   "GET /v1/courses",
			"health":    "GET /health",
		},
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.svc == nil {
		http.Error(w, "No trained model loaded, run 'recourse train' first", http.StatusServiceUnavailable)
		return
	}

	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	ctx, span := s.tracer.StartRequest(r.Context(), "/v1/recommend")
	defer span.End()
	start := time.Now()

	limit := req.Limit
	if limit == 0 {
		limit = recommender.DefaultLimit
	}

	// Serve from cache when possible
	var key string
	if s.cache != nil {
		key = cache.RequestKey("recourse", req.Difficulty,
			req.LikedCourses, req.Organizations, req.ExcludeTitles,
			req.RatingBias, limit)

		_, lookup := s.tracer.StartCacheLookup(ctx, key)
		body, ok := s.cache.Get(key)
		lookup.End()
		s.metrics.RecordCacheLookup(ok)
		if ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
			return
		}
	}

	resp, err := s.svc.Recommend(ctx, recommender.Request{
		Difficulty:    req.Difficulty,
		LikedCourses:  req.LikedCourses,
		Organizations: req.Organizations,
		RatingBias:    req.RatingBias,
		ExcludeTitles: req.ExcludeTitles,
		Limit:         req.Limit,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		writeServiceError(w, err)
		return
	}

	topScore := 0.0
	if len(resp.Recommendations) > 0 {
		topScore = resp.Recommendations[0].SimilarityScore
	}
	s.metrics.RecordRecommendation("/v1/recommend", len(resp.Recommendations), topScore, resp.UserCluster)
	telemetry.RecordResult(span, len(resp.Recommendations), resp.UserCluster, topScore, time.Since(start))

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
		return
	}
	if s.cache != nil {
		s.cache.Set(key, body)
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.svc == nil {
		http.Error(w, "No trained model loaded", http.StatusServiceUnavailable)
		return
	}

	infos, err := s.svc.Clusters()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"clusters": infos,
		"k":        s.svc.K(),
	})
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.svc == nil {
		http.Error(w, "No trained model loaded", http.StatusServiceUnavailable)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/v1/clusters/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid cluster id %q", idStr), http.StatusBadRequest)
		return
	}

	info, err := s.svc.ClusterInfo(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.svc == nil {
		http.Error(w, "No trained model loaded", http.StatusServiceUnavailable)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	result, err := s.svc.ListCourses(page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.svc.Health()

	w.Header().Set("Content-Type", "application/json")
	if !health.ModelLoaded {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommender.ErrNotLoaded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, recommender.ErrInvalidCluster):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, recommender.ErrInvalidDifficulty),
		errors.Is(err, recommender.ErrInvalidLimit),
		errors.Is(err, recommender.ErrInvalidRatingBias),
		errors.Is(err, recommender.ErrInvalidPage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
