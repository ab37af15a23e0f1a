package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Siddhant-K-code/recourse/pkg/artifact"
	"github.com/Siddhant-K-code/recourse/pkg/recommender"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start Recourse as an MCP server",
	Long: `Starts Recourse as a Model Context Protocol (MCP) server.

This allows AI assistants like Claude, Amp, and Cursor to query the
course recommendation model directly.

Transports:
  stdio (default) - For local desktop apps (Claude Desktop, Cursor)
  http            - For remote/cloud deployments (hosted MCP server)

Tools exposed:
  recommend_courses - Personalized course recommendations
  get_cluster_info  - Summary statistics for a course cluster
  list_courses      - Browse the course catalog

Resources exposed:
  recourse://system-prompt - System prompt for AI assistants
  recourse://model-info    - Trained model summary

Example:
  # Local stdio server (Claude Desktop, Cursor, Amp)
  recourse mcp

  # Remote HTTP server (hosted deployment)
  recourse mcp --transport http --port 8081

Configure in Claude Desktop (claude_desktop_config.json):
  {
    "mcpServers": {
      "recourse": {
        "command": "recourse",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	// Transport settings
	mcpCmd.Flags().String("transport", "stdio", "Transport type: stdio or http")
	mcpCmd.Flags().Int("port", 8081, "HTTP server port (for http transport)")
	mcpCmd.Flags().String("host", "0.0.0.0", "HTTP server host (for http transport)")

	// Model settings
	mcpCmd.Flags().StringP("artifacts", "a", "artifacts", "directory containing trained model artifacts")
}

// MCPServer wraps the MCP server around a loaded recommender.
type MCPServer struct {
	svc *recommender.Service
}

func runMCP(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	artifactsDir, _ := cmd.Flags().GetString("artifacts")

	// Load the model; tools report the missing model themselves so the
	// server still starts for inspection.
	mcpSrv := &MCPServer{}
	bundle, err := artifact.Load(artifactsDir)
	switch {
	case err == nil:
		svc, err := recommender.New(bundle)
		if err != nil {
			return fmt.Errorf("failed to build recommender: %w", err)
		}
		mcpSrv.svc = svc
	case errors.Is(err, artifact.ErrMissingArtifact):
		// degraded start
	default:
		return fmt.Errorf("failed to load artifacts: %w", err)
	}

	// Create MCP server with capabilities
	s := server.NewMCPServer(
		"Recourse",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(false),
	)

	// Register tools, resources, and prompts
	mcpSrv.registerTools(s)
	mcpSrv.registerResources(s)
	mcpSrv.registerPrompts(s)

	// Start server based on transport
	switch transport {
	case "stdio":
		if err := server.ServeStdio(s); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}

	case "http":
		addr := fmt.Sprintf("%s:%d", host, port)
		fmt.Printf("Recourse MCP server starting on http://%s\n", addr)
		fmt.Printf("  Endpoint: http://%s/mcp\n", addr)
		fmt.Printf("  Health:   http://%s/health\n", addr)
		fmt.Println()

		mux := http.NewServeMux()

		// Health check endpoint
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(mcpSrv.svc.Health())
		})

		// MCP endpoint with stateful sessions
		mcpHandler := server.NewStreamableHTTPServer(s, server.WithStateful(true))
		mux.Handle("/mcp", mcpHandler)

		httpServer := &http.Server{
			Addr:    addr,
			Handler: mux,
		}

		if err := httpServer.ListenAndServe(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}

	default:
		return fmt.Errorf("unsupported transport: %s (use 'stdio' or 'http')", transport)
	}

	return nil
}

func (m *MCPServer) registerTools(s *server.MCPServer) {
	// Tool 1: recommend_courses
	recommendTool := mcp.NewTool("recommend_courses",
		mcp.WithDescription(`Recommend online courses tailored to a user's taste profile.

WHEN TO USE: Call this tool whenever the user asks what course to take
next, wants something similar to a course they enjoyed, or describes
their skill level and interests.

INPUT: Any combination of liked course titles, preferred difficulty,
preferred organizations, and a rating bias.
OUTPUT: Ranked courses with similarity scores and plain-language
explanations of why each was picked.`),
		mcp.WithArray("liked_courses",
			mcp.Description("Titles of courses the user enjoyed (strings). Partial titles match."),
		),
		mcp.WithString("difficulty",
			mcp.Description("Preferred difficulty: Beginner, Intermediate, Advanced, or Mixed"),
		),
		mcp.WithArray("organizations",
			mcp.Description("Preferred course providers, e.g. [\"Stanford University\"]"),
		),
		mcp.WithNumber("rating_bias",
			mcp.Description("Bias toward highly rated courses, 0.0 (none) to 1.0 (strong). Default 0."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Number of recommendations to return (default 10, max 50)"),
		),
	)

	s.AddTool(recommendTool, m.handleRecommendCourses)

	// Tool 2: get_cluster_info
	clusterTool := mcp.NewTool("get_cluster_info",
		mcp.WithDescription(`Summarize one cluster of the trained course model.

Returns course count, average rating, difficulty distribution, top
organizations, and sample course titles. Use this to explain what kind
of courses a recommendation's cluster contains.`),
		mcp.WithNumber("cluster_id",
			mcp.Required(),
			mcp.Description("Cluster id from a recommendation response"),
		),
	)

	s.AddTool(clusterTool, m.handleGetClusterInfo)

	// Tool 3: list_courses
	listTool := mcp.NewTool("list_courses",
		mcp.WithDescription(`Browse the course catalog behind the model, one page at a time.

Use this to look up exact course titles before passing them as
liked_courses to recommend_courses.`),
		mcp.WithNumber("page",
			mcp.Description("1-based page number (default 1)"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Courses per page (default 20, max 100)"),
		),
	)

	s.AddTool(listTool, m.handleListCourses)
}

// System prompt that guides AI assistants to use the recommender
const systemPromptContent = `You have access to Recourse, a course recommendation engine trained on a
Coursera-style catalog.

IMPORTANT: When the user asks for course suggestions:
1. Collect their taste signals: courses they liked, preferred difficulty,
   favorite providers, and whether they care about ratings
2. Call recommend_courses with those signals
3. Present the results with each course's explanation

Use list_courses to resolve vague course names into exact catalog titles,
and get_cluster_info to describe the neighborhood a recommendation came
from.`

func (m *MCPServer) registerResources(s *server.MCPServer) {
	// System prompt resource - hosts can include this in context
	systemPrompt := mcp.NewResource(
		"recourse://system-prompt",
		"Recourse System Prompt",
		mcp.WithResourceDescription("System prompt that guides AI to use the recommendation tools effectively"),
		mcp.WithMIMEType("text/plain"),
	)

	s.AddResource(systemPrompt, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "recourse://system-prompt",
				MIMEType: "text/plain",
				Text:     systemPromptContent,
			},
		}, nil
	})

	// Model info resource - shows what is loaded
	modelResource := mcp.NewResource(
		"recourse://model-info",
		"Recourse Model Info",
		mcp.WithResourceDescription("Summary of the currently loaded recommendation model"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(modelResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		infoJSON, _ := json.MarshalIndent(m.svc.Health(), "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "recourse://model-info",
				MIMEType: "application/json",
				Text:     string(infoJSON),
			},
		}, nil
	})
}

func (m *MCPServer) registerPrompts(s *server.MCPServer) {
	// Prompt for building a taste profile interactively
	findPrompt := mcp.NewPrompt(
		"find-courses",
		mcp.WithPromptDescription("Find course recommendations matching a described learning goal"),
		mcp.WithArgument("goal", mcp.ArgumentDescription("What the user wants to learn")),
		mcp.WithArgument("level", mcp.ArgumentDescription("The user's current skill level")),
	)

	s.AddPrompt(findPrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		goal := request.Params.Arguments["goal"]
		level := request.Params.Arguments["level"]

		return &mcp.GetPromptResult{
			Description: "Find matching courses",
			Messages: []mcp.PromptMessage{
				{
					Role: mcp.RoleUser,
					Content: mcp.TextContent{
						Type: "text",
						Text: fmt.Sprintf(`I want to learn: %s
My current level: %s

Please:
1. Use list_courses to find catalog courses related to my goal
2. Call recommend_courses with the best-matching titles as liked_courses
   and my level as the difficulty
3. Summarize the top picks with their explanations`, goal, level),
					},
				},
			},
		}, nil
	})
}

func (m *MCPServer) handleRecommendCourses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.svc == nil {
		return mcp.NewToolResultError("no trained model loaded, run 'recourse train' first"), nil
	}

	args := request.GetArguments()

	req := recommender.Request{
		Difficulty:   request.GetString("difficulty", ""),
		RatingBias:   request.GetFloat("rating_bias", 0),
		Limit:        int(request.GetFloat("limit", 0)),
		LikedCourses: stringSliceArg(args, "liked_courses"),
	}
	req.Organizations = stringSliceArg(args, "organizations")

	resp, err := m.svc.Recommend(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recommendation failed: %v", err)), nil
	}

	resultJSON, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (m *MCPServer) handleGetClusterInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.svc == nil {
		return mcp.NewToolResultError("no trained model loaded, run 'recourse train' first"), nil
	}

	if _, ok := request.GetArguments()["cluster_id"]; !ok {
		return mcp.NewToolResultError("cluster_id parameter is required"), nil
	}
	id := int(request.GetFloat("cluster_id", -1))

	info, err := m.svc.ClusterInfo(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cluster lookup failed: %v", err)), nil
	}

	resultJSON, _ := json.MarshalIndent(info, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (m *MCPServer) handleListCourses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.svc == nil {
		return mcp.NewToolResultError("no trained model loaded, run 'recourse train' first"), nil
	}

	page := int(request.GetFloat("page", 1))
	pageSize := int(request.GetFloat("page_size", 20))

	result, err := m.svc.ListCourses(page, pageSize)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
	}

	resultJSON, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

// stringSliceArg pulls an array-of-strings argument out of the raw tool
// arguments, tolerating the []interface{} shape JSON decoding produces.
func stringSliceArg(args map[string]interface{}, name string) []string {
	raw, ok := args[name]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
