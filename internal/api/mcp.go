package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/signalboard/internal/export"
	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/pipeline"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Dashboard *pipeline.Dashboard
	Version   string
}

// NewMCPServer creates an MCP server with the dashboard tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"signalboard",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("signalboard clusters social posts by pain point and recommends product marketing scenarios."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("run_clustering",
			mcp.WithDescription("Assign every post to the best matching taxonomy cluster and rebuild the cluster summaries."),
			mcp.WithNumber("count", mcp.Description("Number of taxonomy clusters to use (default 8; 0 selects none)")),
			mcp.WithString("strictness", mcp.Description("Loose, Medium or Strict (recorded only)")),
		),
		mcpRunClustering(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_scenarios",
			mcp.WithDescription("Generate marketing scenarios for clusters and append them to the scenario list."),
			mcp.WithArray("cluster_ids", mcp.Description("Clusters to use; all clusters when omitted, none when empty")),
		),
		mcpGenerateScenarios(deps),
	)

	s.AddTool(
		mcp.NewTool("update_scenario_status",
			mcp.WithDescription("Move a scenario through the workflow: New, Selected, In Production, Published."),
			mcp.WithString("scenario_id", mcp.Description("Scenario id"), mcp.Required()),
			mcp.WithString("status", mcp.Description("New status"), mcp.Required()),
		),
		mcpUpdateScenarioStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("add_search_query",
			mcp.WithDescription("Add a seed search query used to collect posts."),
			mcp.WithString("query", mcp.Description("Query text"), mcp.Required()),
		),
		mcpAddSearchQuery(deps),
	)

	s.AddTool(
		mcp.NewTool("export_recommendations",
			mcp.WithDescription("Return the cluster-to-product recommendations as CSV text."),
		),
		mcpExportRecommendations(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"dashboard://clusters",
			"Clusters",
			mcp.WithResourceDescription("Current cluster summaries as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceJSON(func() any { return deps.Dashboard.Clusters() }),
	)

	s.AddResource(
		mcp.NewResource(
			"dashboard://scenarios",
			"Scenarios",
			mcp.WithResourceDescription("All scenarios as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceJSON(func() any { return deps.Dashboard.Scenarios() }),
	)

	s.AddResource(
		mcp.NewResource(
			"dashboard://stats",
			"Scenario Statistics",
			mcp.WithResourceDescription("Scenario averages and top products as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceJSON(func() any { return deps.Dashboard.Stats() }),
	)

	return s
}

func mcpRunClustering(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		count := req.GetInt("count", defaultClusterCount)
		strictness, err := pipeline.ParseStrictness(req.GetString("strictness", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		res, err := deps.Dashboard.RunClustering(ctx, count, strictness)
		if err != nil {
			return mcpError(fmt.Sprintf("clustering failed: %v", err)), nil
		}

		type clusterResult struct {
			ID        string   `json:"cluster_id"`
			Label     string   `json:"cluster_label"`
			PostCount int      `json:"post_count"`
			TopTerms  []string `json:"top_terms"`
		}
		results := make([]clusterResult, len(res.Clusters))
		for i, c := range res.Clusters {
			results[i] = clusterResult{ID: c.ID, Label: c.Label, PostCount: c.PostCount, TopTerms: c.SummaryTerms()}
		}
		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal clusters: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGenerateScenarios(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := req.GetStringSlice("cluster_ids", nil)

		generated, err := deps.Dashboard.GenerateScenarios(ctx, ids)
		if err != nil {
			return mcpError(fmt.Sprintf("scenario generation failed: %v", err)), nil
		}
		if len(generated) == 0 {
			return mcpText("[]"), nil
		}

		type scenarioResult struct {
			ID        string   `json:"scenario_id"`
			ClusterID string   `json:"cluster_id"`
			Title     string   `json:"title"`
			Hook      string   `json:"hook"`
			Products  []string `json:"products"`
		}
		results := make([]scenarioResult, len(generated))
		for i, s := range generated {
			results[i] = scenarioResult{
				ID:        s.ID,
				ClusterID: s.ClusterID,
				Title:     s.Title,
				Hook:      s.Hook,
				Products:  s.ProductNames(),
			}
		}
		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal scenarios: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpUpdateScenarioStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("scenario_id")
		if err != nil {
			return mcpError("scenario_id is required"), nil
		}
		raw, err := req.RequireString("status")
		if err != nil {
			return mcpError("status is required"), nil
		}
		status, err := model.ParseStatus(raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if err := deps.Dashboard.UpdateScenarioStatus(id, status); err != nil {
			return mcpError(fmt.Sprintf("failed to update status: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Changed scenario %s to %s", id, status)), nil
	}
}

func mcpAddSearchQuery(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		q, err := deps.Dashboard.AddSearchQuery(query)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(fmt.Sprintf("Added query %s", q.ID)), nil
	}
}

func mcpExportRecommendations(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t := export.Recommendations(deps.Dashboard.Clusters(), deps.Dashboard.Scenarios())
		return mcpText(t.String()), nil
	}
}

func mcpResourceJSON(snapshot func() any) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(snapshot())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", req.Params.URI, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
