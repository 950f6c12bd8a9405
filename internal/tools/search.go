package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// defaultSearchLimit caps kb_search results when no limit is given.
const defaultSearchLimit = 10

// SearchTool handles the kb_search MCP tool.
type SearchTool struct {
	engine *engine.Engine
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(e *engine.Engine) *SearchTool {
	return &SearchTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_search",
		mcp.WithDescription(
			"Search the project's confirmed knowledge base: completed requirements, modules, features, "+
				"tech patterns and UI standards, ranked by relevance. Pending knowledge bases return nothing.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
		mcp.WithString("type",
			mcp.Description("Restrict results to one kind"),
			mcp.Enum(knowledge.FilterRequirement, knowledge.FilterModule, knowledge.FilterFeature,
				knowledge.FilterTech, knowledge.FilterUI),
		),
		mcp.WithString("module",
			mcp.Description("Restrict module and feature results to this module name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10, 0 for all)"),
		),
	)
}

// Handle processes the kb_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	query := req.GetString("query", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	filters := knowledge.Filters{
		Type:   req.GetString("type", ""),
		Module: req.GetString("module", ""),
		Limit:  intArg(req, "limit", defaultSearchLimit),
	}
	if err := knowledge.ValidateFilterType(filters.Type); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := t.engine.Search(ctx, projectID, query, filters)
	if err != nil {
		return errorResult("searching knowledge base", err)
	}
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No results for %q. The knowledge base may be missing or not yet confirmed.", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Search: %q\n\n%d result(s)\n\n", query, len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] **%s** (score %.1f)\n", i+1, r.Type, r.Title, r.Score)
		if r.ModuleName != "" && r.Type == knowledge.ResultFeature {
			fmt.Fprintf(&b, "   Module: %s\n", r.ModuleName)
		}
		if r.Description != "" {
			fmt.Fprintf(&b, "   %s\n", knowledge.Truncate(r.Description, 200))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
