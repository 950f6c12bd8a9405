package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// ContextTool handles the kb_context MCP tool.
// It renders the confirmed knowledge base as conversational context.
type ContextTool struct {
	engine *engine.Engine
}

// NewContextTool creates a ContextTool.
func NewContextTool(e *engine.Engine) *ContextTool {
	return &ContextTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ContextTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_context",
		mcp.WithDescription(
			"Read the project's confirmed knowledge base as markdown context for a requirement conversation. "+
				"Use this before discussing a new requirement so answers stay consistent with existing modules, "+
				"tech conventions and UI standards.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithString("detail_level",
			mcp.Description(
				"'summary' (overview and module names only, minimal tokens) or "+
					"'standard' (full context with conventions and recent requirements). Defaults to 'standard'.",
			),
			mcp.Enum("summary", "standard"),
		),
	)
}

// Handle processes the kb_context tool call.
func (t *ContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	text, ok, err := t.engine.GetConfirmedContext(ctx, projectID)
	if err != nil {
		return errorResult("reading context", err)
	}
	if !ok {
		return mcp.NewToolResultText(
			"No confirmed knowledge base for this project yet. " +
				"Build one with `kb_build` and confirm it with `kb_confirm`.",
		), nil
	}

	if req.GetString("detail_level", "standard") == "summary" {
		doc, err := t.engine.Get(ctx, projectID)
		if err != nil {
			return errorResult("reading context", err)
		}
		return mcp.NewToolResultText(summaryContext(doc)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func summaryContext(doc *knowledge.Document) string {
	var b strings.Builder
	b.WriteString("# Project Knowledge Base (summary)\n\n")
	ov := doc.ProjectOverview
	if ov.ProductName != "" {
		fmt.Fprintf(&b, "**Product:** %s\n", ov.ProductName)
	}
	if ov.ProductType != "" {
		fmt.Fprintf(&b, "**Type:** %s\n", ov.ProductType)
	}
	fmt.Fprintf(&b, "**Version:** %d\n", doc.Version)
	fmt.Fprintf(&b, "**Completed requirements:** %d\n\n", ov.CurrentStatus.TotalRequirements)

	names := make([]string, 0, len(doc.FeatureModules))
	for _, m := range doc.FeatureModules {
		names = append(names, fmt.Sprintf("%s (%d)", m.ModuleName, len(m.Features)))
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "**Modules:** %s\n", strings.Join(names, ", "))
	}
	return b.String()
}
