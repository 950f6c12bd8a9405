package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// BuildTool handles the kb_build MCP tool.
type BuildTool struct {
	engine *engine.Engine
}

// NewBuildTool creates a BuildTool.
func NewBuildTool(e *engine.Engine) *BuildTool {
	return &BuildTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *BuildTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_build",
		mcp.WithDescription(
			"Synthesize the project's knowledge base from all recorded fragments. "+
				"Returns the existing knowledge base unchanged unless force_rebuild is set. "+
				"A new or rebuilt knowledge base is pending until confirmed with kb_confirm.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithString("project_name",
			mcp.Description("Project name used in the synthesis prompt. Defaults to the stored name."),
		),
		mcp.WithBoolean("force_rebuild",
			mcp.Description("Replace an existing knowledge base with a fresh synthesis (default: false)"),
		),
	)
}

// Handle processes the kb_build tool call.
func (t *BuildTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	res, err := t.engine.Build(ctx, projectID, req.GetString("project_name", ""), boolArg(req, "force_rebuild", false))
	if err != nil {
		return errorResult("building knowledge base", err)
	}
	return mcp.NewToolResultText(formatBuild(res)), nil
}

func formatBuild(res *engine.BuildResult) string {
	doc := res.Document
	var b strings.Builder

	switch {
	case !res.Created:
		b.WriteString("# Knowledge Base Already Exists\n\n")
		b.WriteString("Returned the stored version. Pass `force_rebuild: true` to synthesize it again.\n\n")
	case res.Degraded:
		b.WriteString("# Knowledge Base Needs Reconciliation\n\n")
		b.WriteString("The model's answer could not be parsed, so a placeholder was stored. " +
			"Review it with `kb_get` and fix it with `kb_update`, or rebuild.\n\n")
	default:
		b.WriteString("# Knowledge Base Built\n\n")
	}

	fmt.Fprintf(&b, "**Version:** %d\n", doc.Version)
	fmt.Fprintf(&b, "**Status:** %s\n", doc.Status)
	if doc.ProjectOverview.ProductType != "" {
		fmt.Fprintf(&b, "**Product type:** %s\n", doc.ProjectOverview.ProductType)
	}
	fmt.Fprintf(&b, "**Modules:** %d\n\n", len(doc.FeatureModules))

	for _, m := range doc.FeatureModules {
		fmt.Fprintf(&b, "- **%s** (%d features)\n", m.ModuleName, len(m.Features))
	}

	if len(doc.PendingQuestions) > 0 {
		b.WriteString("\n## Pending Questions\n\n")
		for i, q := range doc.PendingQuestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
		}
	}

	if doc.Status == knowledge.StatusPending {
		b.WriteString("\nAnswer the questions and confirm with `kb_confirm` before the knowledge base is used as context.")
	}
	return b.String()
}
