package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
)

// DeleteProjectTool handles the kb_delete_project MCP tool.
type DeleteProjectTool struct {
	engine *engine.Engine
}

// NewDeleteProjectTool creates a DeleteProjectTool.
func NewDeleteProjectTool(e *engine.Engine) *DeleteProjectTool {
	return &DeleteProjectTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_delete_project",
		mcp.WithDescription(
			"Permanently delete a project with all its fragments and its knowledge base. "+
				"Requires confirm=true. This cannot be undone.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true to delete"),
		),
	)
}

// Handle processes the kb_delete_project tool call.
func (t *DeleteProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	if !boolArg(req, "confirm", false) {
		return mcp.NewToolResultError("deletion not confirmed: pass confirm=true to delete the project"), nil
	}

	if err := t.engine.DeleteProject(ctx, projectID); err != nil {
		return errorResult("deleting project", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Project %q deleted with its fragments and knowledge base.", projectID)), nil
}
