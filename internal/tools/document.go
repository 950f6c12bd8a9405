package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// GetTool handles the kb_get MCP tool.
type GetTool struct {
	engine *engine.Engine
}

// NewGetTool creates a GetTool.
func NewGetTool(e *engine.Engine) *GetTool {
	return &GetTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_get",
		mcp.WithDescription(
			"Return the project's full knowledge base as JSON, whatever its status. "+
				"Use the returned version with kb_update.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
	)
}

// Handle processes the kb_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	doc, err := t.engine.Get(ctx, projectID)
	if err != nil {
		return errorResult("reading knowledge base", err)
	}
	text, err := jsonText(doc)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(text), nil
}

// UpdateTool handles the kb_update MCP tool: a full-document replacement
// by a human editor.
type UpdateTool struct {
	engine *engine.Engine
}

// NewUpdateTool creates an UpdateTool.
func NewUpdateTool(e *engine.Engine) *UpdateTool {
	return &UpdateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_update",
		mcp.WithDescription(
			"Replace the project's knowledge base with an edited copy. "+
				"Send the whole document as returned by kb_get together with the version it was read at. "+
				"The confirmation status is kept; the version is bumped.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithObject("document",
			mcp.Required(),
			mcp.Description("The complete edited knowledge base"),
		),
		mcp.WithNumber("expected_version",
			mcp.Required(),
			mcp.Description("Version of the knowledge base the edit started from"),
		),
	)
}

// Handle processes the kb_update tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	expected := intArg(req, "expected_version", 0)
	if expected < 1 {
		return mcp.NewToolResultError("'expected_version' must be a positive version number"), nil
	}

	raw, err := objectArg(req, "document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if raw == nil {
		return mcp.NewToolResultError("'document' is required"), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	doc, err := knowledge.ParseDocument(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'document' is not a valid knowledge base: %v", err)), nil
	}

	saved, err := t.engine.Replace(ctx, projectID, doc, expected)
	if err != nil {
		return errorResult("updating knowledge base", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Knowledge base updated.\n\n**Version:** %d\n**Status:** %s\n**Modules:** %d",
		saved.Version, saved.Status, len(saved.FeatureModules),
	)), nil
}
