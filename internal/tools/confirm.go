package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
)

// ConfirmTool handles the kb_confirm MCP tool.
// Confirmation is the human gate between a synthesized knowledge base and
// its use as conversational context.
type ConfirmTool struct {
	engine *engine.Engine
}

// NewConfirmTool creates a ConfirmTool.
func NewConfirmTool(e *engine.Engine) *ConfirmTool {
	return &ConfirmTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ConfirmTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_confirm",
		mcp.WithDescription(
			"Confirm the project's knowledge base after the user has reviewed it. "+
				"Optional answers to pending questions are recorded as insights and clear the pending questions. "+
				"Only confirmed knowledge is used as context and searchable.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithObject("answers",
			mcp.Description("Map of pending question text to the user's answer"),
		),
	)
}

// Handle processes the kb_confirm tool call.
func (t *ConfirmTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	raw, err := objectArg(req, "answers")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answers := make(map[string]string, len(raw))
	for q, a := range raw {
		s, ok := a.(string)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("answer to %q must be a string", q)), nil
		}
		answers[q] = s
	}

	doc, err := t.engine.Confirm(ctx, projectID, answers)
	if err != nil {
		return errorResult("confirming knowledge base", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Knowledge Base Confirmed\n\n"+
			"**Version:** %d\n"+
			"**Answers recorded:** %d\n"+
			"**Open questions:** %d\n\n"+
			"The knowledge base is now used as context (`kb_context`) and is searchable (`kb_search`).",
		doc.Version, len(answers), len(doc.PendingQuestions),
	)), nil
}
