package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the kb-status MCP prompt.
// It instructs the AI to read and present the project's knowledge state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("kb-status",
		mcp.WithPromptDescription(
			"Check the status of a project knowledge base. Shows the version, "+
				"confirmation state, modules and completed requirements.",
		),
		mcp.WithArgument("project_id",
			mcp.ArgumentDescription("Project identifier"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the kb-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectID := req.Params.Arguments["project_id"]
	if projectID == "" {
		return nil, fmt.Errorf("project_id argument is required")
	}

	return &mcp.GetPromptResult{
		Description: "Knowledge Base Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run `kb_context` with project_id='%s' and detail_level='summary' "+
						"to check my knowledge base.\n\n"+
						"Then:\n"+
						"1. Show me the version and whether it is pending or confirmed\n"+
						"2. List the feature modules with their feature counts\n"+
						"3. Summarize the completed requirements\n"+
						"4. If it is still pending, tell me to run the kb-review prompt",
					projectID,
				)),
			},
		},
	}, nil
}
