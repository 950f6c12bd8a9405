// Package prompts implements MCP prompt handlers for the knowledge base.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the kb-start MCP prompt.
// It guides the AI through ingesting project sources and building the
// first knowledge base version.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("kb-start",
		mcp.WithPromptDescription(
			"Start a project knowledge base. Collects your source documents as "+
				"fragments, synthesizes the first version and walks you through "+
				"its open questions.",
		),
		mcp.WithArgument("project_id",
			mcp.ArgumentDescription("Stable identifier for the project"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("project_name",
			mcp.ArgumentDescription("Human-readable project name"),
		),
	)
}

// Handle processes the kb-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectID := req.Params.Arguments["project_id"]
	if projectID == "" {
		return nil, fmt.Errorf("project_id argument is required")
	}
	projectName := req.Params.Arguments["project_name"]
	if projectName == "" {
		projectName = projectID
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Start knowledge base: %s", projectName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to build a knowledge base for the project '%s' (id: %s).\n\n"+
						"Please:\n"+
						"1. Ask me for the source documents I have (specs, meeting notes, designs)\n"+
						"2. For each one, extract a summary, key entities, references, UI info and tech info, "+
						"then run `kb_add_fragment` with project_id='%s' and project_name='%s'\n"+
						"3. When I say I'm done, run `kb_build` with project_id='%s'\n"+
						"4. Walk me through the pending questions one at a time and collect my answers\n"+
						"5. Run `kb_confirm` with my answers so the knowledge base becomes usable",
					projectName, projectID, projectID, projectName, projectID,
				)),
			},
		},
	}, nil
}
