package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// ReviewPrompt handles the kb-review MCP prompt.
// It embeds the document's open questions and asks the AI to collect
// answers before confirming.
type ReviewPrompt struct {
	engine *engine.Engine
}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt(e *engine.Engine) *ReviewPrompt {
	return &ReviewPrompt{engine: e}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("kb-review",
		mcp.WithPromptDescription(
			"Review a pending knowledge base: answer its open questions one by "+
				"one, then confirm it.",
		),
		mcp.WithArgument("project_id",
			mcp.ArgumentDescription("Project identifier"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the kb-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectID := req.Params.Arguments["project_id"]
	if projectID == "" {
		return nil, fmt.Errorf("project_id argument is required")
	}

	doc, err := p.engine.Get(ctx, projectID)
	if errors.Is(err, knowledge.ErrNotFound) {
		return userMessage("Knowledge Base Review", fmt.Sprintf(
			"There is no knowledge base for project '%s' yet. "+
				"Help me add source fragments with `kb_add_fragment`, then run `kb_build`.",
			projectID,
		)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading knowledge base: %w", err)
	}

	if doc.Status == knowledge.StatusConfirmed {
		return userMessage("Knowledge Base Review", fmt.Sprintf(
			"The knowledge base for project '%s' is already confirmed at version %d. "+
				"Run `kb_context` and show me a summary.",
			projectID, doc.Version,
		)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The knowledge base for project '%s' (version %d) is pending confirmation.\n\n", projectID, doc.Version)
	if len(doc.PendingQuestions) == 0 {
		sb.WriteString("It has no open questions. Show me the modules via `kb_get`, ")
		sb.WriteString("and if I approve, run `kb_confirm` with an empty answers object.")
		return userMessage("Knowledge Base Review", sb.String()), nil
	}

	sb.WriteString("Ask me these questions one at a time:\n\n")
	for i, q := range doc.PendingQuestions {
		fmt.Fprintf(&sb, "%d. %s", i+1, q.Question)
		if q.SuggestedAnswer != "" {
			fmt.Fprintf(&sb, " (suggested: %s)", q.SuggestedAnswer)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nThen run `kb_confirm` with project_id='" + projectID + "' and an answers ")
	sb.WriteString("object keyed by the exact question text.")

	return userMessage("Knowledge Base Review", sb.String()), nil
}

func userMessage(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{Role: mcp.RoleUser, Content: mcp.NewTextContent(text)},
		},
	}
}
