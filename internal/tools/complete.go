package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/evolution"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// CompleteRequirementTool handles the kb_complete_requirement MCP tool.
// Each call archives one finished requirement conversation and evolves
// the knowledge base with it.
type CompleteRequirementTool struct {
	engine *engine.Engine
}

// NewCompleteRequirementTool creates a CompleteRequirementTool.
func NewCompleteRequirementTool(e *engine.Engine) *CompleteRequirementTool {
	return &CompleteRequirementTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *CompleteRequirementTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_complete_requirement",
		mcp.WithDescription(
			"Fold a completed requirement conversation into the project's knowledge base. "+
				"The requirement is archived, placed in a feature module, and any new tech or UI conventions are merged. "+
				"Give title/description directly, or only the conversation messages to have them summarized. "+
				"Re-sending the same origin_reference never archives it twice.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithString("origin_reference",
			mcp.Required(),
			mcp.Description("Stable ID of the source conversation"),
		),
		mcp.WithString("title",
			mcp.Description("Requirement title. Summarized from messages when omitted."),
		),
		mcp.WithString("description",
			mcp.Description("Requirement description"),
		),
		mcp.WithArray("key_points",
			mcp.Description("Key points of the requirement"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("prd_generated",
			mcp.Description("Whether a PRD was generated from the conversation"),
		),
		mcp.WithString("transcript",
			mcp.Description("Conversation transcript used to classify the requirement"),
		),
		mcp.WithArray("messages",
			mcp.Description("Conversation messages as {role, content} objects, role 'user' or 'assistant'"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"role":    map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
				},
			}),
		),
	)
}

// Handle processes the kb_complete_requirement tool call.
func (t *CompleteRequirementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	ref := req.GetString("origin_reference", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	if ref == "" {
		return mcp.NewToolResultError("'origin_reference' is required"), nil
	}

	msgs := messagesArg(req)
	transcript := req.GetString("transcript", "")
	if transcript == "" {
		transcript = evolution.FormatTranscript(msgs)
	}

	requirement := knowledge.Requirement{
		Title:        req.GetString("title", ""),
		Description:  req.GetString("description", ""),
		KeyPoints:    stringSliceArg(req, "key_points"),
		PRDGenerated: boolArg(req, "prd_generated", false),
	}
	if requirement.Title == "" {
		if len(msgs) == 0 {
			return mcp.NewToolResultError("give either 'title' or the conversation 'messages'"), nil
		}
		summary, err := t.engine.Summarize(ctx, msgs)
		if err != nil {
			return errorResult("summarizing conversation", err)
		}
		if requirement.Description != "" {
			summary.Description = requirement.Description
		}
		if len(requirement.KeyPoints) > 0 {
			summary.KeyPoints = requirement.KeyPoints
		}
		summary.PRDGenerated = summary.PRDGenerated || requirement.PRDGenerated
		requirement = summary
	}
	requirement.OriginReference = ref

	res, err := t.engine.CompleteRequirement(ctx, projectID, requirement, transcript)
	if err != nil {
		return errorResult("completing requirement", err)
	}
	return mcp.NewToolResultText(formatCompletion(requirement, res)), nil
}

// messagesArg reads the messages array, skipping malformed entries.
func messagesArg(req mcp.CallToolRequest) []evolution.Message {
	items, _ := req.GetArguments()["messages"].([]any)
	msgs := make([]evolution.Message, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		if strings.TrimSpace(content) == "" {
			continue
		}
		msgs = append(msgs, evolution.Message{Role: role, Content: content})
	}
	return msgs
}

func formatCompletion(req knowledge.Requirement, res *engine.EvolveResult) string {
	var b strings.Builder
	b.WriteString("# Requirement Merged\n\n")
	fmt.Fprintf(&b, "**Requirement:** %s\n", req.Title)
	fmt.Fprintf(&b, "**Module:** %s", res.Outcome.Module)
	if res.Outcome.NewModule {
		b.WriteString(" (new)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "**Version:** %d\n", res.Document.Version)
	fmt.Fprintf(&b, "**Completed requirements:** %d\n", res.Document.ProjectOverview.CurrentStatus.TotalRequirements)

	if res.Outcome.Duplicate {
		b.WriteString("\nThis conversation was already archived; the ledger was left unchanged.\n")
	}
	if res.Outcome.Fallback {
		fmt.Fprintf(&b, "\nThe requirement could not be classified automatically and was placed in %q. "+
			"Move it with `kb_update` if needed.\n", res.Outcome.Module)
	}
	if res.Attempts > 1 {
		fmt.Fprintf(&b, "\nMerged after %d attempts due to concurrent edits.\n", res.Attempts)
	}
	return b.String()
}
