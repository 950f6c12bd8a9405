package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// AddFragmentTool handles the kb_add_fragment MCP tool.
// It records one analyzed source (document, image, note) for a project.
type AddFragmentTool struct {
	engine *engine.Engine
}

// NewAddFragmentTool creates an AddFragmentTool.
func NewAddFragmentTool(e *engine.Engine) *AddFragmentTool {
	return &AddFragmentTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *AddFragmentTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_add_fragment",
		mcp.WithDescription(
			"Record the analysis of one project source (uploaded document, image, transcript or note). "+
				"Fragments accumulate until kb_build synthesizes them into the project's knowledge base. "+
				"Creates the project on first use.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project identifier"),
		),
		mcp.WithString("project_name",
			mcp.Description("Human-readable project name. Sets or renames the project when given."),
		),
		mcp.WithString("source_name",
			mcp.Required(),
			mcp.Description("File or source name, e.g. 'brief.pdf'"),
		),
		mcp.WithString("source_kind",
			mcp.Description("Kind of source: document, image, audio, video or text"),
			mcp.DefaultString("document"),
		),
		mcp.WithString("summary",
			mcp.Description("Content summary of the source"),
		),
		mcp.WithArray("entities",
			mcp.Description("Key entities found in the source"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("references",
			mcp.Description("External references (URLs, products, standards)"),
			mcp.WithStringItems(),
		),
		mcp.WithObject("ui_info",
			mcp.Description("UI observations such as colors, components or layout"),
		),
		mcp.WithObject("tech_info",
			mcp.Description("Technical observations such as stack, APIs or constraints"),
		),
	)
}

// Handle processes the kb_add_fragment tool call.
func (t *AddFragmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	sourceName := req.GetString("source_name", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	if sourceName == "" {
		return mcp.NewToolResultError("'source_name' is required"), nil
	}

	uiInfo, err := objectArg(req, "ui_info")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	techInfo, err := objectArg(req, "tech_info")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	frag := &knowledge.Fragment{
		ProjectID:  projectID,
		SourceName: sourceName,
		SourceKind: req.GetString("source_kind", "document"),
		Summary:    req.GetString("summary", ""),
		Entities:   stringSliceArg(req, "entities"),
		References: stringSliceArg(req, "references"),
		UIInfo:     uiInfo,
		TechInfo:   techInfo,
	}
	if err := t.engine.AddFragment(ctx, req.GetString("project_name", ""), frag); err != nil {
		return errorResult("adding fragment", err)
	}

	frags, err := t.engine.ListFragments(ctx, projectID)
	if err != nil {
		return errorResult("listing fragments", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Fragment recorded.\n\n"+
			"**Project:** %s\n"+
			"**Fragment ID:** %s\n"+
			"**Source:** %s (%s)\n"+
			"**Fragments so far:** %d\n\n"+
			"Run `kb_build` once all sources are analyzed.",
		projectID, frag.ID, frag.SourceName, frag.SourceKind, len(frags),
	)), nil
}
