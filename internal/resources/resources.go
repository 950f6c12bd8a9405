// Package resources implements MCP resource handlers for the knowledge
// base.
//
// Resources provide read-only data that the host can attach as context.
// They use URI-based addressing (kb://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// KnowledgeURITemplate addresses one project's knowledge base.
const KnowledgeURITemplate = "kb://projects/{project_id}/knowledge"

// Handler manages knowledge base resource endpoints.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// KnowledgeTemplate returns the MCP resource template for a project's
// knowledge base.
func (h *Handler) KnowledgeTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		KnowledgeURITemplate,
		"Project Knowledge Base",
		mcp.WithTemplateDescription("The project's full knowledge base as JSON, in any status"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleKnowledge returns the project's knowledge base as JSON.
func (h *Handler) HandleKnowledge(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projectID, err := projectIDFromRequest(req)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	doc, err := h.engine.Get(ctx, projectID)
	if errors.Is(err, knowledge.ErrNotFound) {
		return errorResource(req.Params.URI, fmt.Sprintf("no knowledge base for project %q", projectID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading knowledge base: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling knowledge base: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
