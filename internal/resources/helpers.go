package resources

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	knowledgeURIPrefix = "kb://projects/"
	knowledgeURISuffix = "/knowledge"
)

// projectIDFromRequest returns the project_id template variable, falling
// back to parsing the URI when the server did not fill the arguments.
func projectIDFromRequest(req mcp.ReadResourceRequest) (string, error) {
	switch v := req.Params.Arguments["project_id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case []string:
		if len(v) > 0 && v[0] != "" {
			return v[0], nil
		}
	}

	uri := req.Params.URI
	if !strings.HasPrefix(uri, knowledgeURIPrefix) || !strings.HasSuffix(uri, knowledgeURISuffix) {
		return "", fmt.Errorf("unsupported resource URI %q", uri)
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, knowledgeURIPrefix), knowledgeURISuffix)
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("resource URI %q has no project id", uri)
	}
	return id, nil
}
