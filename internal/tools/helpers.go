// Package tools implements the MCP tool handlers of the knowledge base.
//
// Each tool is a struct holding the engine, with Definition() returning the
// mcp.Tool schema and Handle() processing a call. One file per tool.
//
// Caller mistakes (unknown project, stale version, missing fragments) are
// returned as tool error results so the assistant can react; only
// unexpected failures are returned as Go errors.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm"
)

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringSliceArg accepts a JSON array of strings or a comma-separated
// string. Blank entries are dropped.
func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	out := []string{}
	switch v := req.GetArguments()[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// objectArg accepts a JSON object or a string holding one. A missing key
// yields nil.
func objectArg(req mcp.CallToolRequest, key string) (map[string]any, error) {
	switch v := req.GetArguments()[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("'%s' must be a JSON object: %w", key, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("'%s' must be a JSON object", key)
	}
}

// jsonText renders v as indented JSON.
func jsonText(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling result: %w", err)
	}
	return string(data), nil
}

// errorResult maps engine errors to tool results. Caller-facing failures
// become error results; anything else is returned as an error.
func errorResult(action string, err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case errors.Is(err, knowledge.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf(
			"%s: no knowledge base found for this project. Add fragments with kb_add_fragment and run kb_build first.", action)), nil
	case errors.Is(err, knowledge.ErrVersionConflict):
		return mcp.NewToolResultError(fmt.Sprintf(
			"%s: the knowledge base changed since it was read. Fetch it again with kb_get and retry.", action)), nil
	case errors.Is(err, knowledge.ErrNoFragments):
		return mcp.NewToolResultError(fmt.Sprintf(
			"%s: the project has no analyzed sources yet. Add them with kb_add_fragment.", action)), nil
	case errors.Is(err, knowledge.ErrInvalidDocument),
		errors.Is(err, knowledge.ErrInvalidRequirement),
		errors.Is(err, knowledge.ErrInvalidStatus):
		return mcp.NewToolResultError(fmt.Sprintf("%s: invalid input: %v", action, err)), nil
	case errors.Is(err, llm.ErrUnavailable):
		return mcp.NewToolResultError(fmt.Sprintf("%s: the language model is unavailable, try again later: %v", action, err)), nil
	default:
		return nil, fmt.Errorf("%s: %w", action, err)
	}
}
