// Package anthropic adapts the Anthropic Messages API to llm.Completer.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/HendryAvila/prdkb/internal/llm"
)

// Name is the provider name used in config and metrics.
const Name = "anthropic"

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// Client calls the Messages API.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a client. Extra request options (base URL, HTTP client)
// are passed through to the SDK.
func New(apiKey, model string, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
	}
}

// Complete implements llm.Completer.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System, Type: "text"}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", llm.Unavailable(Name, fmt.Errorf("status %d: %w", apiErr.StatusCode, err))
		}
		return "", llm.Unavailable(Name, err)
	}

	var b strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	if b.Len() == 0 {
		return "", llm.Unavailable(Name, llm.ErrEmptyResponse)
	}
	return b.String(), nil
}
