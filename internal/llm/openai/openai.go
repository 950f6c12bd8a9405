// Package openai adapts the OpenAI Responses API to llm.Completer.
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/HendryAvila/prdkb/internal/llm"
)

// Name is the provider name used in config and metrics.
const Name = "openai"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1"

// Client calls the Responses API.
type Client struct {
	client openai.Client
	model  string
}

// New creates a client. A non-empty baseURL targets an OpenAI-compatible
// endpoint.
func New(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{client: openai.NewClient(opts...), model: model}
}

// Complete implements llm.Completer.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Temperature:     openai.Float(req.Temperature),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(req.Prompt)},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", llm.Unavailable(Name, err)
	}
	text := resp.OutputText()
	if text == "" {
		return "", llm.Unavailable(Name, llm.ErrEmptyResponse)
	}
	return text, nil
}
