// Package ollama adapts a local Ollama server to llm.Completer.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/HendryAvila/prdkb/internal/llm"
)

// Name is the provider name used in config and metrics.
const Name = "ollama"

// DefaultHost is used when no host is configured.
const DefaultHost = "http://localhost:11434"

// DefaultModel is used when no model is configured.
const DefaultModel = "llama3.1"

// Client calls the Ollama chat endpoint without streaming.
type Client struct {
	client *api.Client
	model  string
}

// New creates a client for the server at host.
func New(host, model string, httpClient *http.Client) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse host %q: %w", host, err)
	}
	return &Client{client: api.NewClient(u, httpClient), model: model}, nil
}

// Complete implements llm.Completer.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]api.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	stream := false
	chat := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	var content string
	err := c.client.Chat(ctx, chat, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", llm.Unavailable(Name, err)
	}
	if content == "" {
		return "", llm.Unavailable(Name, llm.ErrEmptyResponse)
	}
	return content, nil
}
