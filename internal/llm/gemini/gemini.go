// Package gemini adapts the Google Gen AI SDK to llm.Completer.
package gemini

import (
	"context"
	"sync"

	"google.golang.org/genai"

	"github.com/HendryAvila/prdkb/internal/llm"
)

// Name is the provider name used in config and metrics.
const Name = "gemini"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Client calls GenerateContent on the Gemini API backend. The underlying
// SDK client is created lazily on first use because construction needs a
// context.
type Client struct {
	apiKey string
	model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// New creates a client.
func New(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{apiKey: apiKey, model: model}
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return c.client, c.initErr
}

// Complete implements llm.Completer.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	client, err := c.sdk(ctx)
	if err != nil {
		return "", llm.Unavailable(Name, err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	result, err := client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", llm.Unavailable(Name, err)
	}
	text := result.Text()
	if text == "" {
		return "", llm.Unavailable(Name, llm.ErrEmptyResponse)
	}
	return text, nil
}
