// Package llm defines the text-completion port used by synthesis and
// evolution, plus the adapters and helpers shared by every provider.
//
// Provider adapters live in subpackages (anthropic, openai, gemini,
// ollama). Each returns errors wrapping ErrUnavailable so callers can
// tell a capability failure from a parse failure.
package llm

import "context"

// Operation labels used for logging and metrics.
const (
	OpSynthesis      = "synthesis"
	OpClassification = "classification"
	OpSummary        = "summary"
)

// Request is a single prompt-in, text-out completion.
type Request struct {
	// Operation names the caller's purpose, e.g. OpSynthesis.
	Operation string
	// System is the system instruction. Optional.
	System string
	// Prompt is the user message.
	Prompt string
	// Temperature controls randomness.
	Temperature float64
	// MaxTokens limits the response length. Zero uses the adapter default.
	MaxTokens int
}

// Completer produces text for a prompt. Implementations must honor ctx
// cancellation and must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f(ctx, req).
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// DefaultMaxTokens is used by adapters when a request leaves MaxTokens unset.
const DefaultMaxTokens = 8192
