// Package synthesis turns a project's analysis fragments into its first
// knowledge document with a single completion call.
package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm"
)

// Temperature used for the synthesis call.
const Temperature = 0.3

// Degraded document constants.
const (
	degradedProductType     = "unknown"
	degradedQuestion        = "AI-generated knowledge base has a format error and needs manual reconciliation"
	degradedQuestionContext = "the model did not return a well-formed JSON document"
	degradedDescriptionLen  = 200
	degradedInsightLen      = 500
)

// Outcome describes how a build produced its document.
type Outcome struct {
	// Degraded is set when the model output could not be parsed and a
	// minimal placeholder document was returned instead.
	Degraded bool
	// Cause is the parse error behind a degraded build.
	Cause error
}

// Builder synthesizes knowledge documents.
type Builder struct {
	completer llm.Completer
	budget    int
	maxTokens int
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithContextBudget sets the character budget of the assembled context.
func WithContextBudget(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.budget = n
		}
	}
}

// WithMaxTokens sets the response token limit of the synthesis call.
func WithMaxTokens(n int) Option {
	return func(b *Builder) { b.maxTokens = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder that calls c.
func NewBuilder(c llm.Completer, opts ...Option) *Builder {
	b := &Builder{completer: c, budget: DefaultContextBudget, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build synthesizes a document from frags. It makes exactly one completion
// call. Unparsable output yields a degraded document rather than an error;
// capability failures and cancellation are returned unchanged and produce
// no document.
//
// The result is normalized, valid, at version 1 and pending, with an empty
// ledger.
func (b *Builder) Build(ctx context.Context, projectName string, frags []knowledge.Fragment) (*knowledge.Document, Outcome, error) {
	if len(frags) == 0 {
		return nil, Outcome{}, knowledge.ErrNoFragments
	}

	prompt := RenderPrompt(BuildContext(projectName, frags, b.budget))
	b.logger.Info("synthesizing knowledge document",
		"project", projectName,
		"fragments", len(frags),
		"prompt_chars", len(prompt))

	raw, err := b.completer.Complete(ctx, llm.Request{
		Operation:   llm.OpSynthesis,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: Temperature,
		MaxTokens:   b.maxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, Outcome{}, ctxErr
		}
		return nil, Outcome{}, fmt.Errorf("synthesis: %w", err)
	}

	doc, err := Parse(raw)
	if err != nil {
		b.logger.Warn("synthesis output not parsable, returning degraded document",
			"project", projectName,
			"error", err,
			"response_head", knowledge.Prefix(raw, degradedInsightLen))
		return Degraded(raw), Outcome{Degraded: true, Cause: err}, nil
	}
	return doc, Outcome{}, nil
}

// modelDocument is the shape accepted from the model: the document itself
// plus the older functional_architecture layout some models fall back to.
type modelDocument struct {
	knowledge.Document
	FunctionalArchitecture *struct {
		Modules []struct {
			Name        string              `json:"name"`
			ModuleName  string              `json:"module_name"`
			Description string              `json:"description"`
			Priority    string              `json:"priority"`
			Features    []knowledge.Feature `json:"features"`
		} `json:"modules"`
	} `json:"functional_architecture"`
}

// Parse extracts and decodes a document from model output. Errors wrap
// knowledge.ErrSynthesisParse.
func Parse(raw string) (*knowledge.Document, error) {
	payload := llm.ExtractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", knowledge.ErrSynthesisParse)
	}

	var md modelDocument
	if err := json.Unmarshal([]byte(payload), &md); err != nil {
		return nil, fmt.Errorf("%w: %w", knowledge.ErrSynthesisParse, err)
	}
	doc := md.Document
	if len(doc.FeatureModules) == 0 && md.FunctionalArchitecture != nil {
		for _, m := range md.FunctionalArchitecture.Modules {
			name := m.ModuleName
			if name == "" {
				name = m.Name
			}
			doc.FeatureModules = append(doc.FeatureModules, knowledge.Module{
				ModuleName:  name,
				Description: m.Description,
				Priority:    m.Priority,
				Features:    m.Features,
			})
		}
	}

	// Bookkeeping fields are never taken from the model.
	doc.Version = 1
	doc.Status = knowledge.StatusPending
	doc.CompletedRequirements = nil
	doc.CreatedAt, doc.UpdatedAt = "", ""

	knowledge.Normalize(&doc)
	if err := knowledge.Validate(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", knowledge.ErrSynthesisParse, err)
	}
	return &doc, nil
}

// Degraded returns the placeholder document used when model output cannot
// be parsed.
func Degraded(raw string) *knowledge.Document {
	doc := knowledge.New()
	doc.ProjectOverview.ProductType = degradedProductType
	doc.ProjectOverview.Description = knowledge.Prefix(raw, degradedDescriptionLen)
	doc.PendingQuestions = []knowledge.PendingQuestion{{
		Category: "format",
		Question: degradedQuestion,
		Context:  degradedQuestionContext,
		Priority: "high",
	}}
	doc.RawInsights = []string{knowledge.Prefix(raw, degradedInsightLen)}
	return doc
}

// IsDegraded reports whether doc is a degraded placeholder.
func IsDegraded(doc *knowledge.Document) bool {
	if doc == nil {
		return false
	}
	for _, q := range doc.PendingQuestions {
		if q.Question == degradedQuestion {
			return true
		}
	}
	return false
}

// IsParseError reports whether err came from Parse.
func IsParseError(err error) bool {
	return errors.Is(err, knowledge.ErrSynthesisParse)
}
