// Package evolution folds completed requirements into an existing
// knowledge document: ledger archival, module classification, and tech
// and UI merges.
package evolution

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm"
)

// Outcome describes how an evolution pass went.
type Outcome struct {
	// Fallback is set when classification failed and the requirement was
	// placed in the fallback module.
	Fallback bool
	// Cause is the classification failure behind a fallback.
	Cause error
	// Duplicate is set when the requirement was already in the ledger.
	Duplicate bool
	// Module is the module the requirement's feature was placed in.
	Module string
	// NewModule is set when Module did not exist before this pass.
	NewModule bool
}

// Merger runs evolution passes.
type Merger struct {
	completer        llm.Completer
	transcriptBudget int
	fallbackModule   string
	maxTokens        int
	logger           *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithTranscriptBudget bounds the transcript excerpt sent for
// classification.
func WithTranscriptBudget(n int) Option {
	return func(m *Merger) {
		if n > 0 {
			m.transcriptBudget = n
		}
	}
}

// WithFallbackModule overrides the module used when classification fails.
func WithFallbackModule(name string) Option {
	return func(m *Merger) {
		if name != "" {
			m.fallbackModule = name
		}
	}
}

// WithMaxTokens sets the response token limit of the classification call.
func WithMaxTokens(n int) Option {
	return func(m *Merger) { m.maxTokens = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) { m.logger = l }
}

// NewMerger creates a Merger that classifies with c.
func NewMerger(c llm.Completer, opts ...Option) *Merger {
	m := &Merger{
		completer:        c,
		transcriptBudget: DefaultTranscriptBudget,
		fallbackModule:   knowledge.FallbackModule,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Complete archives req into the ledger and evolves the document with it.
// A reference already in the ledger is not archived again, but the
// classification and merge still run. doc is never mutated; the returned
// document is at doc.Version+1.
func (m *Merger) Complete(ctx context.Context, doc *knowledge.Document, req knowledge.Requirement, transcript string) (*knowledge.Document, Outcome, error) {
	if err := validate(doc, req); err != nil {
		return nil, Outcome{}, err
	}
	work := knowledge.Clone(doc)
	duplicate := !knowledge.ArchiveRequirement(work, req)

	out, err := m.evolve(ctx, work, req, transcript)
	if err != nil {
		return nil, Outcome{}, err
	}
	out.Duplicate = duplicate
	return work, out, nil
}

// Evolve classifies req and merges it into a copy of doc without touching
// the ledger. doc is never mutated; the returned document is at
// doc.Version+1.
func (m *Merger) Evolve(ctx context.Context, doc *knowledge.Document, req knowledge.Requirement, transcript string) (*knowledge.Document, Outcome, error) {
	if err := validate(doc, req); err != nil {
		return nil, Outcome{}, err
	}
	work := knowledge.Clone(doc)
	out, err := m.evolve(ctx, work, req, transcript)
	if err != nil {
		return nil, Outcome{}, err
	}
	return work, out, nil
}

// evolve mutates work in place. Nothing is changed when it returns an
// error.
func (m *Merger) evolve(ctx context.Context, work *knowledge.Document, req knowledge.Requirement, transcript string) (Outcome, error) {
	var out Outcome

	cls, err := m.classify(ctx, work, req, transcript)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		m.logger.Warn("classification failed, using fallback module",
			"origin_reference", req.OriginReference,
			"fallback_module", m.fallbackModule,
			"error", err)
		out.Fallback, out.Cause = true, err
		cls = Classification{ModuleAssignment: knowledge.Assignment{ModuleName: m.fallbackModule}}
	}

	out.Module = cls.ModuleAssignment.ModuleName
	out.NewModule = knowledge.FindModule(work, out.Module) == nil
	knowledge.AssignFeature(work, cls.ModuleAssignment, knowledge.FeatureFromRequirement(req))
	knowledge.MergeTech(work, cls.TechInsights)
	knowledge.MergeUI(work, cls.UIInsights)
	knowledge.RecomputeStatus(work)
	work.Version++

	m.logger.Info("requirement merged",
		"origin_reference", req.OriginReference,
		"module", out.Module,
		"new_module", out.NewModule,
		"fallback", out.Fallback,
		"version", work.Version)
	return out, nil
}

func (m *Merger) classify(ctx context.Context, doc *knowledge.Document, req knowledge.Requirement, transcript string) (Classification, error) {
	names := make([]string, 0, len(doc.FeatureModules))
	for _, mod := range doc.FeatureModules {
		names = append(names, mod.ModuleName)
	}

	raw, err := m.completer.Complete(ctx, llm.Request{
		Operation:   llm.OpClassification,
		System:      classifySystemPrompt,
		Prompt:      classificationPrompt(req, names, transcript, m.transcriptBudget),
		Temperature: ClassificationTemperature,
		MaxTokens:   m.maxTokens,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", knowledge.ErrClassification, err)
	}
	return parseClassification(raw)
}

func validate(doc *knowledge.Document, req knowledge.Requirement) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", knowledge.ErrInvalidDocument)
	}
	if req.OriginReference == "" {
		return fmt.Errorf("%w: origin reference is required", knowledge.ErrInvalidRequirement)
	}
	return nil
}
