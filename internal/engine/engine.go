// Package engine is the produced interface of the knowledge base: it ties
// the document store to the synthesis builder, the evolution merger and the
// confirmation gate, and serves read-only projections to consumers.
//
// The engine owns every document write. Writes are optimistic; completion
// passes re-read and recompute on a version conflict, other writes surface
// it to the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/HendryAvila/prdkb/internal/evolution"
	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/metrics"
	"github.com/HendryAvila/prdkb/internal/store"
	"github.com/HendryAvila/prdkb/internal/synthesis"
)

// DefaultMaxConflictRetries is how many times a completion pass is
// recomputed after a version conflict before the conflict is returned.
const DefaultMaxConflictRetries = 3

// Synthesizer produces a first-version document from fragments.
type Synthesizer interface {
	Build(ctx context.Context, projectName string, frags []knowledge.Fragment) (*knowledge.Document, synthesis.Outcome, error)
}

// Evolver folds a completed requirement into a document copy.
type Evolver interface {
	Complete(ctx context.Context, doc *knowledge.Document, req knowledge.Requirement, transcript string) (*knowledge.Document, evolution.Outcome, error)
	Evolve(ctx context.Context, doc *knowledge.Document, req knowledge.Requirement, transcript string) (*knowledge.Document, evolution.Outcome, error)
}

// Summarizer turns a conversation into a requirement summary.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []evolution.Message) (knowledge.Requirement, error)
}

// ErrNoSummarizer is returned by Summarize when the engine was built
// without a Summarizer.
var ErrNoSummarizer = errors.New("engine: no summarizer configured")

// BuildResult is the outcome of Build.
type BuildResult struct {
	Document *knowledge.Document
	// Created is false when an existing document was returned unchanged.
	Created bool
	// Degraded is set when the document is the placeholder produced for
	// unparsable model output.
	Degraded bool
}

// EvolveResult is the outcome of CompleteRequirement and Evolve.
type EvolveResult struct {
	Document *knowledge.Document
	Outcome  evolution.Outcome
	// Attempts counts the read-evolve-write cycles, including the one that
	// succeeded.
	Attempts int
}

// Engine coordinates reads and writes of knowledge documents.
type Engine struct {
	store       store.Store
	synthesizer Synthesizer
	evolver     Evolver
	summarizer  Summarizer
	recorder    *metrics.Recorder
	logger      *slog.Logger
	maxRetries  int

	builds singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithSummarizer enables Summarize.
func WithSummarizer(s Summarizer) Option {
	return func(e *Engine) { e.summarizer = s }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxConflictRetries sets how many times a completion pass is retried
// after a version conflict. Zero disables retries.
func WithMaxConflictRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// New creates an Engine.
func New(st store.Store, syn Synthesizer, ev Evolver, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		synthesizer: syn,
		evolver:     ev,
		logger:      slog.Default(),
		maxRetries:  DefaultMaxConflictRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Writes ---

// Build returns the project's document, synthesizing it from the stored
// fragments when none exists or when force is set. A forced rebuild
// replaces the stored document at the next version with status pending.
//
// Concurrent builds of one project share a single synthesis call; the
// first caller's context governs it.
func (e *Engine) Build(ctx context.Context, projectID, projectName string, force bool) (*BuildResult, error) {
	if projectID == "" {
		return nil, fmt.Errorf("engine: build: project id is required")
	}
	key := fmt.Sprintf("%s|%t", projectID, force)
	v, err, shared := e.builds.Do(key, func() (any, error) {
		return e.build(ctx, projectID, projectName, force)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*BuildResult)
	if shared {
		cp := *res
		cp.Document = knowledge.Clone(res.Document)
		return &cp, nil
	}
	return res, nil
}

func (e *Engine) build(ctx context.Context, projectID, projectName string, force bool) (*BuildResult, error) {
	if err := e.store.EnsureProject(ctx, knowledge.Project{ID: projectID, Name: projectName}); err != nil {
		return nil, fmt.Errorf("engine: build %q: %w", projectID, err)
	}

	existing, err := e.store.Get(ctx, projectID)
	switch {
	case err == nil && !force:
		return &BuildResult{Document: existing}, nil
	case err != nil && !errors.Is(err, knowledge.ErrNotFound):
		return nil, fmt.Errorf("engine: build %q: %w", projectID, err)
	}

	frags, err := e.store.ListFragments(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("engine: build %q: %w", projectID, err)
	}
	if len(frags) == 0 {
		return nil, fmt.Errorf("engine: build %q: %w", projectID, knowledge.ErrNoFragments)
	}
	if projectName == "" {
		projectName = e.projectName(ctx, projectID)
	}

	doc, out, err := e.synthesizer.Build(ctx, projectName, frags)
	if err != nil {
		return nil, fmt.Errorf("engine: build %q: %w", projectID, err)
	}
	if out.Degraded {
		e.recorder.IncSynthesisDegraded()
	}

	expected := 0
	if existing != nil {
		expected = existing.Version
		doc.CreatedAt = existing.CreatedAt
	}
	if err := e.put(ctx, metrics.OpBuild, projectID, doc, expected); err != nil {
		return nil, fmt.Errorf("engine: build %q: %w", projectID, err)
	}

	e.logger.Info("knowledge document built",
		"project", projectID,
		"version", doc.Version,
		"fragments", len(frags),
		"degraded", out.Degraded,
		"rebuild", existing != nil)
	return &BuildResult{Document: doc, Created: true, Degraded: out.Degraded}, nil
}

func (e *Engine) projectName(ctx context.Context, projectID string) string {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil || p.Name == "" {
		return projectID
	}
	return p.Name
}

// Confirm passes the project's document through the confirmation gate,
// folding answers into raw insights, and writes it at the next version.
func (e *Engine) Confirm(ctx context.Context, projectID string, answers map[string]string) (*knowledge.Document, error) {
	doc, err := e.store.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("engine: confirm %q: %w", projectID, err)
	}
	expected := doc.Version
	if err := knowledge.Confirm(doc, answers); err != nil {
		return nil, fmt.Errorf("engine: confirm %q: %w", projectID, err)
	}
	if err := e.put(ctx, metrics.OpConfirm, projectID, doc, expected); err != nil {
		return nil, fmt.Errorf("engine: confirm %q: %w", projectID, err)
	}
	e.logger.Info("knowledge document confirmed",
		"project", projectID,
		"version", doc.Version,
		"answers", len(answers))
	return doc, nil
}

// CompleteRequirement archives req in the ledger and evolves the document
// with it. A version conflict on write re-reads the document and runs the
// pass again, up to the configured retry count.
func (e *Engine) CompleteRequirement(ctx context.Context, projectID string, req knowledge.Requirement, transcript string) (*EvolveResult, error) {
	attempts := e.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := e.evolveOnce(ctx, metrics.OpComplete, projectID, req, transcript, e.evolver.Complete)
		if err == nil {
			res.Attempts = attempt
			return res, nil
		}
		if !knowledge.IsRetryable(err) {
			return nil, fmt.Errorf("engine: complete %q: %w", projectID, err)
		}
		lastErr = err
		e.logger.Warn("version conflict on completion",
			"project", projectID,
			"origin_reference", req.OriginReference,
			"attempt", attempt)
	}
	return nil, fmt.Errorf("engine: complete %q: gave up after %d attempts: %w", projectID, attempts, lastErr)
}

// Evolve classifies and merges req without touching the ledger. It makes
// a single attempt; a version conflict is returned.
func (e *Engine) Evolve(ctx context.Context, projectID string, req knowledge.Requirement, transcript string) (*EvolveResult, error) {
	res, err := e.evolveOnce(ctx, metrics.OpEvolve, projectID, req, transcript, e.evolver.Evolve)
	if err != nil {
		return nil, fmt.Errorf("engine: evolve %q: %w", projectID, err)
	}
	res.Attempts = 1
	return res, nil
}

type evolveFunc func(context.Context, *knowledge.Document, knowledge.Requirement, string) (*knowledge.Document, evolution.Outcome, error)

func (e *Engine) evolveOnce(ctx context.Context, op, projectID string, req knowledge.Requirement, transcript string, fn evolveFunc) (*EvolveResult, error) {
	doc, err := e.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	next, out, err := fn(ctx, doc, req, transcript)
	if err != nil {
		return nil, err
	}
	if err := e.put(ctx, op, projectID, next, doc.Version); err != nil {
		return nil, err
	}
	if out.Fallback {
		e.recorder.IncEvolutionFallback()
	}
	return &EvolveResult{Document: next, Outcome: out}, nil
}

// Replace stores a human-edited document in full. The stored status and
// creation time are kept; everything else comes from doc. No merge logic
// runs. doc is not modified.
func (e *Engine) Replace(ctx context.Context, projectID string, doc *knowledge.Document, expectedVersion int) (*knowledge.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("engine: replace %q: %w: nil document", projectID, knowledge.ErrInvalidDocument)
	}
	current, err := e.store.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("engine: replace %q: %w", projectID, err)
	}

	next := knowledge.Clone(doc)
	next.Status = current.Status
	next.CreatedAt = current.CreatedAt
	knowledge.Normalize(next)
	if err := knowledge.Validate(next); err != nil {
		return nil, fmt.Errorf("engine: replace %q: %w", projectID, err)
	}
	if err := e.put(ctx, metrics.OpReplace, projectID, next, expectedVersion); err != nil {
		return nil, fmt.Errorf("engine: replace %q: %w", projectID, err)
	}
	e.logger.Info("knowledge document replaced", "project", projectID, "version", next.Version)
	return next, nil
}

// put writes through the store and records the outcome.
func (e *Engine) put(ctx context.Context, op, projectID string, doc *knowledge.Document, expected int) error {
	err := e.store.Put(ctx, projectID, doc, expected)
	switch {
	case err == nil:
		e.recorder.ObserveWrite(op, metrics.WriteOK)
	case knowledge.IsRetryable(err):
		e.recorder.ObserveWrite(op, metrics.WriteConflict)
	default:
		e.recorder.ObserveWrite(op, metrics.WriteError)
	}
	return err
}

// --- Reads ---

// Get returns the project's document in any status.
func (e *Engine) Get(ctx context.Context, projectID string) (*knowledge.Document, error) {
	doc, err := e.store.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("engine: get %q: %w", projectID, err)
	}
	return doc, nil
}

// GetConfirmedContext renders the project's document as conversational
// context. ok is false when the document is missing or still pending.
func (e *Engine) GetConfirmedContext(ctx context.Context, projectID string) (text string, ok bool, err error) {
	doc, err := e.confirmed(ctx, projectID)
	if err != nil || doc == nil {
		return "", false, err
	}
	return knowledge.FormatContext(doc), true, nil
}

// Search runs a relevance-scored lookup over the project's confirmed
// document. Missing and pending documents yield no results.
func (e *Engine) Search(ctx context.Context, projectID, query string, f knowledge.Filters) ([]knowledge.Result, error) {
	if err := knowledge.ValidateFilterType(f.Type); err != nil {
		return nil, fmt.Errorf("engine: search %q: %w", projectID, err)
	}
	doc, err := e.confirmed(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return []knowledge.Result{}, nil
	}
	return knowledge.Search(doc, query, f), nil
}

// confirmed returns the project's document when it is confirmed, or nil.
func (e *Engine) confirmed(ctx context.Context, projectID string) (*knowledge.Document, error) {
	doc, err := e.store.Get(ctx, projectID)
	if errors.Is(err, knowledge.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: read %q: %w", projectID, err)
	}
	if doc.Status != knowledge.StatusConfirmed {
		return nil, nil
	}
	return doc, nil
}

// --- Projects and fragments ---

// AddFragment records an analysis fragment, creating its project on
// demand. A non-empty projectName renames the project.
func (e *Engine) AddFragment(ctx context.Context, projectName string, f *knowledge.Fragment) error {
	if f == nil || f.ProjectID == "" {
		return fmt.Errorf("engine: add fragment: project id is required")
	}
	if err := e.store.EnsureProject(ctx, knowledge.Project{ID: f.ProjectID, Name: projectName}); err != nil {
		return fmt.Errorf("engine: add fragment: %w", err)
	}
	if err := e.store.AddFragment(ctx, f); err != nil {
		return fmt.Errorf("engine: add fragment: %w", err)
	}
	e.logger.Debug("fragment added", "project", f.ProjectID, "fragment", f.ID, "source", f.SourceName)
	return nil
}

// ListFragments returns the project's fragments in insertion order.
func (e *Engine) ListFragments(ctx context.Context, projectID string) ([]knowledge.Fragment, error) {
	return e.store.ListFragments(ctx, projectID)
}

// ListProjects returns all known projects.
func (e *Engine) ListProjects(ctx context.Context) ([]knowledge.Project, error) {
	return e.store.ListProjects(ctx)
}

// DeleteProject removes the project with its fragments and document.
func (e *Engine) DeleteProject(ctx context.Context, projectID string) error {
	if err := e.store.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("engine: delete %q: %w", projectID, err)
	}
	e.logger.Info("project deleted", "project", projectID)
	return nil
}

// Summarize derives a requirement summary from a conversation.
func (e *Engine) Summarize(ctx context.Context, msgs []evolution.Message) (knowledge.Requirement, error) {
	if e.summarizer == nil {
		return knowledge.Requirement{}, ErrNoSummarizer
	}
	return e.summarizer.Summarize(ctx, msgs)
}
