// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the engine, tools, prompts and resources that depend
// on abstractions. No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/prdkb/internal/config"
	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/evolution"
	"github.com/HendryAvila/prdkb/internal/llm"
	"github.com/HendryAvila/prdkb/internal/llm/anthropic"
	"github.com/HendryAvila/prdkb/internal/llm/gemini"
	"github.com/HendryAvila/prdkb/internal/llm/ollama"
	"github.com/HendryAvila/prdkb/internal/llm/openai"
	"github.com/HendryAvila/prdkb/internal/metrics"
	"github.com/HendryAvila/prdkb/internal/prompts"
	"github.com/HendryAvila/prdkb/internal/resources"
	"github.com/HendryAvila/prdkb/internal/store"
	"github.com/HendryAvila/prdkb/internal/synthesis"
	"github.com/HendryAvila/prdkb/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the store and must be called on
// shutdown (typically via defer). It is always non-nil.
func New(cfg config.Config, logger *slog.Logger, rec *metrics.Recorder) (*server.MCPServer, func(), error) {
	eng, cleanup, err := NewEngine(cfg, logger, rec)
	if err != nil {
		return nil, noop, err
	}
	return NewMCPServer(eng), cleanup, nil
}

// NewMCPServer registers every knowledge base tool, prompt and resource
// against eng.
func NewMCPServer(eng *engine.Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"prdkb",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Ingestion & synthesis ---

	fragmentTool := tools.NewAddFragmentTool(eng)
	s.AddTool(fragmentTool.Definition(), fragmentTool.Handle)

	buildTool := tools.NewBuildTool(eng)
	s.AddTool(buildTool.Definition(), buildTool.Handle)

	confirmTool := tools.NewConfirmTool(eng)
	s.AddTool(confirmTool.Definition(), confirmTool.Handle)

	// --- Evolution ---

	completeTool := tools.NewCompleteRequirementTool(eng)
	s.AddTool(completeTool.Definition(), completeTool.Handle)

	updateTool := tools.NewUpdateTool(eng)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	// --- Read-only projections ---

	getTool := tools.NewGetTool(eng)
	s.AddTool(getTool.Definition(), getTool.Handle)

	contextTool := tools.NewContextTool(eng)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	searchTool := tools.NewSearchTool(eng)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	// --- Management ---

	deleteTool := tools.NewDeleteProjectTool(eng)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt(eng)
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(eng)
	s.AddResourceTemplate(resourceHandler.KnowledgeTemplate(), resourceHandler.HandleKnowledge)

	return s
}

// NewEngine opens the store, builds the configured completion provider and
// assembles the engine. The CLI uses it directly for one-shot commands.
func NewEngine(cfg config.Config, logger *slog.Logger, rec *metrics.Recorder) (*engine.Engine, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close failed", "error", err)
		}
	}

	base, err := NewCompleter(cfg.LLM)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	completer := llm.Instrument(base, cfg.LLM.Provider,
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithObserver(rec),
		llm.WithLogger(logger),
	)

	builder := synthesis.NewBuilder(completer,
		synthesis.WithContextBudget(cfg.Synthesis.ContextBudget),
		synthesis.WithMaxTokens(cfg.LLM.MaxTokens),
		synthesis.WithLogger(logger),
	)
	merger := evolution.NewMerger(completer,
		evolution.WithTranscriptBudget(cfg.Evolution.TranscriptBudget),
		evolution.WithFallbackModule(cfg.Evolution.FallbackModule),
		evolution.WithMaxTokens(cfg.LLM.MaxTokens),
		evolution.WithLogger(logger),
	)

	eng := engine.New(st, builder, merger,
		engine.WithSummarizer(evolution.NewSummarizer(completer, logger)),
		engine.WithRecorder(rec),
		engine.WithMaxConflictRetries(cfg.Engine.MaxConflictRetries),
		engine.WithLogger(logger),
	)
	return eng, cleanup, nil
}

// NewCompleter returns the raw client for the configured provider.
func NewCompleter(cfg config.LLMConfig) (llm.Completer, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(cfg.APIKey, cfg.Model, opts...), nil
	case config.ProviderOpenAI:
		return openai.New(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case config.ProviderGemini:
		return gemini.New(cfg.APIKey, cfg.Model), nil
	case config.ProviderOllama:
		c, err := ollama.New(cfg.BaseURL, cfg.Model, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use the knowledge base.
func serverInstructions() string {
	return `You have access to prdkb, a project knowledge base server.

prdkb keeps one living knowledge document per project: feature modules,
features, UI components, tech stack, raw insights and a ledger of
completed requirements. It is synthesized once from source fragments,
confirmed by the user, then evolved every time a requirement is finished.

## LIFECYCLE

1. INGEST: call kb_add_fragment once per source document (spec, meeting
   notes, design). Extract a summary, entities, references, UI info and
   tech info yourself; prdkb stores what you send.
2. BUILD: call kb_build. The result is version 1 with status "pending"
   and a list of open questions.
3. CONFIRM: ask the user the open questions, then call kb_confirm with
   the answers keyed by the exact question text. Only confirmed knowledge
   bases are served to consumers.
4. EVOLVE: when a requirement is done, call kb_complete_requirement with
   its title, description and key points (or the conversation messages,
   which prdkb summarizes). prdkb files it under the right module and
   records it in the ledger.

## READING

- kb_context: compact text for prompting. Use detail_level='summary'
  for a quick overview.
- kb_search: find modules, features, components and tech by keyword.
- kb_get: the full document as JSON, in any status.
- Resource kb://projects/{project_id}/knowledge: the same JSON.

## WRITING BY HAND

kb_update replaces the document. Always pass the version you read as
expected_version. If prdkb reports that the document changed since it was
read, call kb_get again and reapply the edit; never retry blindly.

## RULES

- Never invent project ids. Ask the user if unsure.
- Pass a stable origin_reference (ticket, PR, conversation id). Completing
  the same origin again refreshes its feature but is not archived twice.
- If the language model is unavailable, tell the user and stop. Do not
  fabricate knowledge base content.
- kb_delete_project is permanent. Only call it when the user explicitly
  asks, and pass confirm=true.

## PROMPTS

- kb-start: guided ingestion and first build.
- kb-review: walk the open questions and confirm.
- kb-status: summarize where the knowledge base stands.`
}
