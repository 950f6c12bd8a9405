package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/evolution"
	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm/llmtest"
	"github.com/HendryAvila/prdkb/internal/store"
	"github.com/HendryAvila/prdkb/internal/synthesis"
)

const synthesized = `{
  "feature_modules": [{"module_name": "Login", "features": []}],
  "pending_questions": [{"question": "Which SSO provider?", "suggested_answer": "Okta"}]
}`

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	st, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return engine.New(st, synthesis.NewBuilder(llmtest.Always(synthesized)), evolution.NewMerger(llmtest.New()))
}

func promptReq(args map[string]string) mcp.GetPromptRequest {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = args
	return req
}

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Messages[0].Content)
	}
	return tc.Text
}

func TestDefinitions(t *testing.T) {
	defs := []struct {
		got, want string
	}{
		{NewStartPrompt().Definition().Name, "kb-start"},
		{NewStatusPrompt().Definition().Name, "kb-status"},
		{NewReviewPrompt(newEngine(t)).Definition().Name, "kb-review"},
	}
	for _, d := range defs {
		if d.got != d.want {
			t.Errorf("prompt name = %q, want %q", d.got, d.want)
		}
	}
}

func TestStartPrompt(t *testing.T) {
	p := NewStartPrompt()

	res, err := p.Handle(context.Background(), promptReq(map[string]string{"project_id": "shop"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, res)
	for _, want := range []string{"kb_add_fragment", "kb_build", "kb_confirm", "project_name='shop'"} {
		if !strings.Contains(text, want) {
			t.Errorf("start prompt missing %q", want)
		}
	}

	if _, err := p.Handle(context.Background(), promptReq(nil)); err == nil {
		t.Error("expected error without project_id")
	}
}

func TestStatusPrompt(t *testing.T) {
	res, err := NewStatusPrompt().Handle(context.Background(), promptReq(map[string]string{"project_id": "shop"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if text := promptText(t, res); !strings.Contains(text, "kb_context") {
		t.Errorf("status prompt should point at kb_context, got:\n%s", text)
	}
}

func TestReviewPrompt(t *testing.T) {
	eng := newEngine(t)
	p := NewReviewPrompt(eng)
	ctx := context.Background()
	req := promptReq(map[string]string{"project_id": "shop"})

	res, err := p.Handle(ctx, req)
	if err != nil {
		t.Fatalf("Handle (missing): %v", err)
	}
	if text := promptText(t, res); !strings.Contains(text, "kb_add_fragment") {
		t.Errorf("missing document should point at kb_add_fragment, got:\n%s", text)
	}

	if err := eng.AddFragment(ctx, "Shop", &knowledge.Fragment{ProjectID: "shop", SourceName: "brief"}); err != nil {
		t.Fatalf("AddFragment: %v", err)
	}
	if _, err := eng.Build(ctx, "shop", "", false); err != nil {
		t.Fatalf("Build: %v", err)
	}

	res, err = p.Handle(ctx, req)
	if err != nil {
		t.Fatalf("Handle (pending): %v", err)
	}
	text := promptText(t, res)
	if !strings.Contains(text, "1. Which SSO provider? (suggested: Okta)") {
		t.Errorf("pending questions not listed, got:\n%s", text)
	}

	if _, err := eng.Confirm(ctx, "shop", map[string]string{"Which SSO provider?": "Okta"}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	res, err = p.Handle(ctx, req)
	if err != nil {
		t.Fatalf("Handle (confirmed): %v", err)
	}
	if text := promptText(t, res); !strings.Contains(text, "already confirmed at version 2") {
		t.Errorf("confirmed document not reported, got:\n%s", text)
	}
}
