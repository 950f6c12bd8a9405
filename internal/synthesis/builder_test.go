package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm"
	"github.com/HendryAvila/prdkb/internal/llm/llmtest"
)

const wellFormed = "Here you go:\n```json\n" + `{
  "project_overview": {"product_name": "Shopfront", "product_type": "Web app", "description": "An online shop"},
  "feature_modules": [
    {"module_name": "Catalog", "description": "products", "features": [{"name": "Browse", "description": "list products"}]},
    {"module_name": "Checkout", "description": "orders", "features": []}
  ],
  "tech_architecture": {"patterns": ["REST"], "conventions": {"naming": "camelCase"}},
  "ui_ux_standards": {"common_components": ["ProductCard"], "primary_colors": ["#ff6600"]},
  "data_model": {"entities": [{"name": "Order", "fields": [{"name": "id", "type": "uuid", "required": true}]}]},
  "pending_questions": [{"question": "Which payment provider?", "priority": "high"}],
  "completed_requirements": [{"origin_reference": "bogus", "title": "model invented this"}],
  "version": 7,
  "status": "confirmed",
}` + "\n```\n"

func sampleFragments() []knowledge.Fragment {
	return []knowledge.Fragment{
		{SourceName: "brief.pdf", SourceKind: "document", Summary: "An online shop", Entities: []string{"Order"}},
		{SourceName: "mock.png", SourceKind: "image", UIInfo: map[string]any{"color": "#ff6600"}},
	}
}

func TestBuild_WellFormed(t *testing.T) {
	fake := llmtest.New(wellFormed)
	b := NewBuilder(fake)

	doc, out, err := b.Build(context.Background(), "Shopfront", sampleFragments())
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	require.NoError(t, knowledge.Validate(doc))

	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, knowledge.StatusPending, doc.Status)
	assert.Empty(t, doc.CompletedRequirements)
	assert.Equal(t, "Web app", doc.ProjectOverview.ProductType)
	require.Len(t, doc.FeatureModules, 2)
	assert.Equal(t, "Catalog", doc.FeatureModules[0].ModuleName)
	assert.Equal(t, []string{"camelCase"}, doc.TechArchitecture.Conventions["naming"])
	assert.Equal(t, "Order", doc.DataModel.Entities[0].Name)
	assert.Equal(t, map[string]int{"Catalog": 1, "Checkout": 0}, doc.ProjectOverview.CurrentStatus.FeatureCountByModule)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.OpSynthesis, reqs[0].Operation)
	assert.InDelta(t, 0.3, reqs[0].Temperature, 1e-9)
	assert.Equal(t, systemPrompt, reqs[0].System)
	assert.Contains(t, reqs[0].Prompt, "Project name: Shopfront")
}

func TestBuild_NoFragments(t *testing.T) {
	fake := llmtest.New()
	_, _, err := NewBuilder(fake).Build(context.Background(), "p", nil)
	assert.ErrorIs(t, err, knowledge.ErrNoFragments)
	assert.Zero(t, fake.Calls())
}

func TestBuild_UnparsableOutputDegrades(t *testing.T) {
	raw := strings.Repeat("I'm sorry, I cannot format this. ", 40)
	doc, out, err := NewBuilder(llmtest.New(raw)).Build(context.Background(), "p", sampleFragments())
	require.NoError(t, err)
	require.True(t, out.Degraded)
	assert.ErrorIs(t, out.Cause, knowledge.ErrSynthesisParse)

	require.NoError(t, knowledge.Validate(doc))
	assert.Equal(t, knowledge.StatusPending, doc.Status)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "unknown", doc.ProjectOverview.ProductType)
	assert.Equal(t, raw[:200], doc.ProjectOverview.Description)
	require.Len(t, doc.PendingQuestions, 1)
	assert.Contains(t, doc.PendingQuestions[0].Question, "format error")
	require.Len(t, doc.RawInsights, 1)
	assert.Equal(t, raw[:500], doc.RawInsights[0])
	assert.True(t, IsDegraded(doc))
}

func TestBuild_TypeMismatchDegrades(t *testing.T) {
	raw := `{"feature_modules": {"not": "a list"}}`
	doc, out, err := NewBuilder(llmtest.New(raw)).Build(context.Background(), "p", sampleFragments())
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.True(t, IsDegraded(doc))
}

func TestBuild_CapabilityFailureAborts(t *testing.T) {
	boom := llm.Unavailable("fake", errors.New("503"))
	doc, _, err := NewBuilder(llmtest.Failing(boom)).Build(context.Background(), "p", sampleFragments())
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestBuild_CancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, _, err := NewBuilder(llmtest.Always("{}")).Build(ctx, "p", sampleFragments())
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_FunctionalArchitectureLayout(t *testing.T) {
	raw := `{"functional_architecture": {"modules": [{"name": "Auth", "features": [{"name": "login"}]}]}}`
	doc, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, doc.FeatureModules, 1)
	assert.Equal(t, "Auth", doc.FeatureModules[0].ModuleName)
	assert.Equal(t, "login", doc.FeatureModules[0].Features[0].Name)
}

func TestParse_DuplicateModulesCoalesced(t *testing.T) {
	raw := `{"feature_modules": [{"module_name": "A", "features": [{"name": "x"}]}, {"module_name": "A", "features": [{"name": "y"}]}]}`
	doc, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, doc.FeatureModules, 1)
	assert.Len(t, doc.FeatureModules[0].Features, 2)
}

func TestBuildContext_CapsAndBudget(t *testing.T) {
	entities := make([]string, 15)
	refs := make([]string, 8)
	for i := range entities {
		entities[i] = fmt.Sprintf("E%d", i)
	}
	for i := range refs {
		refs[i] = fmt.Sprintf("R%d", i)
	}
	frags := []knowledge.Fragment{{SourceName: "a.md", Entities: entities, References: refs}}

	out := BuildContext("Shop", frags, 0)
	assert.Contains(t, out, "E9")
	assert.NotContains(t, out, "E10")
	assert.Contains(t, out, "R4")
	assert.NotContains(t, out, "R5")
	assert.Contains(t, out, "## Source 1: a.md (unknown)")

	many := make([]knowledge.Fragment, 300)
	for i := range many {
		many[i] = knowledge.Fragment{SourceName: fmt.Sprintf("f%d", i), Summary: strings.Repeat("需求", 40)}
	}
	out = BuildContext("Shop", many, 15000)
	assert.Equal(t, 15000, utf8.RuneCountInString(out))
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "Analyzed sources: 300")
}

func TestRenderPrompt(t *testing.T) {
	p := RenderPrompt("CTX-MARKER")
	assert.Contains(t, p, "CTX-MARKER")
	assert.NotContains(t, p, "{{CONTEXT}}")
}
