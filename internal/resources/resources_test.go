package resources

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/evolution"
	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm/llmtest"
	"github.com/HendryAvila/prdkb/internal/store"
	"github.com/HendryAvila/prdkb/internal/synthesis"
)

func newHandler(t *testing.T) (*Handler, *engine.Engine) {
	t.Helper()
	st, err := store.New(store.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	synth := llmtest.Always(`{"feature_modules": [{"module_name": "Login", "features": []}]}`)
	eng := engine.New(st, synthesis.NewBuilder(synth), evolution.NewMerger(llmtest.New()))
	return NewHandler(eng), eng
}

func readReq(uri string, args map[string]any) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	req.Params.Arguments = args
	return req
}

func TestKnowledgeTemplate(t *testing.T) {
	h, _ := newHandler(t)
	tmpl := h.KnowledgeTemplate()
	assert.Equal(t, "Project Knowledge Base", tmpl.Name)
	assert.Equal(t, "application/json", tmpl.MIMEType)
}

func TestHandleKnowledge(t *testing.T) {
	h, eng := newHandler(t)
	ctx := context.Background()
	require.NoError(t, eng.AddFragment(ctx, "Shop", &knowledge.Fragment{ProjectID: "p1", SourceName: "a"}))
	_, err := eng.Build(ctx, "p1", "", false)
	require.NoError(t, err)

	for name, req := range map[string]mcp.ReadResourceRequest{
		"from uri":          readReq("kb://projects/p1/knowledge", nil),
		"from string arg":   readReq("kb://projects/p1/knowledge", map[string]any{"project_id": "p1"}),
		"from template arg": readReq("kb://projects/p1/knowledge", map[string]any{"project_id": []string{"p1"}}),
	} {
		t.Run(name, func(t *testing.T) {
			contents, err := h.HandleKnowledge(ctx, req)
			require.NoError(t, err)
			require.Len(t, contents, 1)
			tc := contents[0].(mcp.TextResourceContents)
			assert.Equal(t, "application/json", tc.MIMEType)

			var doc knowledge.Document
			require.NoError(t, json.Unmarshal([]byte(tc.Text), &doc))
			assert.Equal(t, 1, doc.Version)
			assert.Equal(t, "Login", doc.FeatureModules[0].ModuleName)
		})
	}
}

func TestHandleKnowledge_Errors(t *testing.T) {
	h, _ := newHandler(t)
	for _, uri := range []string{
		"kb://projects/ghost/knowledge",
		"kb://projects//knowledge",
		"kb://projects/p1/fragments",
	} {
		contents, err := h.HandleKnowledge(context.Background(), readReq(uri, nil))
		require.NoError(t, err)
		tc := contents[0].(mcp.TextResourceContents)
		assert.Equal(t, "text/plain", tc.MIMEType)
		assert.True(t, strings.HasPrefix(tc.Text, "Error: "), uri)
	}
}
