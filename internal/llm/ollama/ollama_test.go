package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/prdkb/internal/llm"
)

func TestComplete_SendsSystemAndOptions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"{\"ok\":true}"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "m", srv.Client())
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), llm.Request{System: "sys", Prompt: "hi", Temperature: 0.3, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	opts := got["options"].(map[string]any)
	assert.InDelta(t, 0.3, opts["temperature"], 1e-9)
	assert.InDelta(t, 64, opts["num_predict"], 1e-9)
	assert.Equal(t, false, got["stream"])
}

func TestComplete_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "missing", nil)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), llm.Request{Prompt: "hi"})
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestNew_Defaults(t *testing.T) {
	c, err := New("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.model)

	_, err = New("://bad", "", nil)
	assert.Error(t, err)
}
