package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/prdkb/internal/llm"
)

func responseBody(text string) string {
	out, _ := json.Marshal(map[string]any{
		"id":         "resp_1",
		"object":     "response",
		"created_at": 1,
		"model":      "gpt-test",
		"status":     "completed",
		"output": []any{map[string]any{
			"type":   "message",
			"id":     "msg_1",
			"role":   "assistant",
			"status": "completed",
			"content": []any{map[string]any{
				"type":        "output_text",
				"text":        text,
				"annotations": []any{},
			}},
		}},
	})
	return string(out)
}

func TestComplete_ReturnsOutputText(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responseBody(`{"a": 1}`)))
	}))
	defer srv.Close()

	c := New("key", "gpt-test", srv.URL)
	out, err := c.Complete(context.Background(), llm.Request{System: "sys", Prompt: "hi", Temperature: 0.2, MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, out)

	assert.Equal(t, "gpt-test", body["model"])
	assert.Equal(t, "sys", body["instructions"])
	assert.Equal(t, "hi", body["input"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.InDelta(t, 50, body["max_output_tokens"], 1e-9)
}

func TestComplete_EmptyOutputIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responseBody("")))
	}))
	defer srv.Close()

	_, err := New("key", "", srv.URL).Complete(context.Background(), llm.Request{Prompt: "hi"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestComplete_APIErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := New("key", "", srv.URL).Complete(context.Background(), llm.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}
