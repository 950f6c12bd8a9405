package evolution

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/prdkb/internal/llm"
	"github.com/HendryAvila/prdkb/internal/llm/llmtest"
)

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript([]Message{
		{Role: "user", Content: "I need login"},
		{Role: "assistant", Content: "Email or SSO?"},
		{Role: "system", Content: "ignored role"},
	})
	assert.Equal(t, "User: I need login\n\nAssistant: Email or SSO?\n\nAssistant: ignored role", got)
	assert.Empty(t, FormatTranscript(nil))
}

func TestSummarize_ParsesModelOutput(t *testing.T) {
	fake := llmtest.New("Sure!\n```json\n" + `{
  "title": "Password login",
  "description": "Users sign in with email and password.",
  "key_points": ["lockout"],
  "prd_generated": true,
  "origin_reference": "made-up"
}` + "\n```")
	s := NewSummarizer(fake, nil)

	req, err := s.Summarize(context.Background(), []Message{{Role: "user", Content: "add login"}})
	require.NoError(t, err)
	assert.Equal(t, "Password login", req.Title)
	assert.Equal(t, []string{"lockout"}, req.KeyPoints)
	assert.True(t, req.PRDGenerated)
	assert.Empty(t, req.OriginReference)

	sent := fake.Requests()[0]
	assert.Equal(t, llm.OpSummary, sent.Operation)
	assert.Contains(t, sent.Prompt, "User: add login")
}

func TestSummarize_FallsBackToFirstMessage(t *testing.T) {
	first := strings.Repeat("abcdefghij", 15)
	msgs := []Message{{Role: "user", Content: first}, {Role: "assistant", Content: "ok"}}

	for name, fake := range map[string]*llmtest.Scripted{
		"error":       llmtest.Failing(errors.New("boom")),
		"no json":     llmtest.New("cannot help"),
		"empty title": llmtest.New(`{"title": "", "description": "x"}`),
	} {
		t.Run(name, func(t *testing.T) {
			req, err := NewSummarizer(fake, nil).Summarize(context.Background(), msgs)
			require.NoError(t, err)
			assert.Equal(t, first[:30], req.Title)
			assert.Equal(t, first[:100], req.Description)
			assert.NotNil(t, req.KeyPoints)
		})
	}
}

func TestSummarize_EmptyConversation(t *testing.T) {
	fake := llmtest.New()
	req, err := NewSummarizer(fake, nil).Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Untitled requirement", req.Title)
	assert.Equal(t, "No description", req.Description)
	assert.Zero(t, fake.Calls())
}

func TestSummarize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSummarizer(llmtest.Always("{}"), nil).Summarize(ctx, []Message{{Role: "user", Content: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short ", 10))
	assert.Equal(t, "[earlier conversation omitted]\nbcd", tail("abcd", 3))
	assert.Equal(t, "abcd", tail("abcd", 0))
}
