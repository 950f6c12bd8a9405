package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{
			name:  "bare object",
			input: `{"a": 1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "json fence with prose",
			input: "Here is the result:\n```json\n{\"a\": {\"b\": [1, 2]}}\n```\nLet me know.",
			want:  map[string]any{"a": map[string]any{"b": []any{float64(1), float64(2)}}},
		},
		{
			name:  "untagged fence",
			input: "```\n{\"a\": \"x\"}\n```",
			want:  map[string]any{"a": "x"},
		},
		{
			name:  "prose around bare object",
			input: `Sure! {"a": true} Hope that helps.`,
			want:  map[string]any{"a": true},
		},
		{
			name:  "comments and trailing commas",
			input: "{\n  \"url\": \"http://example.com\", // homepage\n  \"list\": [1, 2,],\n}",
			want:  map[string]any{"url": "http://example.com", "list": []any{float64(1), float64(2)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ExtractJSON(tt.input)
			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &got), "extracted: %s", out)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_NoObject(t *testing.T) {
	assert.Equal(t, "", ExtractJSON("I could not produce a document."))
	assert.Equal(t, "", ExtractJSON(""))
}

func TestDropLineComment_KeepsSlashesInStrings(t *testing.T) {
	assert.Equal(t, `"path": "a//b"`, dropLineComment(`"path": "a//b"`))
	assert.Equal(t, `"x": 1,`, dropLineComment(`"x": 1, // note`))
	assert.Equal(t, `"q": "say \"//\""`, dropLineComment(`"q": "say \"//\""`))
}
