package evolution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm"
)

// Message is one turn of a requirement conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FormatTranscript renders messages as "User: ..." / "Assistant: ..."
// paragraphs.
func FormatTranscript(msgs []Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		speaker := "Assistant"
		if m.Role == "user" {
			speaker = "User"
		}
		parts = append(parts, speaker+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Fallback summary values.
const (
	untitledRequirement    = "Untitled requirement"
	noDescription          = "No description"
	fallbackTitleLen       = 30
	fallbackDescriptionLen = 100
)

const summarySystemPrompt = `You summarize product requirement conversations into a short structured record. Answer with one JSON object only.`

// Summarizer derives a requirement summary from a conversation.
type Summarizer struct {
	completer llm.Completer
	logger    *slog.Logger
}

// NewSummarizer creates a Summarizer that calls c.
func NewSummarizer(c llm.Completer, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{completer: c, logger: logger}
}

// Summarize returns the title, description, key points and PRD flag of the
// conversation. Model failures fall back to the first message; only
// cancellation is returned as an error. OriginReference is left empty.
func (s *Summarizer) Summarize(ctx context.Context, msgs []Message) (knowledge.Requirement, error) {
	if len(msgs) == 0 {
		return knowledge.Requirement{Title: untitledRequirement, Description: noDescription, KeyPoints: []string{}}, nil
	}

	raw, err := s.completer.Complete(ctx, llm.Request{
		Operation:   llm.OpSummary,
		System:      summarySystemPrompt,
		Prompt:      summaryPrompt(FormatTranscript(msgs)),
		Temperature: ClassificationTemperature,
	})
	if err == nil {
		var req knowledge.Requirement
		req, err = parseSummary(raw)
		if err == nil {
			return req, nil
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return knowledge.Requirement{}, ctxErr
	}

	s.logger.Warn("requirement summary failed, using first message", "error", err)
	first := msgs[0].Content
	return knowledge.Requirement{
		Title:       knowledge.Prefix(first, fallbackTitleLen),
		Description: knowledge.Prefix(first, fallbackDescriptionLen),
		KeyPoints:   []string{},
	}, nil
}

func summaryPrompt(transcript string) string {
	return fmt.Sprintf(`Analyze the product requirement conversation below and produce a structured requirement summary.

Conversation:
%s

Return JSON with these fields:
{
  "title": "short requirement title (a few words)",
  "description": "one or two sentences describing the core requirement",
  "key_points": ["key point 1", "key point 2", "key point 3"],
  "prd_generated": false
}

Return JSON only.`, transcript)
}

func parseSummary(raw string) (knowledge.Requirement, error) {
	payload := llm.ExtractJSON(raw)
	if payload == "" {
		return knowledge.Requirement{}, fmt.Errorf("summary: no JSON object in output")
	}
	var req knowledge.Requirement
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return knowledge.Requirement{}, fmt.Errorf("summary: %w", err)
	}
	if strings.TrimSpace(req.Title) == "" {
		return knowledge.Requirement{}, fmt.Errorf("summary: empty title")
	}
	req.OriginReference = ""
	if req.KeyPoints == nil {
		req.KeyPoints = []string{}
	}
	return req, nil
}
