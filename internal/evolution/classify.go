package evolution

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm"
)

// ClassificationTemperature is used for the classification call.
const ClassificationTemperature = 0.2

// DefaultTranscriptBudget bounds the transcript excerpt in the prompt.
const DefaultTranscriptBudget = 6000

const classifySystemPrompt = `You maintain a product knowledge base. You decide which feature module a completed requirement belongs to and which technical and UI conventions it introduces. Answer with one JSON object only.`

// Classification is the model's verdict on one completed requirement.
type Classification struct {
	ModuleAssignment knowledge.Assignment   `json:"module_assignment"`
	TechInsights     knowledge.TechInsights `json:"tech_insights"`
	UIInsights       knowledge.UIInsights   `json:"ui_insights"`
}

// classificationPrompt renders the prompt for req against the current
// module names.
func classificationPrompt(req knowledge.Requirement, modules []string, transcript string, budget int) string {
	var b strings.Builder
	b.WriteString("Analyze the completed requirement below and decide how it changes the project knowledge base.\n\n")
	fmt.Fprintf(&b, "Requirement title: %s\n", req.Title)
	fmt.Fprintf(&b, "Requirement description: %s\n", req.Description)
	fmt.Fprintf(&b, "Key points: %s\n\n", strings.Join(req.KeyPoints, ", "))

	if len(modules) == 0 {
		b.WriteString("Current feature modules: none yet\n\n")
	} else {
		fmt.Fprintf(&b, "Current feature modules: %s\n\n", strings.Join(modules, ", "))
	}

	if excerpt := tail(transcript, budget); excerpt != "" {
		b.WriteString("Conversation excerpt:\n")
		b.WriteString(excerpt)
		b.WriteString("\n\n")
	}

	b.WriteString(`Return the analysis as JSON:
{
  "module_assignment": {
    "is_new_module": true/false,
    "module_name": "existing module name copied exactly, or a new module name",
    "module_description": "short description if this is a new module"
  },
  "tech_insights": {
    "has_tech_update": true/false,
    "patterns": ["technical pattern"],
    "conventions": ["convention"]
  },
  "ui_insights": {
    "has_ui_update": true/false,
    "components": ["component"],
    "patterns": ["interaction pattern"]
  }
}

Reuse an existing module name exactly when the requirement fits it. Return JSON only.`)
	return b.String()
}

// parseClassification decodes model output. Errors wrap
// knowledge.ErrClassification.
func parseClassification(raw string) (Classification, error) {
	payload := llm.ExtractJSON(raw)
	if payload == "" {
		return Classification{}, fmt.Errorf("%w: no JSON object in output", knowledge.ErrClassification)
	}
	var c Classification
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Classification{}, fmt.Errorf("%w: %w", knowledge.ErrClassification, err)
	}
	c.ModuleAssignment.ModuleName = strings.TrimSpace(c.ModuleAssignment.ModuleName)
	if c.ModuleAssignment.ModuleName == "" {
		return Classification{}, fmt.Errorf("%w: empty module name", knowledge.ErrClassification)
	}
	return c, nil
}

// tail returns the last n runes of s, marking the cut.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return "[earlier conversation omitted]\n" + string(r[len(r)-n:])
}
