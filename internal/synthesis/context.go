package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// Per-fragment caps applied while assembling the context.
const (
	maxFragmentEntities   = 10
	maxFragmentReferences = 5
)

// DefaultContextBudget is the character budget of the assembled context.
const DefaultContextBudget = 15000

// BuildContext renders the fragments into the text handed to the model.
// The header always states the full fragment count; the whole text is then
// cut to budget runes.
func BuildContext(projectName string, frags []knowledge.Fragment, budget int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project name: %s\n", projectName)
	fmt.Fprintf(&b, "Analyzed sources: %d\n\n", len(frags))
	b.WriteString("=== Source analysis summary ===\n\n")

	for i, f := range frags {
		name := f.SourceName
		if name == "" {
			name = fmt.Sprintf("source %d", i+1)
		}
		kind := f.SourceKind
		if kind == "" {
			kind = "unknown"
		}
		fmt.Fprintf(&b, "## Source %d: %s (%s)\n\n", i+1, name, kind)

		if f.Summary != "" {
			fmt.Fprintf(&b, "**Summary**: %s\n\n", f.Summary)
		}
		if len(f.Entities) > 0 {
			fmt.Fprintf(&b, "**Key entities**: %s\n\n", strings.Join(capList(f.Entities, maxFragmentEntities), ", "))
		}
		if len(f.UIInfo) > 0 {
			fmt.Fprintf(&b, "**UI notes**: %s\n\n", compactJSON(f.UIInfo))
		}
		if len(f.TechInfo) > 0 {
			fmt.Fprintf(&b, "**Tech conventions**: %s\n\n", compactJSON(f.TechInfo))
		}
		if len(f.References) > 0 {
			fmt.Fprintf(&b, "**Key references**: %s\n\n", strings.Join(capList(f.References, maxFragmentReferences), "; "))
		}
		b.WriteString("---\n\n")
	}

	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return knowledge.Prefix(b.String(), budget)
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func compactJSON(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
