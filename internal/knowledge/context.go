package knowledge

import (
	"fmt"
	"strings"
)

// MaxContextRequirements is the number of most recent ledger entries
// rendered by FormatContext.
const MaxContextRequirements = 5

// FormatContext renders doc as markdown for inclusion in a conversation
// prompt: overview, modules, tech conventions, UI standards and the most
// recent completed requirements. Empty sections are omitted.
func FormatContext(doc *Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("# Project Knowledge Base\n\n")

	ov := doc.ProjectOverview
	if ov.ProductName != "" || ov.ProductType != "" || ov.Description != "" {
		b.WriteString("## Overview\n")
		writeField(&b, "Product", ov.ProductName)
		writeField(&b, "Product type", ov.ProductType)
		writeField(&b, "Description", ov.Description)
		writeField(&b, "Target users", ov.TargetUsers)
		writeField(&b, "Core value", ov.CoreValue)
		fmt.Fprintf(&b, "Completed requirements: %d\n\n", ov.CurrentStatus.TotalRequirements)
	}

	if len(doc.FeatureModules) > 0 {
		b.WriteString("## Feature Modules\n")
		for _, m := range doc.FeatureModules {
			fmt.Fprintf(&b, "- **%s** (%d features)", m.ModuleName, len(m.Features))
			if m.Description != "" {
				fmt.Fprintf(&b, ": %s", Truncate(m.Description, 200))
			}
			b.WriteString("\n")
			for _, f := range m.Features {
				fmt.Fprintf(&b, "  - %s\n", f.Name)
			}
		}
		b.WriteString("\n")
	}

	ta := doc.TechArchitecture
	if ta.ArchitecturePattern != "" || len(ta.Patterns) > 0 || len(ta.Conventions) > 0 || len(ta.TechStack) > 0 {
		b.WriteString("## Tech Conventions\n")
		writeField(&b, "Architecture", ta.ArchitecturePattern)
		for _, k := range ta.TechStack.Keys() {
			writeList(&b, "Stack ("+k+")", ta.TechStack[k])
		}
		writeList(&b, "Patterns", ta.Patterns)
		for _, k := range ta.Conventions.Keys() {
			writeList(&b, "Conventions ("+k+")", ta.Conventions[k])
		}
		b.WriteString("\n")
	}

	ui := doc.UIUXStandards
	if ui.ComponentLibrary != "" || len(ui.PrimaryColors) > 0 || len(ui.LayoutFeatures) > 0 ||
		len(ui.CommonComponents) > 0 || len(ui.InteractionPatterns) > 0 {
		b.WriteString("## UI Standards\n")
		writeList(&b, "Primary colors", ui.PrimaryColors)
		writeField(&b, "Component library", ui.ComponentLibrary)
		writeList(&b, "Layout", ui.LayoutFeatures)
		writeList(&b, "Components", ui.CommonComponents)
		writeList(&b, "Interaction patterns", ui.InteractionPatterns)
		b.WriteString("\n")
	}

	if reqs := doc.CompletedRequirements; len(reqs) > 0 {
		b.WriteString("## Completed Requirements\n")
		b.WriteString("Reference these when designing new requirements to avoid conflicts or duplication.\n\n")
		if len(reqs) > MaxContextRequirements {
			reqs = reqs[len(reqs)-MaxContextRequirements:]
		}
		for i, r := range reqs {
			title := r.Title
			if title == "" {
				title = "Untitled requirement"
			}
			fmt.Fprintf(&b, "### %d. %s\n", i+1, title)
			desc := r.Description
			if desc == "" {
				desc = "No description"
			}
			fmt.Fprintf(&b, "**Description**: %s\n", desc)
			if len(r.KeyPoints) > 0 {
				b.WriteString("**Key points**:\n")
				for _, p := range r.KeyPoints {
					fmt.Fprintf(&b, "  - %s\n", p)
				}
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(b, "%s: %s\n", label, strings.Join(values, ", "))
	}
}

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// Prefix returns at most the first n runes of s, without a marker.
func Prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
