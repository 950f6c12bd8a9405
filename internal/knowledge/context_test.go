package knowledge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatContext_Sections(t *testing.T) {
	doc := searchFixture()
	doc.ProjectOverview.ProductName = "Shopfront"
	doc.ProjectOverview.ProductType = "E-commerce"
	doc.TechArchitecture.Conventions["notes"] = []string{"UTC timestamps"}
	doc.UIUXStandards.ComponentLibrary = "Ant Design"

	out := FormatContext(doc)

	assert.True(t, strings.HasPrefix(out, "# Project Knowledge Base\n"))
	assert.Contains(t, out, "Product: Shopfront")
	assert.Contains(t, out, "Product type: E-commerce")
	assert.Contains(t, out, "Completed requirements: 2")
	assert.Contains(t, out, "- **Accounts** (1 features): login and profile")
	assert.Contains(t, out, "Patterns: JWT login tokens")
	assert.Contains(t, out, "Conventions (notes): UTC timestamps")
	assert.Contains(t, out, "Component library: Ant Design")
	assert.Contains(t, out, "### 1. User login")
	assert.Contains(t, out, "  - lockout after 5 attempts")
}

func TestFormatContext_LastFiveRequirements(t *testing.T) {
	doc := New()
	for i := 1; i <= 7; i++ {
		ArchiveRequirement(doc, Requirement{OriginReference: fmt.Sprintf("c%d", i), Title: fmt.Sprintf("req %d", i)})
	}

	out := FormatContext(doc)
	assert.NotContains(t, out, "req 2\n")
	assert.Contains(t, out, "### 1. req 3\n")
	assert.Contains(t, out, "### 5. req 7\n")
	assert.Contains(t, out, "**Description**: No description")
}

func TestFormatContext_EmptyDocument(t *testing.T) {
	out := FormatContext(New())
	assert.Equal(t, "# Project Knowledge Base\n\n", out)
	assert.Equal(t, "", FormatContext(nil))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"short unchanged", "abc", 5, "abc"},
		{"exact unchanged", "abcde", 5, "abcde"},
		{"long cut", "abcdef", 3, "abc..."},
		{"rune safe", "需求知识库", 2, "需求..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.input, tt.max))
		})
	}
	assert.Equal(t, "需求", Prefix("需求知识库", 2))
	assert.Equal(t, "ab", Prefix("ab", 10))
}
