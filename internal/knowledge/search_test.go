package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchFixture() *Document {
	doc := New()
	ArchiveRequirement(doc, Requirement{
		OriginReference: "c1",
		Title:           "User login",
		Description:     "Password and SSO login",
		KeyPoints:       []string{"lockout after 5 attempts"},
	})
	ArchiveRequirement(doc, Requirement{
		OriginReference: "c2",
		Title:           "Order export",
		Description:     "Export orders to CSV for the login audit",
	})
	AssignFeature(doc, Assignment{ModuleName: "Accounts", ModuleDescription: "login and profile"},
		Feature{Name: "User login", Description: "sign in", OriginReference: "c1"})
	AssignFeature(doc, Assignment{ModuleName: "Orders"},
		Feature{Name: "Order export", Description: "csv", OriginReference: "c2"})
	doc.TechArchitecture.Patterns = []string{"JWT login tokens"}
	doc.UIUXStandards.CommonComponents = []string{"LoginForm"}
	doc.UIUXStandards.InteractionPatterns = []string{"inline validation"}
	RecomputeStatus(doc)
	return doc
}

func TestSearch_Weights(t *testing.T) {
	doc := searchFixture()
	results := Search(doc, "login", Filters{})

	require.NotEmpty(t, results)
	// title + description + 1 token
	assert.Equal(t, ResultRequirement, results[0].Type)
	assert.Equal(t, "User login", results[0].Title)
	assert.InDelta(t, 5.5, results[0].Score, 1e-9)

	byTitle := map[string]Result{}
	for _, r := range results {
		byTitle[string(r.Type)+"|"+r.Title] = r
	}
	assert.InDelta(t, 2.5, byTitle["requirement|Order export"].Score, 1e-9)
	assert.InDelta(t, 2.0, byTitle["module|Accounts"].Score, 1e-9)
	assert.InDelta(t, 3.5, byTitle["feature|User login"].Score, 1e-9)
	assert.InDelta(t, 2.0, byTitle["tech_pattern|JWT login tokens"].Score, 1e-9)
	assert.InDelta(t, 2.0, byTitle["ui_component|LoginForm"].Score, 1e-9)
	_, found := byTitle["ui_pattern|inline validation"]
	assert.False(t, found, "zero-score entries must be omitted")
}

func TestSearch_TokenOverlap(t *testing.T) {
	doc := searchFixture()
	results := Search(doc, "csv lockout", Filters{Type: FilterRequirement})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.InDelta(t, 0.5, r.Score, 1e-9)
	}
	// ties keep encounter order: ledger first, then features
	assert.Equal(t, ResultRequirement, results[0].Type)
	assert.Equal(t, "c1", results[0].OriginReference)
	assert.Equal(t, "c2", results[1].OriginReference)
	assert.Equal(t, ResultFeature, results[2].Type)
}

func TestSearch_CaseInsensitive(t *testing.T) {
	results := Search(searchFixture(), "LOGINFORM", Filters{Type: FilterUI})
	require.Len(t, results, 1)
	assert.Equal(t, ResultUIComponent, results[0].Type)
}

func TestSearch_Filters(t *testing.T) {
	doc := searchFixture()

	tests := []struct {
		name    string
		filters Filters
		want    []ResultType
	}{
		{"module only", Filters{Type: FilterModule}, []ResultType{ResultModule}},
		{"feature only", Filters{Type: FilterFeature}, []ResultType{ResultFeature}},
		{"tech only", Filters{Type: FilterTech}, []ResultType{ResultTechPattern}},
		{"ui only", Filters{Type: FilterUI}, []ResultType{ResultUIComponent}},
		{"module name restricts features", Filters{Type: FilterFeature, Module: "Orders"}, []ResultType{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []ResultType{}
			for _, r := range Search(doc, "login", tt.filters) {
				got = append(got, r.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearch_Limit(t *testing.T) {
	results := Search(searchFixture(), "login", Filters{Limit: 2})
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_EmptyQuery(t *testing.T) {
	assert.Empty(t, Search(searchFixture(), "   ", Filters{}))
	assert.Empty(t, Search(nil, "login", Filters{}))
}

func TestValidateFilterType(t *testing.T) {
	assert.NoError(t, ValidateFilterType(""))
	assert.NoError(t, ValidateFilterType(FilterTech))
	assert.Error(t, ValidateFilterType("everything"))
}
