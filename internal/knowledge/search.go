package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// ResultType classifies a search hit.
type ResultType string

const (
	ResultRequirement ResultType = "requirement"
	ResultModule      ResultType = "module"
	ResultFeature     ResultType = "feature"
	ResultTechPattern ResultType = "tech_pattern"
	ResultUIComponent ResultType = "ui_component"
	ResultUIPattern   ResultType = "ui_pattern"
)

// Filter type values accepted by Search.
const (
	FilterRequirement = "requirement"
	FilterModule      = "module"
	FilterFeature     = "feature"
	FilterTech        = "tech"
	FilterUI          = "ui"
)

var validFilterTypes = map[string]bool{
	"":                true,
	FilterRequirement: true,
	FilterModule:      true,
	FilterFeature:     true,
	FilterTech:        true,
	FilterUI:          true,
}

// ValidateFilterType returns an error if t is not a recognized filter.
func ValidateFilterType(t string) error {
	if !validFilterTypes[t] {
		return fmt.Errorf("invalid search type %q: must be one of: requirement, module, feature, tech, ui", t)
	}
	return nil
}

// Scoring weights.
const (
	weightTitle       = 3.0
	weightDescription = 2.0
	weightKeyPoints   = 1.0
	weightToken       = 0.5
	weightVocabulary  = 2.0
)

// Filters narrow a search.
type Filters struct {
	// Type is one of the Filter* constants, or empty for all types.
	// "requirement" covers ledger entries and module features.
	Type string
	// Module restricts module and feature hits to one module name.
	Module string
	// Limit caps the number of results after sorting. Zero means no cap.
	Limit int
}

// Result is one scored search hit.
type Result struct {
	Type            ResultType `json:"type"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Content         string     `json:"content"`
	OriginReference string     `json:"origin_reference,omitempty"`
	ModuleName      string     `json:"module_name,omitempty"`
	CreatedAt       string     `json:"created_at,omitempty"`
	Score           float64    `json:"relevance_score"`
}

// Search scores every ledger entry, module, feature, tech pattern and UI
// entry against query and returns the hits sorted by descending score.
// Matching is case-insensitive. Ties keep encounter order.
func Search(doc *Document, query string, f Filters) []Result {
	q := strings.ToLower(strings.TrimSpace(query))
	if doc == nil || q == "" {
		return []Result{}
	}
	tokens := strings.Fields(q)
	want := func(types ...string) bool {
		if f.Type == "" {
			return true
		}
		for _, t := range types {
			if f.Type == t {
				return true
			}
		}
		return false
	}

	results := []Result{}

	if want(FilterRequirement) {
		for _, r := range doc.CompletedRequirements {
			kp := strings.Join(r.KeyPoints, " ")
			if s := scoreText(q, tokens, r.Title, r.Description, kp); s > 0 {
				results = append(results, Result{
					Type:            ResultRequirement,
					Title:           r.Title,
					Description:     r.Description,
					Content:         kp,
					OriginReference: r.OriginReference,
					CreatedAt:       r.ArchivedAt,
					Score:           s,
				})
			}
		}
	}

	if want(FilterModule, FilterRequirement, FilterFeature) {
		for _, m := range doc.FeatureModules {
			if f.Module != "" && m.ModuleName != f.Module {
				continue
			}
			if want(FilterModule) {
				if s := scoreText(q, nil, m.ModuleName, m.Description, ""); s > 0 {
					results = append(results, Result{
						Type:        ResultModule,
						Title:       m.ModuleName,
						Description: m.Description,
						Content:     fmt.Sprintf("%d features", len(m.Features)),
						ModuleName:  m.ModuleName,
						Score:       s,
					})
				}
			}
			if !want(FilterRequirement, FilterFeature) {
				continue
			}
			for _, feat := range m.Features {
				kp := strings.Join(feat.KeyPoints, " ")
				if s := scoreText(q, tokens, feat.Name, feat.Description, kp); s > 0 {
					results = append(results, Result{
						Type:            ResultFeature,
						Title:           feat.Name,
						Description:     feat.Description,
						Content:         kp,
						OriginReference: feat.OriginReference,
						ModuleName:      m.ModuleName,
						CreatedAt:       feat.CompletedAt,
						Score:           s,
					})
				}
			}
		}
	}

	if want(FilterTech) {
		results = appendVocabulary(results, q, ResultTechPattern, "tech pattern", doc.TechArchitecture.Patterns)
	}
	if want(FilterUI) {
		results = appendVocabulary(results, q, ResultUIComponent, "UI component", doc.UIUXStandards.CommonComponents)
		results = appendVocabulary(results, q, ResultUIPattern, "interaction pattern", doc.UIUXStandards.InteractionPatterns)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}
	return results
}

// scoreText applies the title/description/key-point weights and, when
// tokens is non-nil, the per-token bonus over the combined text.
func scoreText(q string, tokens []string, title, desc, keyPoints string) float64 {
	title, desc, keyPoints = strings.ToLower(title), strings.ToLower(desc), strings.ToLower(keyPoints)
	var score float64
	if strings.Contains(title, q) {
		score += weightTitle
	}
	if strings.Contains(desc, q) {
		score += weightDescription
	}
	if keyPoints != "" && strings.Contains(keyPoints, q) {
		score += weightKeyPoints
	}
	if len(tokens) > 0 {
		combined := title + " " + desc + " " + keyPoints
		for _, tok := range tokens {
			if strings.Contains(combined, tok) {
				score += weightToken
			}
		}
	}
	return score
}

func appendVocabulary(results []Result, q string, typ ResultType, label string, entries []string) []Result {
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e), q) {
			results = append(results, Result{
				Type:        typ,
				Title:       e,
				Description: label,
				Content:     e,
				Score:       weightVocabulary,
			})
		}
	}
	return results
}
