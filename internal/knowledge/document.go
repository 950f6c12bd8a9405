package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// New returns an empty, valid document at version 1 with status pending.
func New() *Document {
	doc := &Document{}
	Normalize(doc)
	return doc
}

// Normalize fills every missing section with an empty default so the
// document satisfies Validate. It is idempotent.
//
// Repairs applied, in order:
//   - nil slices and maps become empty ones
//   - an empty status becomes pending, a version below 1 becomes 1
//   - modules without a name are renamed to FallbackModule
//   - modules sharing a name are coalesced into the first occurrence
//   - later ledger entries repeating an origin reference are dropped
//   - current_status is recomputed
func Normalize(doc *Document) {
	if doc.Status == "" {
		doc.Status = StatusPending
	}
	if doc.Version < 1 {
		doc.Version = 1
	}
	if doc.FeatureModules == nil {
		doc.FeatureModules = []Module{}
	}
	for i := range doc.FeatureModules {
		m := &doc.FeatureModules[i]
		if m.ModuleName == "" {
			m.ModuleName = FallbackModule
		}
		if m.Features == nil {
			m.Features = []Feature{}
		}
		for j := range m.Features {
			if m.Features[j].KeyPoints == nil {
				m.Features[j].KeyPoints = []string{}
			}
		}
	}
	doc.FeatureModules = coalesceModules(doc.FeatureModules)

	ta := &doc.TechArchitecture
	if ta.Conventions == nil {
		ta.Conventions = NoteMap{}
	}
	if ta.Patterns == nil {
		ta.Patterns = []string{}
	}

	ui := &doc.UIUXStandards
	if ui.CommonComponents == nil {
		ui.CommonComponents = []string{}
	}
	if ui.InteractionPatterns == nil {
		ui.InteractionPatterns = []string{}
	}

	if doc.DataModel.Entities == nil {
		doc.DataModel.Entities = []Entity{}
	}
	if doc.CompletedRequirements == nil {
		doc.CompletedRequirements = []ArchivedRequirement{}
	}
	doc.CompletedRequirements = dedupeLedger(doc.CompletedRequirements)
	for i := range doc.CompletedRequirements {
		if doc.CompletedRequirements[i].KeyPoints == nil {
			doc.CompletedRequirements[i].KeyPoints = []string{}
		}
	}
	if doc.PendingQuestions == nil {
		doc.PendingQuestions = []PendingQuestion{}
	}
	if doc.RawInsights == nil {
		doc.RawInsights = []string{}
	}

	RecomputeStatus(doc)
}

func coalesceModules(mods []Module) []Module {
	out := make([]Module, 0, len(mods))
	index := make(map[string]int, len(mods))
	for _, m := range mods {
		if i, ok := index[m.ModuleName]; ok {
			out[i].Features = append(out[i].Features, m.Features...)
			if out[i].Description == "" {
				out[i].Description = m.Description
			}
			continue
		}
		index[m.ModuleName] = len(out)
		out = append(out, m)
	}
	return out
}

func dedupeLedger(entries []ArchivedRequirement) []ArchivedRequirement {
	out := make([]ArchivedRequirement, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.OriginReference] {
			continue
		}
		seen[e.OriginReference] = true
		out = append(out, e)
	}
	return out
}

// Validate checks the document's structural invariants and returns every
// violation joined into one error wrapping ErrInvalidDocument.
func Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	var errs []error

	if err := ValidateStatus(doc.Status); err != nil {
		errs = append(errs, err)
	}
	if doc.Version < 1 {
		errs = append(errs, fmt.Errorf("version must be >= 1, got %d", doc.Version))
	}

	names := make(map[string]bool, len(doc.FeatureModules))
	for _, m := range doc.FeatureModules {
		if m.ModuleName == "" {
			errs = append(errs, errors.New("feature module with empty module_name"))
			continue
		}
		if names[m.ModuleName] {
			errs = append(errs, fmt.Errorf("duplicate module_name %q", m.ModuleName))
		}
		names[m.ModuleName] = true
	}

	refs := make(map[string]bool, len(doc.CompletedRequirements))
	for _, r := range doc.CompletedRequirements {
		if refs[r.OriginReference] {
			errs = append(errs, fmt.Errorf("duplicate origin_reference %q in completed_requirements", r.OriginReference))
		}
		refs[r.OriginReference] = true
	}

	if got, want := doc.ProjectOverview.CurrentStatus.TotalRequirements, len(doc.CompletedRequirements); got != want {
		errs = append(errs, fmt.Errorf("current_status.total_requirements is %d, ledger has %d", got, want))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
}

// Clone returns a deep copy of doc. Merges operate on the copy so a
// failure never leaves the caller's document half-mutated.
func Clone(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		// Document contains only JSON-safe types; a marshal error here is a
		// programming error.
		panic(fmt.Sprintf("knowledge: clone: %v", err))
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("knowledge: clone: %v", err))
	}
	return &out
}

// --- Decoding ---

// legacySections holds section names used by older persisted documents.
type legacySections struct {
	SystemOverview  *Overview         `json:"system_overview"`
	TechConventions *TechArchitecture `json:"tech_conventions"`
	UIStandards     *UIStandards      `json:"ui_standards"`
}

// ParseDocument decodes a persisted document, seeds the current sections
// from legacy ones when the current ones are absent, and normalizes the
// result.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	var legacy legacySections
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: legacy sections: %w", ErrInvalidDocument, err)
	}
	if _, ok := present["project_overview"]; !ok && legacy.SystemOverview != nil {
		doc.ProjectOverview = *legacy.SystemOverview
	}
	if _, ok := present["tech_architecture"]; !ok && legacy.TechConventions != nil {
		doc.TechArchitecture = *legacy.TechConventions
	}
	if _, ok := present["ui_ux_standards"]; !ok && legacy.UIStandards != nil {
		doc.UIUXStandards = *legacy.UIStandards
	}

	Normalize(&doc)
	return &doc, nil
}
