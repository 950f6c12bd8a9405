package knowledge

// Assignment names the module a completed requirement belongs to.
type Assignment struct {
	IsNewModule       bool   `json:"is_new_module"`
	ModuleName        string `json:"module_name"`
	ModuleDescription string `json:"module_description,omitempty"`
}

// TechInsights are technical patterns and conventions surfaced by a
// completed requirement.
type TechInsights struct {
	HasUpdate   bool     `json:"has_tech_update"`
	Patterns    []string `json:"patterns"`
	Conventions []string `json:"conventions"`
}

// UIInsights are UI components and interaction patterns surfaced by a
// completed requirement.
type UIInsights struct {
	HasUpdate  bool     `json:"has_ui_update"`
	Components []string `json:"components"`
	Patterns   []string `json:"patterns"`
}

// conventionNotesKey is the conventions key evolution appends to.
const conventionNotesKey = "notes"

// --- Ledger ---

// HasArchived reports whether ref is already in the ledger.
func HasArchived(doc *Document, ref string) bool {
	for _, r := range doc.CompletedRequirements {
		if r.OriginReference == ref {
			return true
		}
	}
	return false
}

// Archive appends entry to the ledger. It returns false and leaves the
// document unchanged if the origin reference is already archived.
func Archive(doc *Document, entry ArchivedRequirement) bool {
	if HasArchived(doc, entry.OriginReference) {
		return false
	}
	if entry.KeyPoints == nil {
		entry.KeyPoints = []string{}
	}
	if entry.ArchivedAt == "" {
		entry.ArchivedAt = Now()
	}
	doc.CompletedRequirements = append(doc.CompletedRequirements, entry)
	return true
}

// ArchiveRequirement converts req into a ledger entry and archives it.
func ArchiveRequirement(doc *Document, req Requirement) bool {
	return Archive(doc, ArchivedRequirement{
		OriginReference: req.OriginReference,
		Title:           req.Title,
		Description:     req.Description,
		KeyPoints:       append([]string(nil), req.KeyPoints...),
		PRDGenerated:    req.PRDGenerated,
	})
}

// --- Modules ---

// FindModule returns the module whose name equals name exactly, or nil.
func FindModule(doc *Document, name string) *Module {
	for i := range doc.FeatureModules {
		if doc.FeatureModules[i].ModuleName == name {
			return &doc.FeatureModules[i]
		}
	}
	return nil
}

// AssignFeature appends feat to the module named by a, creating the module
// when no existing name matches exactly. An empty module name selects
// FallbackModule.
//
// A feature already carrying the same origin reference in any module is
// removed first, so each reference appears in exactly one module.
func AssignFeature(doc *Document, a Assignment, feat Feature) {
	name := a.ModuleName
	if name == "" {
		name = FallbackModule
	}
	if feat.OriginReference != "" {
		removeFeatureByRef(doc, feat.OriginReference)
	}
	if feat.KeyPoints == nil {
		feat.KeyPoints = []string{}
	}

	mod := FindModule(doc, name)
	if mod == nil {
		doc.FeatureModules = append(doc.FeatureModules, Module{
			ModuleName:  name,
			Description: a.ModuleDescription,
			Features:    []Feature{},
		})
		mod = &doc.FeatureModules[len(doc.FeatureModules)-1]
	}
	mod.Features = append(mod.Features, feat)
}

func removeFeatureByRef(doc *Document, ref string) {
	for i := range doc.FeatureModules {
		feats := doc.FeatureModules[i].Features
		kept := feats[:0]
		for _, f := range feats {
			if f.OriginReference != ref {
				kept = append(kept, f)
			}
		}
		doc.FeatureModules[i].Features = kept
	}
}

// FeatureFromRequirement builds the completed feature recorded for req.
func FeatureFromRequirement(req Requirement) Feature {
	return Feature{
		Name:            req.Title,
		Description:     req.Description,
		Status:          FeatureStatusCompleted,
		OriginReference: req.OriginReference,
		KeyPoints:       append([]string{}, req.KeyPoints...),
		CompletedAt:     Now(),
	}
}

// --- Tech / UI ---

// MergeTech unions the insight patterns and conventions into the document.
// Insights without HasUpdate are ignored. Nothing is ever removed.
func MergeTech(doc *Document, in TechInsights) {
	if !in.HasUpdate {
		return
	}
	ta := &doc.TechArchitecture
	ta.Patterns = union(ta.Patterns, in.Patterns)
	if len(in.Conventions) > 0 {
		if ta.Conventions == nil {
			ta.Conventions = NoteMap{}
		}
		ta.Conventions[conventionNotesKey] = union(ta.Conventions[conventionNotesKey], in.Conventions)
	}
}

// MergeUI unions the insight components and patterns into the document.
// Insights without HasUpdate are ignored. Nothing is ever removed.
func MergeUI(doc *Document, in UIInsights) {
	if !in.HasUpdate {
		return
	}
	ui := &doc.UIUXStandards
	ui.CommonComponents = union(ui.CommonComponents, in.Components)
	ui.InteractionPatterns = union(ui.InteractionPatterns, in.Patterns)
}

// union appends each element of add not already present in base, by exact
// string equality, preserving order.
func union(base, add []string) []string {
	if base == nil {
		base = []string{}
	}
	seen := make(map[string]bool, len(base)+len(add))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range add {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		base = append(base, s)
	}
	return base
}

// --- Derived status ---

// RecomputeStatus regenerates project_overview.current_status from the
// ledger and the module view.
func RecomputeStatus(doc *Document) {
	ledger := doc.CompletedRequirements
	start := 0
	if len(ledger) > MaxRecentFeatures {
		start = len(ledger) - MaxRecentFeatures
	}
	recent := make([]string, 0, len(ledger)-start)
	for _, r := range ledger[start:] {
		recent = append(recent, r.Title)
	}

	counts := make(map[string]int, len(doc.FeatureModules))
	for _, m := range doc.FeatureModules {
		counts[m.ModuleName] = len(m.Features)
	}

	doc.ProjectOverview.CurrentStatus = CurrentStatus{
		TotalRequirements:    len(ledger),
		CompletedFeatures:    recent,
		FeatureCountByModule: counts,
	}
}
