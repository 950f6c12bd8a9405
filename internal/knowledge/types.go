// Package knowledge defines the per-project Knowledge Document and the
// pure operations that keep it consistent: schema defaults, validation,
// section merges, the completed-requirements ledger, the confirmation
// gate, search, and context formatting.
//
// Nothing in this package performs I/O. Synthesis (internal/synthesis),
// evolution (internal/evolution), and persistence (internal/store) build
// on these types; the engine (internal/engine) orchestrates them.
package knowledge

import (
	"encoding/json"
	"fmt"
	"sort"
)

// --- Document status enum ---

// DocStatus is the confirmation state of a knowledge document.
type DocStatus string

const (
	StatusPending   DocStatus = "pending"
	StatusConfirmed DocStatus = "confirmed"
)

// validStatuses is the set of allowed document statuses.
var validStatuses = map[DocStatus]bool{
	StatusPending:   true,
	StatusConfirmed: true,
}

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s DocStatus) error {
	if !validStatuses[s] {
		return fmt.Errorf("%w %q: must be one of: pending, confirmed", ErrInvalidStatus, s)
	}
	return nil
}

// FallbackModule is the module that receives requirements which could not
// be classified.
const FallbackModule = "Other/Unclassified"

// MaxRecentFeatures bounds current_status.completed_features.
const MaxRecentFeatures = 10

// FeatureStatusCompleted is the status of features added by evolution.
const FeatureStatusCompleted = "completed"

// --- Document ---

// Document is the single structured knowledge artifact of a project.
type Document struct {
	ProjectOverview       Overview              `json:"project_overview"`
	FeatureModules        []Module              `json:"feature_modules"`
	TechArchitecture      TechArchitecture      `json:"tech_architecture"`
	UIUXStandards         UIStandards           `json:"ui_ux_standards"`
	DataModel             DataModel             `json:"data_model"`
	CompletedRequirements []ArchivedRequirement `json:"completed_requirements"`
	PendingQuestions      []PendingQuestion     `json:"pending_questions"`
	RawInsights           []string              `json:"raw_insights"`
	Version               int                   `json:"version"`
	Status                DocStatus             `json:"status"`
	CreatedAt             string                `json:"created_at,omitempty"`
	UpdatedAt             string                `json:"updated_at,omitempty"`
}

// Overview describes the product and carries the derived status cache.
type Overview struct {
	ProductName   string        `json:"product_name,omitempty"`
	ProductType   string        `json:"product_type"`
	Description   string        `json:"description"`
	TargetUsers   string        `json:"target_users,omitempty"`
	CoreValue     string        `json:"core_value,omitempty"`
	CurrentStatus CurrentStatus `json:"current_status"`
}

// CurrentStatus is recomputed from the ledger and the module view after
// every mutation. It is never a source of truth.
type CurrentStatus struct {
	TotalRequirements    int            `json:"total_requirements"`
	CompletedFeatures    []string       `json:"completed_features"`
	FeatureCountByModule map[string]int `json:"feature_count_by_module"`
}

// Module groups features under a name that is unique within a document.
type Module struct {
	ModuleName  string    `json:"module_name"`
	Description string    `json:"description"`
	Priority    string    `json:"priority,omitempty"`
	Features    []Feature `json:"features"`
}

// Feature is one capability inside a module.
type Feature struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Status          string   `json:"status,omitempty"`
	OriginReference string   `json:"origin_reference,omitempty"`
	KeyPoints       []string `json:"key_points"`
	CompletedAt     string   `json:"completed_at,omitempty"`
}

// TechArchitecture holds conventions and patterns. Both only grow.
type TechArchitecture struct {
	Conventions         NoteMap  `json:"conventions"`
	Patterns            []string `json:"patterns"`
	TechStack           NoteMap  `json:"tech_stack,omitempty"`
	ArchitecturePattern string   `json:"architecture_pattern,omitempty"`
}

// UIStandards holds the UI component and interaction vocabulary.
type UIStandards struct {
	CommonComponents    []string `json:"common_components"`
	InteractionPatterns []string `json:"interaction_patterns"`
	PrimaryColors       []string `json:"primary_colors,omitempty"`
	ComponentLibrary    string   `json:"component_library,omitempty"`
	LayoutFeatures      []string `json:"layout_features,omitempty"`
}

// DataModel lists the entities inferred during synthesis.
type DataModel struct {
	Entities []Entity `json:"entities"`
}

// Entity is a data-model entity.
type Entity struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// Field is an entity attribute.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// ArchivedRequirement is one append-only ledger entry.
type ArchivedRequirement struct {
	OriginReference string   `json:"origin_reference"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	KeyPoints       []string `json:"key_points"`
	PRDGenerated    bool     `json:"prd_generated"`
	ArchivedAt      string   `json:"archived_at"`
}

// PendingQuestion is an open question raised during synthesis.
type PendingQuestion struct {
	Category        string `json:"category,omitempty"`
	Question        string `json:"question"`
	Context         string `json:"context,omitempty"`
	SuggestedAnswer string `json:"suggested_answer,omitempty"`
	Priority        string `json:"priority,omitempty"`
}

// UnmarshalJSON accepts either a question object or a bare string.
func (q *PendingQuestion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = PendingQuestion{Question: s}
		return nil
	}
	type plain PendingQuestion
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = PendingQuestion(p)
	return nil
}

// NoteMap is a free-form key → notes mapping.
type NoteMap map[string][]string

// UnmarshalJSON accepts values that are a string, a list of strings, or
// any other JSON scalar, normalizing all of them to a list of strings.
func (m *NoteMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(NoteMap, len(raw))
	for k, v := range raw {
		notes, err := decodeNotes(v)
		if err != nil {
			return fmt.Errorf("conventions[%q]: %w", k, err)
		}
		out[k] = notes
	}
	*m = out
	return nil
}

func decodeNotes(v json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if s == "" {
			return []string{}, nil
		}
		return []string{s}, nil
	}
	var anyVal any
	if err := json.Unmarshal(v, &anyVal); err != nil {
		return nil, err
	}
	if anyVal == nil {
		return []string{}, nil
	}
	return []string{fmt.Sprint(anyVal)}, nil
}

// Keys returns the map keys in sorted order.
func (m NoteMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- Inputs ---

// Fragment is the already-extracted analysis of one uploaded source.
type Fragment struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"project_id"`
	SourceName string         `json:"source_name"`
	SourceKind string         `json:"source_kind"`
	Summary    string         `json:"summary"`
	Entities   []string       `json:"entities,omitempty"`
	UIInfo     map[string]any `json:"ui_info,omitempty"`
	TechInfo   map[string]any `json:"tech_info,omitempty"`
	References []string       `json:"references,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

// Requirement is a completed requirement summary handed to evolution.
type Requirement struct {
	OriginReference string   `json:"origin_reference"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	KeyPoints       []string `json:"key_points"`
	PRDGenerated    bool     `json:"prd_generated"`
}

// Project is the owner of fragments and a knowledge document.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}
