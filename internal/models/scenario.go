// internal/models/scenario.go
package models

import (
	"time"
)

// ScenarioType describes how a scenario came into existence.
type ScenarioType string

const (
	TypeAutoGenerated ScenarioType = "auto_generated"
	TypeUserProvided  ScenarioType = "user_provided"
	TypeHybrid        ScenarioType = "hybrid"
	TypeTemplateBased ScenarioType = "template_based"
)

// ScenarioStatus is the coarse production-lifecycle stage of a scenario.
type ScenarioStatus string

const (
	StatusDraft        ScenarioStatus = "draft"
	StatusReviewing    ScenarioStatus = "reviewing"
	StatusApproved     ScenarioStatus = "approved"
	StatusInProduction ScenarioStatus = "in_production"
	StatusCompleted    ScenarioStatus = "completed"
)

// TargetAudience levels accepted by the generator.
type TargetAudience string

const (
	AudienceBeginner     TargetAudience = "beginner"
	AudienceIntermediate TargetAudience = "intermediate"
	AudienceAdvanced     TargetAudience = "advanced"
)

// Scenario is the aggregate root: an ordered sequence of timed sections plus
// the revision history of every committed mutation. All fields are mutated
// only through ScenarioService operations.
type Scenario struct {
	Metadata        ScenarioMetadata `json:"metadata"`
	Introduction    string           `json:"introduction"`
	Sections        []Section        `json:"sections"`
	Conclusion      string           `json:"conclusion"`
	RevisionHistory []Revision       `json:"revision_history"`
}

type ScenarioMetadata struct {
	ID                string         `json:"id"`
	ProjectID         string         `json:"project_id"`
	Title             string         `json:"title"`
	Type              ScenarioType   `json:"type"`
	Status            ScenarioStatus `json:"status"`
	Version           int            `json:"version"`
	Language          string         `json:"language"`
	TargetAudience    TargetAudience `json:"target_audience"`
	EstimatedDuration int            `json:"estimated_duration"` // seconds
	Tags              []string       `json:"tags,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	CreatedBy         string         `json:"created_by"`
	LastModifiedBy    string         `json:"last_modified_by,omitempty"`
}

// Section is one timed, titled unit of a scenario. Order is 1-based and
// contiguous across the section slice.
type Section struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	Duration     int           `json:"duration"` // seconds
	Order        int           `json:"order"`
	IsEditable   bool          `json:"is_editable"`
	LastModified *time.Time    `json:"last_modified,omitempty"`
	ModifiedBy   string        `json:"modified_by,omitempty"`
	VisualNotes  string        `json:"visual_notes,omitempty"`
	CodeExamples []CodeExample `json:"code_examples,omitempty"`
}

type CodeExample struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Caption  string `json:"caption,omitempty"`
}

// TotalDuration sums the durations of all sections.
func (s *Scenario) TotalDuration() int {
	total := 0
	for _, sec := range s.Sections {
		total += sec.Duration
	}
	return total
}

// SectionByID returns the section with the given id, or nil.
func (s *Scenario) SectionByID(id string) *Section {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i]
		}
	}
	return nil
}

// Resequence rewrites every section order to match its slice position and
// recomputes the estimated duration. Called after any structural change.
func (s *Scenario) Resequence() {
	for i := range s.Sections {
		s.Sections[i].Order = i + 1
	}
	s.Metadata.EstimatedDuration = s.TotalDuration()
}

// DeepCopy returns an independent copy of the aggregate. Change values inside
// revisions are shared; they are treated as immutable once recorded.
func (s *Scenario) DeepCopy() *Scenario {
	cp := *s
	cp.Metadata.Tags = append([]string(nil), s.Metadata.Tags...)

	cp.Sections = make([]Section, len(s.Sections))
	for i, sec := range s.Sections {
		secCopy := sec
		if sec.LastModified != nil {
			t := *sec.LastModified
			secCopy.LastModified = &t
		}
		secCopy.CodeExamples = append([]CodeExample(nil), sec.CodeExamples...)
		cp.Sections[i] = secCopy
	}

	cp.RevisionHistory = make([]Revision, len(s.RevisionHistory))
	for i, rev := range s.RevisionHistory {
		revCopy := rev
		revCopy.Changes = append([]Change(nil), rev.Changes...)
		cp.RevisionHistory[i] = revCopy
	}

	return &cp
}

// GenerateOptions drives automatic scenario generation.
type GenerateOptions struct {
	Topic          string            `json:"topic"`
	Duration       int               `json:"duration"` // seconds
	TargetAudience TargetAudience    `json:"target_audience,omitempty"`
	Language       string            `json:"language,omitempty"`
	ProjectID      string            `json:"project_id,omitempty"`
	TemplateID     string            `json:"template_id,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"`
}

// UserSectionInput is one caller-supplied section for CreateUserScenario.
// Duration is optional; omitted durations are estimated from reading speed.
type UserSectionInput struct {
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	Duration     int           `json:"duration,omitempty"`
	VisualNotes  string        `json:"visual_notes,omitempty"`
	CodeExamples []CodeExample `json:"code_examples,omitempty"`
}

// UserScenarioInput is the payload for creating a scenario from
// caller-authored content.
type UserScenarioInput struct {
	Title          string             `json:"title"`
	ProjectID      string             `json:"project_id,omitempty"`
	Language       string             `json:"language,omitempty"`
	TargetAudience TargetAudience     `json:"target_audience,omitempty"`
	Introduction   string             `json:"introduction"`
	Sections       []UserSectionInput `json:"sections"`
	Conclusion     string             `json:"conclusion"`
	Tags           []string           `json:"tags,omitempty"`
}

// ScenarioPatch enumerates exactly the fields UpdateScenario may change.
// Section patches are addressed by array index, in section order.
type ScenarioPatch struct {
	Title        *string        `json:"title,omitempty"`
	Introduction *string        `json:"introduction,omitempty"`
	Sections     []SectionPatch `json:"sections,omitempty"`
	Conclusion   *string        `json:"conclusion,omitempty"`
}

// SectionPatch updates fields of the section at Index (0-based).
type SectionPatch struct {
	Index       int     `json:"index"`
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	Duration    *int    `json:"duration,omitempty"`
	VisualNotes *string `json:"visual_notes,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p *ScenarioPatch) IsEmpty() bool {
	return p.Title == nil && p.Introduction == nil && p.Conclusion == nil && len(p.Sections) == 0
}

// AddSectionInput is the payload for AddSection. Position is 1-based; when
// zero or out of bounds the section is appended.
type AddSectionInput struct {
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	Duration     int           `json:"duration,omitempty"`
	Position     int           `json:"position,omitempty"`
	VisualNotes  string        `json:"visual_notes,omitempty"`
	CodeExamples []CodeExample `json:"code_examples,omitempty"`
}

// MetadataOverrides selectively overrides clone metadata. Type is
// intentionally absent: a clone is always user_provided.
type MetadataOverrides struct {
	Title          *string         `json:"title,omitempty"`
	ProjectID      *string         `json:"project_id,omitempty"`
	Language       *string         `json:"language,omitempty"`
	TargetAudience *TargetAudience `json:"target_audience,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
}

// ValidationLimits are the structural bounds enforced before commit.
type ValidationLimits struct {
	MinSections    int `json:"min_sections"`
	MaxSections    int `json:"max_sections"`
	MinDuration    int `json:"min_duration"` // seconds
	MaxDuration    int `json:"max_duration"` // seconds
	MaxTitleLength int `json:"max_title_length"`
}

// DefaultValidationLimits returns the stock bounds.
func DefaultValidationLimits() ValidationLimits {
	return ValidationLimits{
		MinSections:    2,
		MaxSections:    20,
		MinDuration:    30,
		MaxDuration:    600,
		MaxTitleLength: 200,
	}
}
