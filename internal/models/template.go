// internal/models/template.go
package models

// ScenarioTemplate is a reusable skeleton of section shapes with {{variable}}
// placeholders, used by template-based generation.
type ScenarioTemplate struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Structure TemplateStructure  `json:"structure"`
	Variables []TemplateVariable `json:"variables"`
}

type TemplateStructure struct {
	IntroductionTemplate string            `json:"introduction_template"`
	SectionTemplates     []SectionTemplate `json:"section_templates"`
	ConclusionTemplate   string            `json:"conclusion_template"`
}

type SectionTemplate struct {
	Title             string   `json:"title"`
	ContentTemplate   string   `json:"content_template"`
	DefaultDuration   int      `json:"default_duration"` // seconds
	RequiredVariables []string `json:"required_variables,omitempty"`
}

type TemplateVariable struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	DefaultValue string `json:"default_value,omitempty"`
}
