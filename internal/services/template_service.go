// internal/services/template_service.go
package services

import (
	"fmt"
	"regexp"
	"sync"

	apperrors "github.com/Corphon/ScenarioForgeMCP/internal/errors"
	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

// variablePattern matches {{name}} placeholders.
var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// TemplateService holds the named scenario templates used by template-based
// generation. Two templates are preloaded: a programming-tutorial shape and a
// concept-explanation shape.
type TemplateService struct {
	mu        sync.RWMutex
	templates map[string]*models.ScenarioTemplate
	order     []string
}

// NewTemplateService creates the registry with the default templates loaded.
func NewTemplateService() *TemplateService {
	s := &TemplateService{
		templates: make(map[string]*models.ScenarioTemplate),
	}

	for _, tpl := range defaultTemplates() {
		s.Register(tpl)
	}

	return s
}

// Register adds or replaces a template.
func (s *TemplateService) Register(tpl *models.ScenarioTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[tpl.ID]; !exists {
		s.order = append(s.order, tpl.ID)
	}
	s.templates[tpl.ID] = tpl
}

// Get returns the template with the given id.
func (s *TemplateService) Get(id string) (*models.ScenarioTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, exists := s.templates[id]
	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("template not found: %s", id), nil)
	}
	return tpl, nil
}

// List returns all registered templates in registration order.
func (s *TemplateService) List() []*models.ScenarioTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.ScenarioTemplate, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.templates[id])
	}
	return result
}

// FillTemplate substitutes {{name}} tokens in a single pass. Unmatched names
// are left verbatim in the output; there is no error and no warning.
func FillTemplate(str string, vars map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(str, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}

// defaultTemplates builds the preloaded template set.
func defaultTemplates() []*models.ScenarioTemplate {
	return []*models.ScenarioTemplate{
		{
			ID:   "programming-tutorial",
			Name: "Programming Tutorial",
			Structure: models.TemplateStructure{
				IntroductionTemplate: "Welcome! In this tutorial we take a practical look at {{topic}}. By the end you will be able to use {{topic}} in your own projects.",
				SectionTemplates: []models.SectionTemplate{
					{
						Title:             "What is {{topic}}?",
						ContentTemplate:   "Let's start with the basics. {{topic}} is best understood through a concrete example, so we will walk through one step by step.",
						DefaultDuration:   60,
						RequiredVariables: []string{"topic"},
					},
					{
						Title:             "Setting Up",
						ContentTemplate:   "Before writing any code we need a working environment. Install {{topic}} and verify the installation with a quick smoke test.",
						DefaultDuration:   90,
						RequiredVariables: []string{"topic"},
					},
					{
						Title:             "{{topic}} in Practice",
						ContentTemplate:   "Now we build something real. Follow along as we apply {{topic}} to a small but realistic task, one step at a time.",
						DefaultDuration:   120,
						RequiredVariables: []string{"topic"},
					},
					{
						Title:             "Wrap-up and Next Steps",
						ContentTemplate:   "Let's recap what we covered and where to go from here to deepen your knowledge of {{topic}}.",
						DefaultDuration:   45,
						RequiredVariables: []string{"topic"},
					},
				},
				ConclusionTemplate: "That's it for this tutorial on {{topic}}. Thanks for watching, and happy coding!",
			},
			Variables: []models.TemplateVariable{
				{Name: "topic", Type: "string"},
				{Name: "audience", Type: "string", DefaultValue: "beginner"},
			},
		},
		{
			ID:   "concept-explanation",
			Name: "Concept Explanation",
			Structure: models.TemplateStructure{
				IntroductionTemplate: "Today we unpack {{concept}}: what it is, why it matters, and how to think about it.",
				SectionTemplates: []models.SectionTemplate{
					{
						Title:             "The Problem {{concept}} Solves",
						ContentTemplate:   "Every useful concept exists for a reason. Here is the problem that motivates {{concept}}.",
						DefaultDuration:   60,
						RequiredVariables: []string{"concept"},
					},
					{
						Title:             "How {{concept}} Works",
						ContentTemplate:   "With the motivation in place, let's open the hood and see the mechanics of {{concept}}.",
						DefaultDuration:   120,
						RequiredVariables: []string{"concept"},
					},
					{
						Title:             "{{concept}} in the Real World",
						ContentTemplate:   "Theory is only half the story. These real-world cases show {{concept}} earning its keep.",
						DefaultDuration:   90,
						RequiredVariables: []string{"concept"},
					},
				},
				ConclusionTemplate: "Now you know the what, why, and how of {{concept}}. See you in the next one!",
			},
			Variables: []models.TemplateVariable{
				{Name: "concept", Type: "string"},
			},
		},
	}
}
