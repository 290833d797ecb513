// internal/services/export_service.go
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Corphon/ScenarioForgeMCP/internal/errors"
	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

// Reserved markdown headers marking the introduction/conclusion blocks.
// Both the English and Korean literals are recognized on import.
var (
	introductionHeaders = map[string]bool{"Introduction": true, "소개": true}
	conclusionHeaders   = map[string]bool{"Conclusion": true, "결론": true}
)

// ExportService serializes scenarios to and from exchange formats. JSON is a
// full, lossless serialization; markdown is a readable rendering whose import
// counterpart is best-effort only (no escaping, not round-trip safe for
// arbitrary content). PDF is reserved and not implemented.
type ExportService struct {
	scenarios *ScenarioService
	logger    *zap.Logger
}

// NewExportService creates the export service on top of the document store.
func NewExportService(scenarios *ScenarioService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		scenarios: scenarios,
		logger:    logger,
	}
}

// Export serializes the scenario in the requested format.
func (s *ExportService) Export(id string, format models.ExportFormat) (*models.ExportResult, error) {
	scenario, err := s.scenarios.Get(id)
	if err != nil {
		return nil, err
	}

	var content string
	switch format {
	case models.FormatJSON:
		raw, err := json.MarshalIndent(scenario, "", "  ")
		if err != nil {
			return nil, apperrors.NewProcessingError("failed to serialize scenario", err)
		}
		content = string(raw)
	case models.FormatMarkdown:
		content = s.formatAsMarkdown(scenario)
	case models.FormatPDF:
		return nil, apperrors.NewNotImplementedError("pdf export is not implemented")
	default:
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unsupported export format: %s (supported: json, markdown)", format), nil)
	}

	s.logger.Info("scenario exported",
		zap.String("scenario_id", id),
		zap.String("format", string(format)),
		zap.Int("bytes", len(content)))

	return &models.ExportResult{
		ScenarioID:  id,
		Title:       scenario.Metadata.Title,
		Format:      format,
		Content:     content,
		GeneratedAt: time.Now(),
	}, nil
}

// Import parses serialized data and commits it as a fresh scenario.
func (s *ExportService) Import(data string, format models.ExportFormat, authorID string) (*models.Scenario, error) {
	var scenario *models.Scenario

	switch format {
	case models.FormatJSON:
		var parsed models.Scenario
		if err := json.Unmarshal([]byte(data), &parsed); err != nil {
			return nil, apperrors.NewValidationError("invalid json scenario data", err)
		}
		scenario = &parsed
	case models.FormatMarkdown:
		scenario = parseMarkdownScenario(data)
	default:
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unsupported import format: %s (supported: json, markdown)", format), nil)
	}

	return s.scenarios.CreateImported(scenario, authorID)
}

// formatAsMarkdown renders the scenario with the title as the top-level
// header, reserved Introduction/Conclusion headers, one second-level header
// per section, and fenced code blocks per attached code example.
func (s *ExportService) formatAsMarkdown(scenario *models.Scenario) string {
	korean := scenario.Metadata.Language == "ko"
	introHeader, conclusionHeader := "Introduction", "Conclusion"
	if korean {
		introHeader, conclusionHeader = "소개", "결론"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", scenario.Metadata.Title)

	fmt.Fprintf(&b, "## %s\n\n%s\n\n", introHeader, scenario.Introduction)

	for _, section := range scenario.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", section.Title, section.Content)
		for _, example := range section.CodeExamples {
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", example.Language, example.Code)
		}
	}

	fmt.Fprintf(&b, "## %s\n\n%s\n", conclusionHeader, scenario.Conclusion)
	return b.String()
}

// parseMarkdownScenario is a single-pass line scanner: "# " sets the title,
// "## " either selects a reserved Introduction/Conclusion block or starts a
// new section — any other "## " line, even an empty one, creates a section.
// Section durations are estimated from reading speed.
func parseMarkdownScenario(data string) *models.Scenario {
	scenario := &models.Scenario{
		Metadata: models.ScenarioMetadata{
			Type:   models.TypeUserProvided,
			Status: models.StatusDraft,
		},
	}

	const (
		targetNone = iota
		targetIntroduction
		targetSection
		targetConclusion
	)

	target := targetNone
	var current *models.Section
	var buffer strings.Builder

	flush := func() {
		text := strings.TrimSpace(buffer.String())
		buffer.Reset()
		switch target {
		case targetIntroduction:
			scenario.Introduction = text
		case targetConclusion:
			scenario.Conclusion = text
		case targetSection:
			if current != nil {
				current.Content = text
				current.Duration = EstimateDuration(text)
				scenario.Sections = append(scenario.Sections, *current)
				current = nil
			}
		}
	}

	for _, line := range strings.Split(data, "\n") {
		switch {
		case strings.HasPrefix(line, "# "):
			scenario.Metadata.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		case strings.HasPrefix(line, "## "):
			flush()
			header := strings.TrimSpace(strings.TrimPrefix(line, "## "))
			switch {
			case introductionHeaders[header]:
				target = targetIntroduction
				if header == "소개" {
					scenario.Metadata.Language = "ko"
				}
			case conclusionHeaders[header]:
				target = targetConclusion
			default:
				target = targetSection
				current = &models.Section{
					Title:      header,
					IsEditable: true,
				}
			}
		default:
			if target != targetNone {
				buffer.WriteString(line)
				buffer.WriteString("\n")
			}
		}
	}
	flush()

	return scenario
}
