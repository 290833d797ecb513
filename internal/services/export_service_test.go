// internal/services/export_service_test.go
package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/Corphon/ScenarioForgeMCP/internal/errors"
	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

func newTestExportService(t *testing.T) (*ExportService, *ScenarioService) {
	t.Helper()
	scenarios := newTestService()
	return NewExportService(scenarios, zap.NewNop()), scenarios
}

func createRichScenario(t *testing.T, scenarios *ScenarioService) *models.Scenario {
	t.Helper()
	scenario, err := scenarios.CreateUserScenario(models.UserScenarioInput{
		Title:        "Pointers in Go",
		Introduction: "Today we demystify pointers.",
		Conclusion:   "Pointers are values too.",
		Sections: []models.UserSectionInput{
			{
				Title:    "Address and Dereference",
				Content:  "The & operator takes an address, * follows it.",
				Duration: 60,
				CodeExamples: []models.CodeExample{
					{Language: "go", Code: "x := 1\np := &x\n*p = 2"},
				},
			},
			{
				Title:    "Pointers and Methods",
				Content:  "Pointer receivers let methods mutate their receiver.",
				Duration: 90,
			},
		},
	}, "author")
	require.NoError(t, err)
	return scenario
}

func TestExportJSON_RoundTrip(t *testing.T) {
	svc, scenarios := newTestExportService(t)
	original := createRichScenario(t, scenarios)

	result, err := svc.Export(original.Metadata.ID, models.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, models.FormatJSON, result.Format)
	assert.Equal(t, original.Metadata.Title, result.Title)

	// The JSON payload deserializes back to the full aggregate.
	var decoded models.Scenario
	require.NoError(t, json.Unmarshal([]byte(result.Content), &decoded))
	assert.Equal(t, original.Metadata.ID, decoded.Metadata.ID)
	assert.Equal(t, original.Introduction, decoded.Introduction)
	assert.Equal(t, original.Conclusion, decoded.Conclusion)
	require.Len(t, decoded.Sections, 2)
	assert.Equal(t, original.Sections[0].Content, decoded.Sections[0].Content)
	assert.Len(t, decoded.RevisionHistory, 1)

	// Importing it back creates an equivalent but independent aggregate.
	imported, err := svc.Import(result.Content, models.FormatJSON, "importer")
	require.NoError(t, err)
	assert.NotEqual(t, original.Metadata.ID, imported.Metadata.ID)
	assert.Equal(t, 1, imported.Metadata.Version)
	assert.Equal(t, "importer", imported.Metadata.CreatedBy)
	assert.Equal(t, original.Introduction, imported.Introduction)
	assert.Equal(t, original.Conclusion, imported.Conclusion)
	require.Len(t, imported.Sections, 2)
	for i := range imported.Sections {
		assert.NotEqual(t, original.Sections[i].ID, imported.Sections[i].ID)
		assert.Equal(t, original.Sections[i].Title, imported.Sections[i].Title)
		assert.Equal(t, original.Sections[i].Content, imported.Sections[i].Content)
		assert.Equal(t, original.Sections[i].Duration, imported.Sections[i].Duration)
		assert.Equal(t, i+1, imported.Sections[i].Order)
	}
	require.Len(t, imported.RevisionHistory, 1)
	assert.Equal(t, "imported", imported.RevisionHistory[0].Comment)
}

func TestExportMarkdown(t *testing.T) {
	svc, scenarios := newTestExportService(t)
	scenario := createRichScenario(t, scenarios)

	result, err := svc.Export(scenario.Metadata.ID, models.FormatMarkdown)
	require.NoError(t, err)

	md := result.Content
	assert.True(t, strings.HasPrefix(md, "# Pointers in Go\n"))
	assert.Contains(t, md, "## Introduction\n\nToday we demystify pointers.")
	assert.Contains(t, md, "## Address and Dereference")
	assert.Contains(t, md, "```go\nx := 1\np := &x\n*p = 2\n```")
	assert.Contains(t, md, "## Conclusion\n\nPointers are values too.")

	// Section order is preserved in the rendering.
	assert.Less(t,
		strings.Index(md, "## Address and Dereference"),
		strings.Index(md, "## Pointers and Methods"))
}

func TestExportMarkdown_KoreanHeaders(t *testing.T) {
	svc, scenarios := newTestExportService(t)
	scenario, err := scenarios.CreateUserScenario(models.UserScenarioInput{
		Title:        "고루틴 입문",
		Language:     "ko",
		Introduction: "고루틴을 소개합니다.",
		Conclusion:   "여기까지입니다.",
		Sections: []models.UserSectionInput{
			{Title: "시작하기", Content: "고루틴은 가볍습니다.", Duration: 60},
			{Title: "채널", Content: "채널로 통신합니다.", Duration: 60},
		},
	}, "author")
	require.NoError(t, err)

	result, err := svc.Export(scenario.Metadata.ID, models.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, result.Content, "## 소개")
	assert.Contains(t, result.Content, "## 결론")
	assert.NotContains(t, result.Content, "## Introduction")
}

func TestExportPDF_NotImplemented(t *testing.T) {
	svc, scenarios := newTestExportService(t)
	scenario := createRichScenario(t, scenarios)

	_, err := svc.Export(scenario.Metadata.ID, models.FormatPDF)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotImplementedError(err))
}

func TestExport_UnsupportedFormat(t *testing.T) {
	svc, scenarios := newTestExportService(t)
	scenario := createRichScenario(t, scenarios)

	_, err := svc.Export(scenario.Metadata.ID, models.ExportFormat("docx"))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestExport_ScenarioNotFound(t *testing.T) {
	svc, _ := newTestExportService(t)

	_, err := svc.Export("missing", models.FormatJSON)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestImportMarkdown(t *testing.T) {
	svc, _ := newTestExportService(t)

	md := `# Imported Talk

## Introduction

Welcome to the imported talk.

## First Part

Some narration for the first part of the talk with enough words to matter.

## Second Part

More narration here.

## Conclusion

Thanks for reading.
`

	scenario, err := svc.Import(md, models.FormatMarkdown, "importer")
	require.NoError(t, err)

	assert.Equal(t, "Imported Talk", scenario.Metadata.Title)
	assert.Equal(t, models.TypeUserProvided, scenario.Metadata.Type)
	assert.Equal(t, models.StatusDraft, scenario.Metadata.Status)
	assert.Equal(t, "en", scenario.Metadata.Language)
	assert.Equal(t, "Welcome to the imported talk.", scenario.Introduction)
	assert.Equal(t, "Thanks for reading.", scenario.Conclusion)

	require.Len(t, scenario.Sections, 2)
	assert.Equal(t, "First Part", scenario.Sections[0].Title)
	assert.Equal(t, 1, scenario.Sections[0].Order)
	assert.Equal(t, 30, scenario.Sections[0].Duration)
	assert.Equal(t, "Second Part", scenario.Sections[1].Title)
}

func TestImportMarkdown_KoreanHeadersSetLanguage(t *testing.T) {
	svc, _ := newTestExportService(t)

	md := `# 수입된 시나리오

## 소개

소개 내용입니다.

## 첫 번째

첫 구간입니다.

## 두 번째

둘째 구간입니다.

## 결론

마무리입니다.
`

	scenario, err := svc.Import(md, models.FormatMarkdown, "importer")
	require.NoError(t, err)
	assert.Equal(t, "ko", scenario.Metadata.Language)
	assert.Equal(t, "소개 내용입니다.", scenario.Introduction)
	assert.Equal(t, "마무리입니다.", scenario.Conclusion)
	require.Len(t, scenario.Sections, 2)
}

func TestImportJSON_Invalid(t *testing.T) {
	svc, _ := newTestExportService(t)

	_, err := svc.Import("{not json", models.FormatJSON, "importer")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestImportMarkdown_TooFewSectionsRejected(t *testing.T) {
	svc, _ := newTestExportService(t)

	md := `# Tiny

## Introduction

Hello.

## Only Section

Body.

## Conclusion

Bye.
`

	_, err := svc.Import(md, models.FormatMarkdown, "importer")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}
