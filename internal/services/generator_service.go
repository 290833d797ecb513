// internal/services/generator_service.go
package services

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

const (
	// readingSpeedWPM is the assumed narration speed for duration estimation.
	readingSpeedWPM = 150
	// minSectionDuration is the floor for an estimated section duration.
	minSectionDuration = 30
	// maxExtractedKeywords caps heuristic tag extraction.
	maxExtractedKeywords = 10
)

// sectionTopicLabels rotate through heuristically generated sections,
// keyed by language.
var sectionTopicLabels = map[string][]string{
	"en": {
		"Overview",
		"Core Concepts",
		"Step-by-Step Walkthrough",
		"Hands-on Example",
		"Common Pitfalls",
		"Best Practices",
		"Summary",
	},
	"ko": {
		"개요",
		"핵심 개념",
		"단계별 살펴보기",
		"실습 예제",
		"자주 하는 실수",
		"모범 사례",
		"정리",
	},
}

// introPhrases and conclusionPhrases are small canned pools; one entry is
// picked at random per generation. %s is the topic.
var introPhrases = map[string][]string{
	"en": {
		"Welcome! Today we are going to explore %s together.",
		"In this video we take a close look at %s and why it matters.",
		"Ever wondered how %s really works? Let's find out.",
	},
	"ko": {
		"안녕하세요! 오늘은 %s에 대해 함께 알아보겠습니다.",
		"이번 영상에서는 %s를 자세히 살펴봅니다.",
		"%s, 어떻게 동작하는지 궁금하셨나요? 지금 시작합니다.",
	},
}

var conclusionPhrases = map[string][]string{
	"en": {
		"That wraps up our look at %s. Thanks for watching!",
		"We covered a lot of ground on %s today. See you next time!",
		"Now you have a solid foundation in %s. Keep practicing!",
	},
	"ko": {
		"%s에 대한 내용은 여기까지입니다. 시청해 주셔서 감사합니다!",
		"오늘 %s에 대해 많은 것을 다뤘습니다. 다음에 또 만나요!",
		"이제 %s의 기초를 탄탄히 다졌습니다. 꾸준히 연습해 보세요!",
	},
}

// englishStopWords is the small stop-word list used by keyword extraction.
// The extractor is English-biased and under-performs on Korean text; this is
// a known limitation of the heuristic.
var englishStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "this": true,
	"that": true, "with": true, "have": true, "from": true, "they": true,
	"will": true, "would": true, "there": true, "their": true, "what": true,
	"about": true, "which": true, "when": true, "your": true, "how": true,
	"into": true, "more": true, "some": true, "them": true, "then": true,
	"than": true, "its": true, "also": true, "been": true, "were": true,
}

// GeneratorService produces scenario drafts, either by filling a registered
// template or by a heuristic split of the requested duration. It does not
// talk to any language model; generation is deterministic template-fill plus
// simple heuristics.
type GeneratorService struct {
	templates *TemplateService
	logger    *zap.Logger
	rng       *rand.Rand
}

// NewGeneratorService creates a content generator backed by the given
// template registry.
func NewGeneratorService(templates *TemplateService, logger *zap.Logger) *GeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneratorService{
		templates: templates,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate builds a scenario draft from options. With a TemplateID the
// sections come from the template structure; otherwise the total duration is
// split heuristically. The returned aggregate has version 1 and no revision
// history yet; the document store commits it.
func (g *GeneratorService) Generate(options models.GenerateOptions, authorID string) (*models.Scenario, error) {
	language := normalizeLanguage(options.Language)
	now := time.Now()

	scenario := &models.Scenario{
		Metadata: models.ScenarioMetadata{
			ID:             uuid.NewString(),
			ProjectID:      options.ProjectID,
			Title:          options.Topic,
			Type:           models.TypeAutoGenerated,
			Status:         models.StatusDraft,
			Version:        1,
			Language:       language,
			TargetAudience: defaultAudience(options.TargetAudience),
			CreatedAt:      now,
			UpdatedAt:      now,
			CreatedBy:      authorID,
		},
	}

	if options.TemplateID != "" {
		tpl, err := g.templates.Get(options.TemplateID)
		if err != nil {
			return nil, err
		}

		vars := g.templateVariables(tpl, options)
		scenario.Metadata.Type = models.TypeTemplateBased
		scenario.Introduction = FillTemplate(tpl.Structure.IntroductionTemplate, vars)
		scenario.Conclusion = FillTemplate(tpl.Structure.ConclusionTemplate, vars)

		for _, st := range tpl.Structure.SectionTemplates {
			scenario.Sections = append(scenario.Sections, models.Section{
				ID:         uuid.NewString(),
				Title:      FillTemplate(st.Title, vars),
				Content:    FillTemplate(st.ContentTemplate, vars),
				Duration:   st.DefaultDuration,
				IsEditable: true,
			})
		}
	} else {
		scenario.Introduction = g.pickPhrase(introPhrases, language, options.Topic)
		scenario.Conclusion = g.pickPhrase(conclusionPhrases, language, options.Topic)
		scenario.Sections = g.heuristicSections(options.Topic, options.Duration, language)
	}

	scenario.Resequence()

	g.logger.Info("scenario draft generated",
		zap.String("scenario_id", scenario.Metadata.ID),
		zap.String("type", string(scenario.Metadata.Type)),
		zap.Int("sections", len(scenario.Sections)))

	return scenario, nil
}

// BuildUserScenario assembles a scenario draft from caller-authored content.
// Sections without an explicit duration are estimated at 150 words/minute
// with a 30-second floor. Tags are extracted heuristically from the
// introduction and conclusion text.
func (g *GeneratorService) BuildUserScenario(input models.UserScenarioInput, authorID string) *models.Scenario {
	now := time.Now()

	scenario := &models.Scenario{
		Metadata: models.ScenarioMetadata{
			ID:             uuid.NewString(),
			ProjectID:      input.ProjectID,
			Title:          input.Title,
			Type:           models.TypeUserProvided,
			Status:         models.StatusDraft,
			Version:        1,
			Language:       normalizeLanguage(input.Language),
			TargetAudience: defaultAudience(input.TargetAudience),
			Tags:           input.Tags,
			CreatedAt:      now,
			UpdatedAt:      now,
			CreatedBy:      authorID,
		},
		Introduction: input.Introduction,
		Conclusion:   input.Conclusion,
	}

	for _, in := range input.Sections {
		duration := in.Duration
		if duration <= 0 {
			duration = EstimateDuration(in.Content)
		}

		scenario.Sections = append(scenario.Sections, models.Section{
			ID:           uuid.NewString(),
			Title:        in.Title,
			Content:      in.Content,
			Duration:     duration,
			IsEditable:   true,
			VisualNotes:  in.VisualNotes,
			CodeExamples: in.CodeExamples,
		})
	}

	if len(scenario.Metadata.Tags) == 0 {
		scenario.Metadata.Tags = ExtractKeywords(input.Introduction + " " + input.Conclusion)
	}

	scenario.Resequence()
	return scenario
}

// heuristicSections splits the total duration into equal integer shares:
// count = max(3, duration/60). Residual seconds from the integer division are
// dropped, a known rounding loss.
func (g *GeneratorService) heuristicSections(topic string, duration int, language string) []models.Section {
	count := duration / 60
	if count < 3 {
		count = 3
	}
	share := duration / count

	labels := sectionTopicLabels[language]
	if len(labels) == 0 {
		labels = sectionTopicLabels["en"]
	}

	sections := make([]models.Section, 0, count)
	for i := 0; i < count; i++ {
		label := labels[i%len(labels)]
		sections = append(sections, models.Section{
			ID:         uuid.NewString(),
			Title:      fmt.Sprintf("%s: %s", topic, label),
			Content:    placeholderContent(topic, label, language),
			Duration:   share,
			IsEditable: true,
		})
	}

	return sections
}

func placeholderContent(topic, label, language string) string {
	if language == "ko" {
		return fmt.Sprintf("%s의 %s 부분입니다. 이 구간에서 다룰 내용을 작성하세요.", topic, label)
	}
	return fmt.Sprintf("This segment covers %s for %s. Fill in the narration for this part.", label, topic)
}

// pickPhrase selects a random phrase from a canned pool.
func (g *GeneratorService) pickPhrase(pool map[string][]string, language, topic string) string {
	phrases := pool[language]
	if len(phrases) == 0 {
		phrases = pool["en"]
	}
	return fmt.Sprintf(phrases[g.rng.Intn(len(phrases))], topic)
}

// templateVariables merges template defaults, caller variables and the topic.
func (g *GeneratorService) templateVariables(tpl *models.ScenarioTemplate, options models.GenerateOptions) map[string]string {
	vars := make(map[string]string)
	for _, v := range tpl.Variables {
		if v.DefaultValue != "" {
			vars[v.Name] = v.DefaultValue
		}
	}
	for name, value := range options.Variables {
		vars[name] = value
	}
	if options.Topic != "" {
		if _, ok := vars["topic"]; !ok {
			vars["topic"] = options.Topic
		}
	}
	return vars
}

// EstimateDuration estimates narration time in seconds for the given content
// at 150 words/minute, floored at 30 seconds.
func EstimateDuration(content string) int {
	words := len(strings.Fields(content))
	seconds := words * 60 / readingSpeedWPM
	if seconds < minSectionDuration {
		return minSectionDuration
	}
	return seconds
}

// ExtractKeywords lower-cases the text, strips a small English stop-word
// list, de-duplicates and caps the result at 10 entries. English-biased:
// Korean text mostly passes through the stop-word filter untouched.
func ExtractKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && !(r >= 0x80)
	})

	seen := make(map[string]bool)
	var keywords []string
	for _, word := range fields {
		if len(word) < 3 || englishStopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) >= maxExtractedKeywords {
			break
		}
	}

	return keywords
}

func normalizeLanguage(language string) string {
	if language == "" {
		return "en"
	}
	return language
}

func defaultAudience(audience models.TargetAudience) models.TargetAudience {
	if audience == "" {
		return models.AudienceBeginner
	}
	return audience
}
