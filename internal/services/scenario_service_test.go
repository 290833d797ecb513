// internal/services/scenario_service_test.go
package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/Corphon/ScenarioForgeMCP/internal/errors"
	"github.com/Corphon/ScenarioForgeMCP/internal/models"
	"github.com/Corphon/ScenarioForgeMCP/internal/storage"
)

func newTestService() *ScenarioService {
	templates := NewTemplateService()
	generator := NewGeneratorService(templates, zap.NewNop())
	validator := NewValidator(models.DefaultValidationLimits())
	notifier := NewNotifier(zap.NewNop())
	return NewScenarioService(storage.NewMemoryStore(), generator, validator, notifier, zap.NewNop())
}

func generateTestScenario(t *testing.T, svc *ScenarioService) *models.Scenario {
	t.Helper()
	scenario, err := svc.Generate(models.GenerateOptions{
		Topic:          "Kubernetes",
		Duration:       180,
		TargetAudience: models.AudienceBeginner,
		Language:       "en",
	}, "u1")
	require.NoError(t, err)
	return scenario
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestGenerateScenario(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)

	// floor(180/60) = 3 equal sections of 60s.
	require.Len(t, scenario.Sections, 3)
	for i, section := range scenario.Sections {
		assert.Equal(t, i+1, section.Order)
		assert.Equal(t, 60, section.Duration)
		assert.NotEmpty(t, section.ID)
		assert.NotEmpty(t, section.Title)
	}

	assert.Equal(t, models.TypeAutoGenerated, scenario.Metadata.Type)
	assert.Equal(t, models.StatusDraft, scenario.Metadata.Status)
	assert.Equal(t, 1, scenario.Metadata.Version)
	assert.Equal(t, 180, scenario.Metadata.EstimatedDuration)
	assert.Equal(t, "u1", scenario.Metadata.CreatedBy)
	require.Len(t, scenario.RevisionHistory, 1)
	assert.Equal(t, 1, scenario.RevisionHistory[0].Version)
}

func TestGenerateScenario_ShortDurationFloorsAtThreeSections(t *testing.T) {
	svc := newTestService()
	scenario, err := svc.Generate(models.GenerateOptions{Topic: "Git", Duration: 90}, "u1")
	require.NoError(t, err)

	require.Len(t, scenario.Sections, 3)
	// 90/3 = 30s shares, no residual.
	assert.Equal(t, 90, scenario.Metadata.EstimatedDuration)
}

func TestGenerateScenario_FromTemplate(t *testing.T) {
	svc := newTestService()
	scenario, err := svc.Generate(models.GenerateOptions{
		Topic:      "Docker",
		TemplateID: "programming-tutorial",
	}, "u1")
	require.NoError(t, err)

	assert.Equal(t, models.TypeTemplateBased, scenario.Metadata.Type)
	require.Len(t, scenario.Sections, 4)
	assert.Equal(t, "What is Docker?", scenario.Sections[0].Title)
	assert.Equal(t, 60, scenario.Sections[0].Duration)
	assert.Contains(t, scenario.Introduction, "Docker")
}

func TestGenerateScenario_UnknownTemplate(t *testing.T) {
	svc := newTestService()
	_, err := svc.Generate(models.GenerateOptions{Topic: "X", TemplateID: "no-such-template"}, "u1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestCreateUserScenario_ValidationRejectsSingleSection(t *testing.T) {
	svc := newTestService()
	_, err := svc.CreateUserScenario(models.UserScenarioInput{
		Title:        "Too Small",
		Introduction: "intro",
		Conclusion:   "outro",
		Sections: []models.UserSectionInput{
			{Title: "Only", Content: "one section"},
		},
	}, "u1")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))

	// Nothing was committed.
	all, err := svc.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestVersionMonotonicity(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)
	id := scenario.Metadata.ID
	before := scenario.Metadata.Version

	_, err := svc.Update(id, models.ScenarioPatch{Title: strPtr("Kubernetes Basics")}, "u1", "")
	require.NoError(t, err)
	_, err = svc.AddSection(id, models.AddSectionInput{Title: "Extra", Content: "more detail here"}, "u1")
	require.NoError(t, err)
	updated, err := svc.Approve(id, "u2", "")
	require.NoError(t, err)

	assert.Equal(t, before+3, updated.Metadata.Version)
	assert.Len(t, updated.RevisionHistory, 4)
	for i, rev := range updated.RevisionHistory {
		assert.Equal(t, i+1, rev.Version)
	}
}

func TestUpdateScenario_RecordsChangesAndPromotesType(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)
	id := scenario.Metadata.ID

	updated, err := svc.Update(id, models.ScenarioPatch{
		Title: strPtr("New Title"),
		Sections: []models.SectionPatch{
			{Index: 0, Content: strPtr("rewritten narration"), Duration: intPtr(90)},
		},
	}, "editor", "tightened up the opening")
	require.NoError(t, err)

	assert.Equal(t, "New Title", updated.Metadata.Title)
	assert.Equal(t, "rewritten narration", updated.Sections[0].Content)
	assert.Equal(t, 90, updated.Sections[0].Duration)
	assert.Equal(t, 90+60+60, updated.Metadata.EstimatedDuration)
	assert.Equal(t, "editor", updated.Metadata.LastModifiedBy)
	assert.Equal(t, "editor", updated.Sections[0].ModifiedBy)

	// A manual edit promotes auto_generated to hybrid, permanently.
	assert.Equal(t, models.TypeHybrid, updated.Metadata.Type)

	rev := updated.RevisionHistory[len(updated.RevisionHistory)-1]
	assert.Equal(t, "tightened up the opening", rev.Comment)
	paths := make([]string, 0, len(rev.Changes))
	for _, change := range rev.Changes {
		paths = append(paths, change.Path)
	}
	assert.Contains(t, paths, "/metadata/title")
	assert.Contains(t, paths, "/sections/0/content")
	assert.Contains(t, paths, "/sections/0/duration")
	assert.Contains(t, paths, "/metadata/type")

	// Updating a hybrid scenario leaves it hybrid.
	again, err := svc.Update(id, models.ScenarioPatch{Title: strPtr("Another Title")}, "editor", "")
	require.NoError(t, err)
	assert.Equal(t, models.TypeHybrid, again.Metadata.Type)
}

func TestUpdateScenario_ValidationFailureLeavesAggregateUntouched(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)
	id := scenario.Metadata.ID

	longTitle := make([]byte, 0, 201)
	for i := 0; i < 201; i++ {
		longTitle = append(longTitle, 'a')
	}

	_, err := svc.Update(id, models.ScenarioPatch{Title: strPtr(string(longTitle))}, "u1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))

	// Mutation ran on a working copy only; the stored aggregate kept its
	// title and version.
	stored, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, scenario.Metadata.Title, stored.Metadata.Title)
	assert.Equal(t, scenario.Metadata.Version, stored.Metadata.Version)
	assert.Len(t, stored.RevisionHistory, 1)
}

func TestAddThenRemoveSectionRestoresOriginalOrder(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)
	id := scenario.Metadata.ID

	originalIDs := make([]string, len(scenario.Sections))
	for i, section := range scenario.Sections {
		originalIDs[i] = section.ID
	}

	withExtra, err := svc.AddSection(id, models.AddSectionInput{
		Title:    "Prerequisites",
		Content:  "what you need before starting",
		Position: 1,
	}, "u1")
	require.NoError(t, err)
	require.Len(t, withExtra.Sections, 4)
	assert.Equal(t, "Prerequisites", withExtra.Sections[0].Title)
	addedID := withExtra.Sections[0].ID

	for i, section := range withExtra.Sections {
		assert.Equal(t, i+1, section.Order)
	}
	assert.Equal(t, withExtra.TotalDuration(), withExtra.Metadata.EstimatedDuration)

	restored, err := svc.RemoveSection(id, addedID, "u1")
	require.NoError(t, err)
	require.Len(t, restored.Sections, 3)
	for i, section := range restored.Sections {
		assert.Equal(t, originalIDs[i], section.ID)
		assert.Equal(t, i+1, section.Order)
	}
	assert.Equal(t, 180, restored.Metadata.EstimatedDuration)
}

func TestAddSection_EstimatesOmittedDuration(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)

	updated, err := svc.AddSection(scenario.Metadata.ID, models.AddSectionInput{
		Title:   "Short",
		Content: "just a few words",
	}, "u1")
	require.NoError(t, err)

	added := updated.Sections[len(updated.Sections)-1]
	// 4 words at 150wpm is far below the 30s floor.
	assert.Equal(t, 30, added.Duration)
}

func TestRemoveSection_NotFound(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)

	_, err := svc.RemoveSection(scenario.Metadata.ID, "missing-section", "u1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestReorderSections(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)
	id := scenario.Metadata.ID

	reversed := []string{scenario.Sections[2].ID, scenario.Sections[1].ID, scenario.Sections[0].ID}
	updated, err := svc.ReorderSections(id, reversed, "u1")
	require.NoError(t, err)

	require.Len(t, updated.Sections, 3)
	for i, section := range updated.Sections {
		assert.Equal(t, reversed[i], section.ID)
		assert.Equal(t, i+1, section.Order)
	}
	assert.Equal(t, 180, updated.Metadata.EstimatedDuration)
}

func TestReorderSections_UnknownIDsSilentlyDropped(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)

	order := []string{
		scenario.Sections[1].ID,
		"bogus-id",
		scenario.Sections[0].ID,
		scenario.Sections[2].ID,
	}
	updated, err := svc.ReorderSections(scenario.Metadata.ID, order, "u1")
	require.NoError(t, err)
	require.Len(t, updated.Sections, 3)
	assert.Equal(t, scenario.Sections[1].ID, updated.Sections[0].ID)
}

func TestCloneScenario(t *testing.T) {
	svc := newTestService()
	source := generateTestScenario(t, svc)

	clone, err := svc.Clone(source.Metadata.ID, "u2", nil)
	require.NoError(t, err)

	assert.NotEqual(t, source.Metadata.ID, clone.Metadata.ID)
	assert.NotEqual(t, source.Metadata.ProjectID, clone.Metadata.ProjectID)
	assert.Equal(t, source.Metadata.Title+" (copy)", clone.Metadata.Title)
	assert.Equal(t, 1, clone.Metadata.Version)
	assert.Equal(t, "u2", clone.Metadata.CreatedBy)

	// A clone is always user_provided, even when the source is auto-generated.
	assert.Equal(t, models.TypeUserProvided, clone.Metadata.Type)

	require.Len(t, clone.RevisionHistory, 1)
	assert.Contains(t, clone.RevisionHistory[0].Comment, source.Metadata.ID)

	require.Len(t, clone.Sections, len(source.Sections))
	for i := range clone.Sections {
		assert.NotEqual(t, source.Sections[i].ID, clone.Sections[i].ID)
		assert.Equal(t, source.Sections[i].Title, clone.Sections[i].Title)
	}

	// Mutating the clone never affects the source.
	_, err = svc.Update(clone.Metadata.ID, models.ScenarioPatch{Title: strPtr("Clone Title")}, "u2", "")
	require.NoError(t, err)

	reloaded, err := svc.Get(source.Metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, source.Metadata.Title, reloaded.Metadata.Title)
	assert.Equal(t, source.Metadata.Version, reloaded.Metadata.Version)
}

func TestCloneScenario_TitleOverride(t *testing.T) {
	svc := newTestService()
	source := generateTestScenario(t, svc)

	clone, err := svc.Clone(source.Metadata.ID, "u2", &models.MetadataOverrides{
		Title: strPtr("Fresh Start"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Fresh Start", clone.Metadata.Title)
	assert.Equal(t, models.TypeUserProvided, clone.Metadata.Type)
}

func TestApproveScenario(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)

	approved, err := svc.Approve(scenario.Metadata.ID, "reviewer", "looks good")
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, approved.Metadata.Status)
	rev := approved.RevisionHistory[len(approved.RevisionHistory)-1]
	require.NotEmpty(t, rev.Changes)
	last := rev.Changes[len(rev.Changes)-1]
	assert.Equal(t, string(models.StatusApproved), last.NewValue)

	// Approve has no guard: re-approving is allowed and bumps the version.
	again, err := svc.Approve(scenario.Metadata.ID, "reviewer", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, again.Metadata.Status)
	assert.Equal(t, approved.Metadata.Version+1, again.Metadata.Version)
}

func TestDeleteScenario(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)

	require.NoError(t, svc.Delete(scenario.Metadata.ID))

	_, err := svc.Get(scenario.Metadata.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))

	err = svc.Delete(scenario.Metadata.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestLifecycleEventsPublished(t *testing.T) {
	svc := newTestService()

	var names []models.EventName
	unsubscribe := svc.Notifier().Subscribe(func(event models.Event) {
		names = append(names, event.Name)
	})
	defer unsubscribe()

	scenario := generateTestScenario(t, svc)
	id := scenario.Metadata.ID

	_, err := svc.Update(id, models.ScenarioPatch{Title: strPtr("T")}, "u1", "")
	require.NoError(t, err)
	updated, err := svc.AddSection(id, models.AddSectionInput{Title: "S", Content: "c"}, "u1")
	require.NoError(t, err)
	_, err = svc.RemoveSection(id, updated.Sections[len(updated.Sections)-1].ID, "u1")
	require.NoError(t, err)
	_, err = svc.Clone(id, "u1", nil)
	require.NoError(t, err)
	_, err = svc.Approve(id, "u1", "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(id))

	assert.Equal(t, []models.EventName{
		models.EventCreated,
		models.EventUpdated,
		models.EventSectionAdded,
		models.EventSectionRemoved,
		models.EventCloned,
		models.EventApproved,
		models.EventDeleted,
	}, names)
}

func TestConcurrentMutationsSerialize(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)
	id := scenario.Metadata.ID
	before := scenario.Metadata.Version

	const writers = 12
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.Update(id, models.ScenarioPatch{
					Title: strPtr(fmt.Sprintf("Concurrent Title %d", i)),
				}, "u1", "")
			} else {
				_, err = svc.AddSection(id, models.AddSectionInput{
					Title:   fmt.Sprintf("Concurrent Section %d", i),
					Content: "narration",
				}, "u1")
			}
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Mutators on the same id serialize: no version is skipped or reused.
	final, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, before+writers, final.Metadata.Version)
	require.Len(t, final.RevisionHistory, writers+1)
	for i, rev := range final.RevisionHistory {
		assert.Equal(t, i+1, rev.Version)
	}
	for i, section := range final.Sections {
		assert.Equal(t, i+1, section.Order)
	}
	assert.Len(t, final.Sections, 3+writers/2)
	assert.Equal(t, final.TotalDuration(), final.Metadata.EstimatedDuration)
}

func TestListenerMayMutateSameScenario(t *testing.T) {
	svc := newTestService()
	scenario := generateTestScenario(t, svc)
	id := scenario.Metadata.ID

	// A subscriber reacting to a section add by mutating the same scenario
	// must not deadlock on the per-id lock.
	unsubscribe := svc.Notifier().Subscribe(func(event models.Event) {
		if event.Name == models.EventSectionAdded {
			_, err := svc.Approve(id, "auto-approver", "approved on section add")
			assert.NoError(t, err)
		}
	})
	defer unsubscribe()

	_, err := svc.AddSection(id, models.AddSectionInput{Title: "S", Content: "c"}, "u1")
	require.NoError(t, err)

	final, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, final.Metadata.Status)
	assert.Equal(t, 3, final.Metadata.Version)
}

func TestPanickingListenerDoesNotBreakMutation(t *testing.T) {
	svc := newTestService()
	unsubscribe := svc.Notifier().Subscribe(func(models.Event) {
		panic("listener exploded")
	})
	defer unsubscribe()

	scenario := generateTestScenario(t, svc)
	assert.NotNil(t, scenario)
}
