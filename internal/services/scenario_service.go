// internal/services/scenario_service.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/Corphon/ScenarioForgeMCP/internal/errors"
	"github.com/Corphon/ScenarioForgeMCP/internal/models"
	"github.com/Corphon/ScenarioForgeMCP/internal/storage"
)

// ScenarioService owns the scenario aggregates. Every mutation goes
// read-modify-write through the injected store: load a copy, mutate the copy,
// validate it, and only then swap it in. A failed validation therefore never
// leaves a stored aggregate partially modified.
//
// Mutations on the same scenario id serialize on a per-id lock, so two
// concurrent updates cannot interleave fields or skip version numbers.
type ScenarioService struct {
	store     storage.ScenarioStore
	generator *GeneratorService
	validator *Validator
	notifier  *Notifier
	logger    *zap.Logger

	// per-aggregate mutation locks, scenarioID -> *sync.Mutex
	idLocks sync.Map
}

// NewScenarioService wires the document store with its collaborators.
func NewScenarioService(store storage.ScenarioStore, generator *GeneratorService, validator *Validator, notifier *Notifier, logger *zap.Logger) *ScenarioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScenarioService{
		store:     store,
		generator: generator,
		validator: validator,
		notifier:  notifier,
		logger:    logger,
	}
}

// Notifier exposes the event notifier so collaborators (persistence, UI push)
// can subscribe to lifecycle events.
func (s *ScenarioService) Notifier() *Notifier {
	return s.notifier
}

func (s *ScenarioService) lockFor(id string) *sync.Mutex {
	value, _ := s.idLocks.LoadOrStore(id, &sync.Mutex{})
	return value.(*sync.Mutex)
}

// load fetches a working copy, translating the store sentinel into the
// engine's not-found error.
func (s *ScenarioService) load(id string) (*models.Scenario, error) {
	scenario, err := s.store.Get(id)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("scenario not found: %s", id), nil)
		}
		return nil, apperrors.WrapError(err, "failed to load scenario", apperrors.ErrorTypeError)
	}
	return scenario, nil
}

// commitNew validates and stores a freshly built aggregate with its initial
// revision attached.
func (s *ScenarioService) commitNew(scenario *models.Scenario, author, comment string) error {
	scenario.Resequence()
	scenario.RevisionHistory = []models.Revision{
		newRevision(1, author, comment, []models.Change{
			{Type: models.ChangeAdd, Path: pathRoot, NewValue: scenario.Metadata.Title},
		}),
	}

	if err := s.validator.Validate(scenario); err != nil {
		return err
	}
	if err := s.store.Put(scenario); err != nil {
		return apperrors.WrapError(err, "failed to store scenario", apperrors.ErrorTypeError)
	}
	return nil
}

// commit applies the bookkeeping shared by every mutation of an existing
// aggregate: version bump, timestamps, revision append, validation, swap.
func (s *ScenarioService) commit(working *models.Scenario, author, comment string, changes []models.Change) error {
	working.Resequence()
	working.Metadata.Version++
	working.Metadata.UpdatedAt = time.Now()
	working.Metadata.LastModifiedBy = author
	working.RevisionHistory = append(working.RevisionHistory,
		newRevision(working.Metadata.Version, author, comment, changes))

	if err := s.validator.Validate(working); err != nil {
		return err
	}
	if err := s.store.Put(working); err != nil {
		return apperrors.WrapError(err, "failed to store scenario", apperrors.ErrorTypeError)
	}
	return nil
}

// Generate creates a scenario via the content generator and commits it.
func (s *ScenarioService) Generate(options models.GenerateOptions, authorID string) (*models.Scenario, error) {
	scenario, err := s.generator.Generate(options, authorID)
	if err != nil {
		return nil, err
	}

	if err := s.commitNew(scenario, authorID, "initial generation"); err != nil {
		return nil, err
	}

	s.notifier.Publish(models.EventCreated, scenario.Metadata.ID, scenario.DeepCopy())
	return scenario, nil
}

// CreateUserScenario creates a scenario from caller-authored content and
// commits it.
func (s *ScenarioService) CreateUserScenario(input models.UserScenarioInput, authorID string) (*models.Scenario, error) {
	scenario := s.generator.BuildUserScenario(input, authorID)

	if err := s.commitNew(scenario, authorID, "initial version"); err != nil {
		return nil, err
	}

	s.notifier.Publish(models.EventCreated, scenario.Metadata.ID, scenario.DeepCopy())
	return scenario, nil
}

// Get returns a copy of the scenario.
func (s *ScenarioService) Get(id string) (*models.Scenario, error) {
	return s.load(id)
}

// GetAll returns copies of every stored scenario.
func (s *ScenarioService) GetAll() ([]*models.Scenario, error) {
	scenarios, err := s.store.List()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list scenarios", apperrors.ErrorTypeError)
	}
	return scenarios, nil
}

// Delete removes the scenario from the store. Removal is irreversible.
func (s *ScenarioService) Delete(id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	err := s.store.Delete(id)
	lock.Unlock()

	if err != nil {
		if err == storage.ErrNotFound {
			return apperrors.NewNotFoundError(fmt.Sprintf("scenario not found: %s", id), nil)
		}
		return apperrors.WrapError(err, "failed to delete scenario", apperrors.ErrorTypeError)
	}

	s.notifier.Publish(models.EventDeleted, id, nil)
	return nil
}

// Update applies a typed patch. Every changed field is recorded as a
// modify change with its JSON-Pointer-like path. Section patches are applied
// positionally by index, in section order; out-of-range indexes are skipped.
// The first recorded change on an auto-generated scenario promotes its type
// to hybrid, permanently.
func (s *ScenarioService) Update(id string, patch models.ScenarioPatch, authorID, comment string) (*models.Scenario, error) {
	lock := s.lockFor(id)
	lock.Lock()

	working, err := s.load(id)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	now := time.Now()
	var changes []models.Change

	if patch.Title != nil && *patch.Title != working.Metadata.Title {
		changes = append(changes, models.Change{
			Type: models.ChangeModify, Path: pathTitle,
			OldValue: working.Metadata.Title, NewValue: *patch.Title,
		})
		working.Metadata.Title = *patch.Title
	}

	if patch.Introduction != nil && *patch.Introduction != working.Introduction {
		changes = append(changes, models.Change{
			Type: models.ChangeModify, Path: pathIntroduction,
			OldValue: working.Introduction, NewValue: *patch.Introduction,
		})
		working.Introduction = *patch.Introduction
	}

	for _, sp := range patch.Sections {
		if sp.Index < 0 || sp.Index >= len(working.Sections) {
			continue
		}
		section := &working.Sections[sp.Index]
		touched := false

		if sp.Title != nil && *sp.Title != section.Title {
			changes = append(changes, models.Change{
				Type: models.ChangeModify, Path: sectionFieldPath(sp.Index, "title"),
				OldValue: section.Title, NewValue: *sp.Title,
			})
			section.Title = *sp.Title
			touched = true
		}
		if sp.Content != nil && *sp.Content != section.Content {
			changes = append(changes, models.Change{
				Type: models.ChangeModify, Path: sectionFieldPath(sp.Index, "content"),
				OldValue: section.Content, NewValue: *sp.Content,
			})
			section.Content = *sp.Content
			touched = true
		}
		if sp.Duration != nil && *sp.Duration != section.Duration {
			changes = append(changes, models.Change{
				Type: models.ChangeModify, Path: sectionFieldPath(sp.Index, "duration"),
				OldValue: section.Duration, NewValue: *sp.Duration,
			})
			section.Duration = *sp.Duration
			touched = true
		}
		if sp.VisualNotes != nil && *sp.VisualNotes != section.VisualNotes {
			changes = append(changes, models.Change{
				Type: models.ChangeModify, Path: sectionFieldPath(sp.Index, "visual_notes"),
				OldValue: section.VisualNotes, NewValue: *sp.VisualNotes,
			})
			section.VisualNotes = *sp.VisualNotes
			touched = true
		}

		if touched {
			section.LastModified = &now
			section.ModifiedBy = authorID
		}
	}

	if patch.Conclusion != nil && *patch.Conclusion != working.Conclusion {
		changes = append(changes, models.Change{
			Type: models.ChangeModify, Path: pathConclusion,
			OldValue: working.Conclusion, NewValue: *patch.Conclusion,
		})
		working.Conclusion = *patch.Conclusion
	}

	if len(changes) > 0 && working.Metadata.Type == models.TypeAutoGenerated {
		changes = append(changes, models.Change{
			Type: models.ChangeModify, Path: pathType,
			OldValue: string(models.TypeAutoGenerated), NewValue: string(models.TypeHybrid),
		})
		working.Metadata.Type = models.TypeHybrid
	}

	if err := s.commit(working, authorID, comment, changes); err != nil {
		lock.Unlock()
		return nil, err
	}
	// Release before publishing so a listener may mutate this scenario.
	lock.Unlock()

	s.notifier.Publish(models.EventUpdated, id, &models.UpdatedPayload{
		Scenario: working.DeepCopy(),
		Changes:  changes,
	})
	return working, nil
}

// AddSection inserts a section. Position is 1-based; when it is zero or out
// of the current bounds the section is appended. An omitted duration is
// estimated from reading speed.
func (s *ScenarioService) AddSection(id string, input models.AddSectionInput, authorID string) (*models.Scenario, error) {
	lock := s.lockFor(id)
	lock.Lock()

	working, err := s.load(id)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	duration := input.Duration
	if duration <= 0 {
		duration = EstimateDuration(input.Content)
	}

	section := models.Section{
		ID:           uuid.NewString(),
		Title:        input.Title,
		Content:      input.Content,
		Duration:     duration,
		IsEditable:   true,
		VisualNotes:  input.VisualNotes,
		CodeExamples: input.CodeExamples,
	}

	index := len(working.Sections)
	if input.Position >= 1 && input.Position <= len(working.Sections) {
		index = input.Position - 1
	}

	working.Sections = append(working.Sections[:index],
		append([]models.Section{section}, working.Sections[index:]...)...)

	changes := []models.Change{
		{Type: models.ChangeAdd, Path: sectionPath(index), NewValue: section},
	}

	if err := s.commit(working, authorID, fmt.Sprintf("added section %q", input.Title), changes); err != nil {
		lock.Unlock()
		return nil, err
	}
	lock.Unlock()

	committed := *working.SectionByID(section.ID)
	s.notifier.Publish(models.EventSectionAdded, id, &models.SectionPayload{
		ScenarioID: id,
		Section:    committed,
	})
	return working, nil
}

// RemoveSection deletes the section with the given id and closes the gap in
// the remaining order values.
func (s *ScenarioService) RemoveSection(id, sectionID, authorID string) (*models.Scenario, error) {
	lock := s.lockFor(id)
	lock.Lock()

	working, err := s.load(id)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	index := -1
	for i := range working.Sections {
		if working.Sections[i].ID == sectionID {
			index = i
			break
		}
	}
	if index < 0 {
		lock.Unlock()
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("section not found: %s", sectionID), nil)
	}

	removed := working.Sections[index]
	working.Sections = append(working.Sections[:index], working.Sections[index+1:]...)

	changes := []models.Change{
		{Type: models.ChangeDelete, Path: sectionPath(index), OldValue: removed},
	}

	if err := s.commit(working, authorID, fmt.Sprintf("removed section %q", removed.Title), changes); err != nil {
		lock.Unlock()
		return nil, err
	}
	lock.Unlock()

	s.notifier.Publish(models.EventSectionRemoved, id, &models.SectionPayload{
		ScenarioID: id,
		Section:    removed,
	})
	return working, nil
}

// ReorderSections replaces the section array by resolving each id in
// newOrder. Ids that resolve to no section are silently dropped, and sections
// omitted from newOrder are removed; callers are expected to pass a complete
// permutation.
func (s *ScenarioService) ReorderSections(id string, newOrder []string, authorID string) (*models.Scenario, error) {
	lock := s.lockFor(id)
	lock.Lock()

	working, err := s.load(id)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	oldOrder := make([]string, len(working.Sections))
	for i, section := range working.Sections {
		oldOrder[i] = section.ID
	}

	kept := make(map[string]bool, len(newOrder))
	reordered := make([]models.Section, 0, len(newOrder))
	for _, sectionID := range newOrder {
		if section := working.SectionByID(sectionID); section != nil && !kept[sectionID] {
			kept[sectionID] = true
			reordered = append(reordered, *section)
		}
	}

	changes := []models.Change{
		{Type: models.ChangeModify, Path: pathSectionsOrder, OldValue: oldOrder, NewValue: newOrder},
	}
	// Record dropped sections so the reorder stays invertible during replay.
	for i, section := range working.Sections {
		if !kept[section.ID] {
			changes = append(changes, models.Change{
				Type: models.ChangeDelete, Path: sectionPath(i), OldValue: section,
			})
		}
	}

	working.Sections = reordered

	if err := s.commit(working, authorID, "reordered sections", changes); err != nil {
		lock.Unlock()
		return nil, err
	}
	lock.Unlock()

	s.notifier.Publish(models.EventSectionsReordered, id, &models.ReorderPayload{
		ScenarioID: id,
		NewOrder:   newOrder,
	})
	return working, nil
}

// Clone deep-copies the source into a fully independent aggregate: new
// scenario, project and section ids, version reset to 1, history reset to a
// single synthetic revision. The clone is always user_provided regardless of
// the source type; overrides cannot change that.
func (s *ScenarioService) Clone(id, authorID string, overrides *models.MetadataOverrides) (*models.Scenario, error) {
	source, err := s.load(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	clone := source.DeepCopy()
	clone.Metadata.ID = uuid.NewString()
	clone.Metadata.ProjectID = uuid.NewString()
	clone.Metadata.Title = source.Metadata.Title + " (copy)"
	clone.Metadata.Type = models.TypeUserProvided
	clone.Metadata.Version = 1
	clone.Metadata.CreatedAt = now
	clone.Metadata.UpdatedAt = now
	clone.Metadata.CreatedBy = authorID
	clone.Metadata.LastModifiedBy = ""
	for i := range clone.Sections {
		clone.Sections[i].ID = uuid.NewString()
	}

	if overrides != nil {
		if overrides.Title != nil {
			clone.Metadata.Title = *overrides.Title
		}
		if overrides.ProjectID != nil {
			clone.Metadata.ProjectID = *overrides.ProjectID
		}
		if overrides.Language != nil {
			clone.Metadata.Language = *overrides.Language
		}
		if overrides.TargetAudience != nil {
			clone.Metadata.TargetAudience = *overrides.TargetAudience
		}
		if len(overrides.Tags) > 0 {
			clone.Metadata.Tags = overrides.Tags
		}
	}

	clone.RevisionHistory = []models.Revision{
		newRevision(1, authorID, fmt.Sprintf("cloned from %s", id), []models.Change{
			{Type: models.ChangeAdd, Path: pathRoot, NewValue: id},
		}),
	}

	if err := s.validator.Validate(clone); err != nil {
		return nil, err
	}
	if err := s.store.Put(clone); err != nil {
		return nil, apperrors.WrapError(err, "failed to store clone", apperrors.ErrorTypeError)
	}

	s.notifier.Publish(models.EventCloned, clone.Metadata.ID, &models.ClonePayload{
		SourceID: id,
		CloneID:  clone.Metadata.ID,
	})
	return clone, nil
}

// Approve sets the status to approved. The transition is deliberately
// unguarded: re-approving, or approving a completed scenario, is allowed.
// All other status transitions belong to external collaborators.
func (s *ScenarioService) Approve(id, authorID, comment string) (*models.Scenario, error) {
	lock := s.lockFor(id)
	lock.Lock()

	working, err := s.load(id)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	if comment == "" {
		comment = "approved"
	}

	changes := []models.Change{
		{
			Type: models.ChangeModify, Path: pathStatus,
			OldValue: string(working.Metadata.Status), NewValue: string(models.StatusApproved),
		},
	}
	working.Metadata.Status = models.StatusApproved

	if err := s.commit(working, authorID, comment, changes); err != nil {
		lock.Unlock()
		return nil, err
	}
	lock.Unlock()

	s.notifier.Publish(models.EventApproved, id, &models.ApprovedPayload{
		ScenarioID: id,
		ApprovedBy: authorID,
	})
	return working, nil
}

// CompareVersions reconstructs both requested versions by replaying stored
// changes and returns their line diff.
func (s *ScenarioService) CompareVersions(id string, v1, v2 int) (*models.ComparisonResult, error) {
	scenario, err := s.load(id)
	if err != nil {
		return nil, err
	}

	from, err := reconstructVersion(scenario, v1)
	if err != nil {
		return nil, err
	}
	to, err := reconstructVersion(scenario, v2)
	if err != nil {
		return nil, err
	}

	diff, identical := diffVersionTexts(renderVersionText(from), renderVersionText(to))

	return &models.ComparisonResult{
		ScenarioID:  id,
		FromVersion: v1,
		ToVersion:   v2,
		Identical:   identical,
		Diff:        diff,
	}, nil
}

// CreateImported commits a deserialized scenario as a fresh aggregate: new
// ids, version 1, history reset to a single import revision. Content fields
// are taken as-is so a JSON round-trip preserves sections, introduction and
// conclusion.
func (s *ScenarioService) CreateImported(scenario *models.Scenario, authorID string) (*models.Scenario, error) {
	now := time.Now()
	imported := scenario.DeepCopy()
	imported.Metadata.ID = uuid.NewString()
	imported.Metadata.Version = 1
	imported.Metadata.CreatedAt = now
	imported.Metadata.UpdatedAt = now
	imported.Metadata.CreatedBy = authorID
	imported.Metadata.LastModifiedBy = ""
	if imported.Metadata.Type == "" {
		imported.Metadata.Type = models.TypeUserProvided
	}
	if imported.Metadata.Status == "" {
		imported.Metadata.Status = models.StatusDraft
	}
	if imported.Metadata.Language == "" {
		imported.Metadata.Language = "en"
	}
	for i := range imported.Sections {
		imported.Sections[i].ID = uuid.NewString()
	}

	imported.Resequence()
	imported.RevisionHistory = []models.Revision{
		newRevision(1, authorID, "imported", []models.Change{
			{Type: models.ChangeAdd, Path: pathRoot, NewValue: imported.Metadata.Title},
		}),
	}

	if err := s.validator.Validate(imported); err != nil {
		return nil, err
	}
	if err := s.store.Put(imported); err != nil {
		return nil, apperrors.WrapError(err, "failed to store imported scenario", apperrors.ErrorTypeError)
	}

	s.notifier.Publish(models.EventImported, imported.Metadata.ID, imported.DeepCopy())
	return imported, nil
}
