// internal/services/revision_tracker.go
package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	apperrors "github.com/Corphon/ScenarioForgeMCP/internal/errors"
	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

// Change paths addressing whole-scenario fields.
const (
	pathRoot          = "/"
	pathTitle         = "/metadata/title"
	pathType          = "/metadata/type"
	pathStatus        = "/metadata/status"
	pathIntroduction  = "/introduction"
	pathConclusion    = "/conclusion"
	pathSectionsOrder = "/sections/order"
)

func sectionPath(index int) string {
	return fmt.Sprintf("/sections/%d", index)
}

func sectionFieldPath(index int, field string) string {
	return fmt.Sprintf("/sections/%d/%s", index, field)
}

// newRevision builds the revision record appended on every committed
// mutation. Version must be the metadata version after the mutation.
func newRevision(version int, author, comment string, changes []models.Change) models.Revision {
	return models.Revision{
		ID:        uuid.NewString(),
		Version:   version,
		Timestamp: time.Now(),
		Author:    author,
		Changes:   changes,
		Comment:   comment,
	}
}

// reconstructVersion rebuilds the aggregate as it looked at the given
// version by undoing revisions backwards from the current state. Every
// recorded Change carries enough old state to be inverted, so this is a true
// replay rather than a stub that returns the current state.
func reconstructVersion(scenario *models.Scenario, version int) (*models.Scenario, error) {
	current := scenario.Metadata.Version
	if version < 1 || version > current {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("version %d not found for scenario %s (current version %d)",
				version, scenario.Metadata.ID, current), nil)
	}

	working := scenario.DeepCopy()
	for i := len(working.RevisionHistory) - 1; i >= 0; i-- {
		rev := working.RevisionHistory[i]
		if rev.Version <= version {
			break
		}
		// Undo the revision's changes in reverse order.
		for j := len(rev.Changes) - 1; j >= 0; j-- {
			if err := undoChange(working, rev.Changes[j]); err != nil {
				return nil, apperrors.NewProcessingError(
					fmt.Sprintf("failed to replay change %s of revision %d", rev.Changes[j].Path, rev.Version), err)
			}
		}
		working.Resequence()
		working.Metadata.Version = rev.Version - 1
	}

	return working, nil
}

// undoChange inverts a single recorded change on the working aggregate.
func undoChange(scenario *models.Scenario, change models.Change) error {
	switch change.Path {
	case pathRoot:
		// Initial creation; version 1 is the floor and never undone.
		return nil
	case pathTitle:
		scenario.Metadata.Title = asString(change.OldValue)
		return nil
	case pathType:
		scenario.Metadata.Type = models.ScenarioType(asString(change.OldValue))
		return nil
	case pathStatus:
		scenario.Metadata.Status = models.ScenarioStatus(asString(change.OldValue))
		return nil
	case pathIntroduction:
		scenario.Introduction = asString(change.OldValue)
		return nil
	case pathConclusion:
		scenario.Conclusion = asString(change.OldValue)
		return nil
	case pathSectionsOrder:
		return undoReorder(scenario, change)
	}

	parts := strings.Split(strings.TrimPrefix(change.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "sections" {
		return fmt.Errorf("unrecognized change path: %s", change.Path)
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("invalid section index in path %s", change.Path)
	}

	if len(parts) == 2 {
		return undoSectionChange(scenario, change, index)
	}
	return undoSectionFieldChange(scenario, change, index, parts[2])
}

// undoSectionChange inverts a structural add or delete at a section index.
func undoSectionChange(scenario *models.Scenario, change models.Change, index int) error {
	switch change.Type {
	case models.ChangeAdd:
		if index < 0 || index >= len(scenario.Sections) {
			return fmt.Errorf("section index %d out of range", index)
		}
		scenario.Sections = append(scenario.Sections[:index], scenario.Sections[index+1:]...)
		return nil
	case models.ChangeDelete:
		section, err := asSection(change.OldValue)
		if err != nil {
			return err
		}
		if index < 0 || index > len(scenario.Sections) {
			index = len(scenario.Sections)
		}
		scenario.Sections = append(scenario.Sections[:index],
			append([]models.Section{section}, scenario.Sections[index:]...)...)
		return nil
	default:
		return fmt.Errorf("unexpected change type %s for path %s", change.Type, change.Path)
	}
}

func undoSectionFieldChange(scenario *models.Scenario, change models.Change, index int, field string) error {
	if index < 0 || index >= len(scenario.Sections) {
		return fmt.Errorf("section index %d out of range", index)
	}
	section := &scenario.Sections[index]

	switch field {
	case "title":
		section.Title = asString(change.OldValue)
	case "content":
		section.Content = asString(change.OldValue)
	case "duration":
		section.Duration = asInt(change.OldValue)
	case "visual_notes":
		section.VisualNotes = asString(change.OldValue)
	default:
		return fmt.Errorf("unrecognized section field: %s", field)
	}
	return nil
}

// undoReorder restores the previous section order recorded in OldValue.
func undoReorder(scenario *models.Scenario, change models.Change) error {
	oldOrder := asStringSlice(change.OldValue)
	reordered := make([]models.Section, 0, len(oldOrder))
	for _, id := range oldOrder {
		if section := scenario.SectionByID(id); section != nil {
			reordered = append(reordered, *section)
		}
	}
	scenario.Sections = reordered
	return nil
}

// renderVersionText flattens a scenario into the line-oriented text used for
// version comparison.
func renderVersionText(scenario *models.Scenario) string {
	var b strings.Builder
	b.WriteString("title: " + scenario.Metadata.Title + "\n")
	b.WriteString("introduction: " + scenario.Introduction + "\n")
	for _, section := range scenario.Sections {
		fmt.Fprintf(&b, "section %d: %s (%ds)\n", section.Order, section.Title, section.Duration)
		for _, line := range strings.Split(section.Content, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("conclusion: " + scenario.Conclusion + "\n")
	return b.String()
}

// diffVersionTexts produces a line diff between two rendered versions.
// Removed lines are prefixed with "- ", added lines with "+ ", unchanged
// lines with "  ".
func diffVersionTexts(from, to string) (string, bool) {
	dmp := diffmatchpatch.New()
	fromChars, toChars, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(fromChars, toChars, false), lines)

	identical := true
	var b strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
			identical = false
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
			identical = false
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			b.WriteString(prefix + line + "\n")
		}
	}

	return b.String(), identical
}

// Change value coercion. Values may have round-tripped through JSON (file
// store), so numbers can arrive as float64 and sections as maps.

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	default:
		return 0
	}
}

func asStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		result := make([]string, 0, len(s))
		for _, item := range s {
			result = append(result, asString(item))
		}
		return result
	default:
		return nil
	}
}

func asSection(v interface{}) (models.Section, error) {
	if section, ok := v.(models.Section); ok {
		return section, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return models.Section{}, fmt.Errorf("failed to decode section value: %w", err)
	}
	var section models.Section
	if err := json.Unmarshal(raw, &section); err != nil {
		return models.Section{}, fmt.Errorf("failed to decode section value: %w", err)
	}
	return section, nil
}
