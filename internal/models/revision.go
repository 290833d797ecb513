// internal/models/revision.go
package models

import (
	"time"
)

// ChangeType classifies a single field-level delta.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeModify ChangeType = "modify"
	ChangeDelete ChangeType = "delete"
)

// Change is a single field-level delta with a JSON-Pointer-like path,
// e.g. "/metadata/title", "/sections/2/content", "/sections/1".
// OldValue/NewValue carry enough state to undo the change during version
// reconstruction.
type Change struct {
	Type     ChangeType  `json:"type"`
	Path     string      `json:"path"`
	OldValue interface{} `json:"old_value,omitempty"`
	NewValue interface{} `json:"new_value,omitempty"`
}

// Revision is an immutable record of one committed mutation. Version matches
// metadata.Version after the mutation was applied.
type Revision struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Changes   []Change  `json:"changes"`
	Comment   string    `json:"comment,omitempty"`
}

// ComparisonResult is the outcome of comparing two versions of a scenario.
type ComparisonResult struct {
	ScenarioID  string `json:"scenario_id"`
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`
	Identical   bool   `json:"identical"`
	Diff        string `json:"diff"`
}
