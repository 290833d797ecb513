// internal/models/event.go
package models

import (
	"time"
)

// EventName identifies a lifecycle notification published by the engine.
type EventName string

const (
	EventCreated           EventName = "created"
	EventUpdated           EventName = "updated"
	EventSectionAdded      EventName = "section:added"
	EventSectionRemoved    EventName = "section:removed"
	EventSectionsReordered EventName = "sections:reordered"
	EventCloned            EventName = "cloned"
	EventApproved          EventName = "approved"
	EventDeleted           EventName = "deleted"
	EventImported          EventName = "imported"
)

// Event is a lifecycle notification. Payload shape depends on the event name:
// created/imported carry the scenario, updated carries the scenario plus the
// recorded changes, section events carry the affected section, cloned carries
// the source and clone ids.
type Event struct {
	Name       EventName   `json:"name"`
	ScenarioID string      `json:"scenario_id"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// UpdatedPayload accompanies EventUpdated.
type UpdatedPayload struct {
	Scenario *Scenario `json:"scenario"`
	Changes  []Change  `json:"changes"`
}

// SectionPayload accompanies EventSectionAdded / EventSectionRemoved.
type SectionPayload struct {
	ScenarioID string  `json:"scenario_id"`
	Section    Section `json:"section"`
}

// ReorderPayload accompanies EventSectionsReordered.
type ReorderPayload struct {
	ScenarioID string   `json:"scenario_id"`
	NewOrder   []string `json:"new_order"`
}

// ClonePayload accompanies EventCloned.
type ClonePayload struct {
	SourceID string `json:"source_id"`
	CloneID  string `json:"clone_id"`
}

// ApprovedPayload accompanies EventApproved.
type ApprovedPayload struct {
	ScenarioID string `json:"scenario_id"`
	ApprovedBy string `json:"approved_by"`
}
