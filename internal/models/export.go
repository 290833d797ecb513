// internal/models/export.go
package models

import (
	"time"
)

// ExportFormat names a supported serialization format.
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "markdown"
	FormatPDF      ExportFormat = "pdf" // reserved, not implemented
)

// ExportResult carries a serialized scenario.
type ExportResult struct {
	ScenarioID  string       `json:"scenario_id"`
	Title       string       `json:"title"`
	Format      ExportFormat `json:"format"`
	Content     string       `json:"content"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ImportRequest is the payload for importing serialized scenario data.
type ImportRequest struct {
	Data   string       `json:"data"`
	Format ExportFormat `json:"format"`
}
