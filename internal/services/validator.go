// internal/services/validator.go
package services

import (
	"fmt"
	"unicode/utf8"

	apperrors "github.com/Corphon/ScenarioForgeMCP/internal/errors"
	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

// Validator checks the structural bounds of a candidate scenario before it is
// committed. Mutations run against a working copy and only swap in after
// validation passes, so a rejected mutation never leaves the stored aggregate
// partially modified.
type Validator struct {
	limits models.ValidationLimits
}

// NewValidator creates a validator with the given bounds.
func NewValidator(limits models.ValidationLimits) *Validator {
	return &Validator{limits: limits}
}

// Limits returns the configured bounds.
func (v *Validator) Limits() models.ValidationLimits {
	return v.limits
}

// Validate returns a validation error describing the first violated rule,
// or nil when the candidate is structurally sound.
func (v *Validator) Validate(scenario *models.Scenario) error {
	titleLen := utf8.RuneCountInString(scenario.Metadata.Title)
	if titleLen < 1 || titleLen > v.limits.MaxTitleLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("title length must be between 1 and %d characters, got %d",
				v.limits.MaxTitleLength, titleLen), nil)
	}

	count := len(scenario.Sections)
	if count < v.limits.MinSections || count > v.limits.MaxSections {
		return apperrors.NewValidationError(
			fmt.Sprintf("section count must be between %d and %d, got %d",
				v.limits.MinSections, v.limits.MaxSections, count), nil)
	}

	duration := scenario.Metadata.EstimatedDuration
	if duration < v.limits.MinDuration || duration > v.limits.MaxDuration {
		return apperrors.NewValidationError(
			fmt.Sprintf("estimated duration must be between %ds and %ds, got %ds",
				v.limits.MinDuration, v.limits.MaxDuration, duration), nil)
	}

	return nil
}
