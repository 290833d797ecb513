// internal/storage/store.go
package storage

import (
	"errors"

	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

// ErrNotFound is returned by Get/Delete when no scenario has the given id.
var ErrNotFound = errors.New("scenario not found")

// ScenarioStore is the keyed persistence boundary of the engine. The engine
// only ever reads and writes whole aggregates through this interface, so the
// backing store can be swapped without touching engine logic.
//
// Implementations must return aggregates that the caller can mutate freely
// without affecting stored state (i.e. Get hands out independent copies).
type ScenarioStore interface {
	Get(id string) (*models.Scenario, error)
	Put(scenario *models.Scenario) error
	Delete(id string) error
	List() ([]*models.Scenario, error)
}
