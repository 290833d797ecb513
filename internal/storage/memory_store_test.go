// internal/storage/memory_store_test.go
package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

func sampleScenario(id string, createdAt time.Time) *models.Scenario {
	return &models.Scenario{
		Metadata: models.ScenarioMetadata{
			ID:        id,
			Title:     "Title " + id,
			Type:      models.TypeUserProvided,
			Status:    models.StatusDraft,
			Version:   1,
			CreatedAt: createdAt,
		},
		Introduction: "intro",
		Conclusion:   "outro",
		Sections: []models.Section{
			{ID: id + "-s1", Title: "One", Content: "c1", Duration: 60, Order: 1},
			{ID: id + "-s2", Title: "Two", Content: "c2", Duration: 60, Order: 2},
		},
	}
}

func TestMemoryStore_PutGetDelete(t *testing.T) {
	store := NewMemoryStore()
	scenario := sampleScenario("a", time.Now())

	require.NoError(t, store.Put(scenario))

	loaded, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Title a", loaded.Metadata.Title)
	assert.Len(t, loaded.Sections, 2)

	require.NoError(t, store.Delete("a"))

	_, err = store.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete("a"), ErrNotFound)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CopyIsolation(t *testing.T) {
	store := NewMemoryStore()
	scenario := sampleScenario("a", time.Now())
	require.NoError(t, store.Put(scenario))

	// Mutating the aggregate the caller kept must not leak into the store.
	scenario.Metadata.Title = "mutated"
	scenario.Sections[0].Content = "mutated"

	loaded, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Title a", loaded.Metadata.Title)
	assert.Equal(t, "c1", loaded.Sections[0].Content)

	// Mutating a loaded copy must not leak either.
	loaded.Sections[0].Content = "also mutated"
	again, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "c1", again.Sections[0].Content)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	require.NoError(t, store.Put(sampleScenario("old", base.Add(-time.Hour))))
	require.NoError(t, store.Put(sampleScenario("new", base)))
	require.NoError(t, store.Put(sampleScenario("mid", base.Add(-time.Minute))))

	scenarios, err := store.List()
	require.NoError(t, err)
	require.Len(t, scenarios, 3)
	assert.Equal(t, "new", scenarios[0].Metadata.ID)
	assert.Equal(t, "mid", scenarios[1].Metadata.ID)
	assert.Equal(t, "old", scenarios[2].Metadata.ID)
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	store := NewMemoryStore()
	scenario := sampleScenario("a", time.Now())
	require.NoError(t, store.Put(scenario))

	scenario.Metadata.Version = 2
	scenario.Metadata.Title = "Title v2"
	require.NoError(t, store.Put(scenario))

	loaded, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Metadata.Version)
	assert.Equal(t, "Title v2", loaded.Metadata.Title)
}
