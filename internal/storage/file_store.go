// internal/storage/file_store.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

// FileStore persists each scenario as a JSON document under its own file in
// BaseDir. Writes are atomic (temp file + rename) and serialized per path.
type FileStore struct {
	BaseDir string

	// file-level locks, path -> *sync.RWMutex
	fileLocks sync.Map
}

// NewFileStore creates a file-backed scenario store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStore{BaseDir: baseDir}, nil
}

func (fs *FileStore) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func (fs *FileStore) scenarioPath(id string) string {
	return filepath.Join(fs.BaseDir, id+".json")
}

// Get loads a scenario from disk.
func (fs *FileStore) Get(id string) (*models.Scenario, error) {
	fullPath := fs.scenarioPath(id)

	lock := fs.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario models.Scenario
	if err := json.Unmarshal(content, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	return &scenario, nil
}

// Put writes the scenario atomically: serialize, write to a temp file, rename.
func (fs *FileStore) Put(scenario *models.Scenario) error {
	fullPath := fs.scenarioPath(scenario.Metadata.ID)

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	content, err := json.MarshalIndent(scenario, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize scenario: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			fmt.Printf("Warning: failed to clean up temp file %s after rename failure: %v\n", tempPath, removeErr)
		}
		return fmt.Errorf("failed to save scenario file: %w", err)
	}

	return nil
}

// Delete removes the scenario file.
func (fs *FileStore) Delete(id string) error {
	fullPath := fs.scenarioPath(id)

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return ErrNotFound
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete scenario file: %w", err)
	}

	return nil
}

// List loads every scenario in BaseDir, newest first. Unreadable files are
// skipped.
func (fs *FileStore) List() ([]*models.Scenario, error) {
	entries, err := os.ReadDir(fs.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var result []*models.Scenario
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		scenario, err := fs.Get(id)
		if err != nil {
			continue
		}
		result = append(result, scenario)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Metadata.CreatedAt.After(result[j].Metadata.CreatedAt)
	})

	return result, nil
}
