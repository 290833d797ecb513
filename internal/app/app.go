// internal/app/app.go
package app

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Corphon/ScenarioForgeMCP/internal/config"
	"github.com/Corphon/ScenarioForgeMCP/internal/di"
	"github.com/Corphon/ScenarioForgeMCP/internal/models"
	"github.com/Corphon/ScenarioForgeMCP/internal/services"
	"github.com/Corphon/ScenarioForgeMCP/internal/storage"
)

// InitServices builds the service graph in dependency order and registers
// every service in the global container. The router only ever reads from the
// container; it never constructs services itself.
func InitServices(cfg *config.Config, log *zap.Logger) error {
	container := di.GetContainer()

	var store storage.ScenarioStore
	switch cfg.Persistence {
	case "file":
		fileStore, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "scenarios"))
		if err != nil {
			return fmt.Errorf("failed to initialize file store: %w", err)
		}
		store = fileStore
	default:
		store = storage.NewMemoryStore()
	}

	limits := models.DefaultValidationLimits()
	limits.MinSections = cfg.MinSections
	limits.MaxSections = cfg.MaxSections
	limits.MinDuration = cfg.MinDuration
	limits.MaxDuration = cfg.MaxDuration

	templateService := services.NewTemplateService()
	generatorService := services.NewGeneratorService(templateService, log)
	validator := services.NewValidator(limits)
	notifier := services.NewNotifier(log)
	scenarioService := services.NewScenarioService(store, generatorService, validator, notifier, log)
	exportService := services.NewExportService(scenarioService, log)

	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("store", store)
	container.Register("template", templateService)
	container.Register("generator", generatorService)
	container.Register("notifier", notifier)
	container.Register("scenario", scenarioService)
	container.Register("export", exportService)

	log.Info("services initialized",
		zap.String("persistence", cfg.Persistence),
		zap.Int("registered", len(container.GetNames())))

	return nil
}
