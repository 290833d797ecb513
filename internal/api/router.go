// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Corphon/ScenarioForgeMCP/internal/config"
	"github.com/Corphon/ScenarioForgeMCP/internal/di"
	"github.com/Corphon/ScenarioForgeMCP/internal/services"
)

// SetupRouter configures the HTTP routes. Services are only fetched from the
// container, never created here.
func SetupRouter(cfg *config.Config) (*gin.Engine, error) {
	container := di.GetContainer()

	scenarioService, ok := container.Get("scenario").(*services.ScenarioService)
	if !ok {
		return nil, fmt.Errorf("scenario service not initialized")
	}

	exportService, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("export service not initialized")
	}

	templateService, ok := container.Get("template").(*services.TemplateService)
	if !ok {
		return nil, fmt.Errorf("template service not initialized")
	}

	log, ok := container.Get("logger").(*zap.Logger)
	if !ok {
		return nil, fmt.Errorf("logger not initialized")
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ZapLogger(log))
	router.Use(cors.Default())

	handler := NewHandler(scenarioService, exportService, templateService, log)
	hub := NewEventHub(scenarioService.Notifier(), log)

	router.GET("/ws", hub.HandleWS)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", handler.Health)

		scenarios := apiGroup.Group("/scenarios")
		{
			scenarios.POST("/generate", handler.GenerateScenario)
			scenarios.POST("", handler.CreateScenario)
			scenarios.GET("", handler.ListScenarios)
			scenarios.POST("/import", handler.ImportScenario)
			scenarios.GET("/:id", handler.GetScenario)
			scenarios.PUT("/:id", handler.UpdateScenario)
			scenarios.DELETE("/:id", handler.DeleteScenario)
			scenarios.POST("/:id/sections", handler.AddSection)
			scenarios.DELETE("/:id/sections/:sectionId", handler.RemoveSection)
			scenarios.PUT("/:id/sections/order", handler.ReorderSections)
			scenarios.POST("/:id/clone", handler.CloneScenario)
			scenarios.POST("/:id/approve", handler.ApproveScenario)
			scenarios.GET("/:id/export", handler.ExportScenario)
			scenarios.GET("/:id/compare", handler.CompareVersions)
		}

		templates := apiGroup.Group("/templates")
		{
			templates.GET("", handler.ListTemplates)
			templates.GET("/:id", handler.GetTemplate)
		}
	}

	return router, nil
}
