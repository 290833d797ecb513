// internal/api/handlers.go
package api

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Corphon/ScenarioForgeMCP/internal/models"
	"github.com/Corphon/ScenarioForgeMCP/internal/services"
)

// authorHeader carries the acting user's id. The engine records it on
// revisions; authentication itself is outside this service.
const authorHeader = "X-Author-ID"

// Handler bundles the HTTP handlers over the engine services.
type Handler struct {
	Scenarios *services.ScenarioService
	Exports   *services.ExportService
	Templates *services.TemplateService
	Response  *ResponseHelper
	Logger    *zap.Logger
}

// NewHandler creates the API handler set.
func NewHandler(scenarios *services.ScenarioService, exports *services.ExportService, templates *services.TemplateService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Scenarios: scenarios,
		Exports:   exports,
		Templates: templates,
		Response:  NewResponseHelper(),
		Logger:    logger,
	}
}

func authorID(c *gin.Context) string {
	author := c.GetHeader(authorHeader)
	if author == "" {
		return "anonymous"
	}
	return author
}

// GenerateScenario handles POST /api/scenarios/generate.
func (h *Handler) GenerateScenario(c *gin.Context) {
	var options models.GenerateOptions
	if err := c.ShouldBindJSON(&options); err != nil {
		h.Response.BadRequest(c, "invalid generation options: "+err.Error())
		return
	}

	scenario, err := h.Scenarios.Generate(options, authorID(c))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, scenario, "scenario generated")
}

// CreateScenario handles POST /api/scenarios.
func (h *Handler) CreateScenario(c *gin.Context) {
	var input models.UserScenarioInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.Response.BadRequest(c, "invalid scenario input: "+err.Error())
		return
	}

	scenario, err := h.Scenarios.CreateUserScenario(input, authorID(c))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, scenario, "scenario created")
}

// ListScenarios handles GET /api/scenarios.
func (h *Handler) ListScenarios(c *gin.Context) {
	scenarios, err := h.Scenarios.GetAll()
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, scenarios)
}

// GetScenario handles GET /api/scenarios/:id.
func (h *Handler) GetScenario(c *gin.Context) {
	scenario, err := h.Scenarios.Get(c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, scenario)
}

type updateRequest struct {
	Patch   models.ScenarioPatch `json:"patch"`
	Comment string               `json:"comment,omitempty"`
}

// UpdateScenario handles PUT /api/scenarios/:id.
func (h *Handler) UpdateScenario(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid update payload: "+err.Error())
		return
	}

	scenario, err := h.Scenarios.Update(c.Param("id"), req.Patch, authorID(c), req.Comment)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, scenario, "scenario updated")
}

// DeleteScenario handles DELETE /api/scenarios/:id.
func (h *Handler) DeleteScenario(c *gin.Context) {
	if err := h.Scenarios.Delete(c.Param("id")); err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, nil, "scenario deleted")
}

// AddSection handles POST /api/scenarios/:id/sections.
func (h *Handler) AddSection(c *gin.Context) {
	var input models.AddSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.Response.BadRequest(c, "invalid section payload: "+err.Error())
		return
	}

	scenario, err := h.Scenarios.AddSection(c.Param("id"), input, authorID(c))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, scenario, "section added")
}

// RemoveSection handles DELETE /api/scenarios/:id/sections/:sectionId.
func (h *Handler) RemoveSection(c *gin.Context) {
	scenario, err := h.Scenarios.RemoveSection(c.Param("id"), c.Param("sectionId"), authorID(c))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, scenario, "section removed")
}

type reorderRequest struct {
	Order []string `json:"order"`
}

// ReorderSections handles PUT /api/scenarios/:id/sections/order.
func (h *Handler) ReorderSections(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid reorder payload: "+err.Error())
		return
	}

	scenario, err := h.Scenarios.ReorderSections(c.Param("id"), req.Order, authorID(c))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, scenario, "sections reordered")
}

// CloneScenario handles POST /api/scenarios/:id/clone.
func (h *Handler) CloneScenario(c *gin.Context) {
	// The body is optional; an empty body (io.EOF) means no overrides. This
	// also covers chunked requests, where ContentLength is unknown.
	var overrides models.MetadataOverrides
	if err := c.ShouldBindJSON(&overrides); err != nil && !errors.Is(err, io.EOF) {
		h.Response.BadRequest(c, "invalid clone overrides: "+err.Error())
		return
	}

	clone, err := h.Scenarios.Clone(c.Param("id"), authorID(c), &overrides)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, clone, "scenario cloned")
}

type approveRequest struct {
	Comment string `json:"comment,omitempty"`
}

// ApproveScenario handles POST /api/scenarios/:id/approve.
func (h *Handler) ApproveScenario(c *gin.Context) {
	// Body optional, as in CloneScenario.
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Response.BadRequest(c, "invalid approve payload: "+err.Error())
		return
	}

	scenario, err := h.Scenarios.Approve(c.Param("id"), authorID(c), req.Comment)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, scenario, "scenario approved")
}

// ExportScenario handles GET /api/scenarios/:id/export?format=json|markdown.
func (h *Handler) ExportScenario(c *gin.Context) {
	format := models.ExportFormat(c.DefaultQuery("format", "json"))

	result, err := h.Exports.Export(c.Param("id"), format)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// ImportScenario handles POST /api/scenarios/import.
func (h *Handler) ImportScenario(c *gin.Context) {
	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid import payload: "+err.Error())
		return
	}

	scenario, err := h.Exports.Import(req.Data, req.Format, authorID(c))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, scenario, "scenario imported")
}

// CompareVersions handles GET /api/scenarios/:id/compare?from=1&to=2.
func (h *Handler) CompareVersions(c *gin.Context) {
	from, err := strconv.Atoi(c.Query("from"))
	if err != nil {
		h.Response.BadRequest(c, "invalid 'from' version")
		return
	}
	to, err := strconv.Atoi(c.Query("to"))
	if err != nil {
		h.Response.BadRequest(c, "invalid 'to' version")
		return
	}

	result, err := h.Scenarios.CompareVersions(c.Param("id"), from, to)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// ListTemplates handles GET /api/templates.
func (h *Handler) ListTemplates(c *gin.Context) {
	h.Response.Success(c, h.Templates.List())
}

// GetTemplate handles GET /api/templates/:id.
func (h *Handler) GetTemplate(c *gin.Context) {
	tpl, err := h.Templates.Get(c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, tpl)
}

// Health handles GET /api/health.
func (h *Handler) Health(c *gin.Context) {
	h.Response.Success(c, gin.H{"status": "ok"})
}
