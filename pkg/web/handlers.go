package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/hkcm91/stickernest/pkg/autoconnect"
	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/persistence"
	"github.com/hkcm91/stickernest/pkg/registry"
	"github.com/hkcm91/stickernest/pkg/services"
)

type APIHandlers struct {
	pipelineService *services.Pipeline
	registry        *registry.Registry
	validator       *validator.Validate
}

func NewAPIHandlers(
	pipelineService *services.Pipeline,
	registry *registry.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		pipelineService: pipelineService,
		registry:        registry,
		validator:       validator,
	}
}

// Register mounts all API routes on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	app.Get("/pipelines", h.GetPipelines)
	app.Post("/pipelines", h.CreatePipeline)
	app.Get("/pipelines/:id", h.GetPipeline)
	app.Delete("/pipelines/:id", h.DeletePipeline)
	app.Post("/pipelines/:id/enable", h.EnablePipeline)
	app.Post("/pipelines/:id/disable", h.DisablePipeline)
	app.Post("/pipelines/:id/connections", h.AddConnection)
	app.Delete("/pipelines/:id/connections/:connectionId", h.RemoveConnection)
	app.Post("/pipelines/:id/widgets", h.AddWidgets)

	app.Get("/widgets", h.GetWidgetDefinitions)
	app.Post("/autoconnect/preview", h.AutoConnectPreview)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.pipelineService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "StickerNest API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "StickerNest API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// GetPipelines lists the pipelines visible from a canvas scope. The default
// scope's pipelines are always included.
func (h *APIHandlers) GetPipelines(c fiber.Ctx) error {
	canvasID := c.Query("canvas_id")
	if canvasID == "" {
		canvasID = models.ScopeDefault
	}

	pipelines, err := h.pipelineService.ListForScope(c.Context(), canvasID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"pipelines": pipelines,
		"canvas_id": canvasID,
		"count":     len(pipelines),
	})
}

func (h *APIHandlers) GetPipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	pipeline, err := h.pipelineService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsPipelineNotFound(err) {
			return notFound(c, "Pipeline not found")
		}

		return internalError(c, err)
	}

	return c.JSON(pipeline)
}

func (h *APIHandlers) CreatePipeline(c fiber.Ctx) error {
	var req CreatePipelineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	pipeline := &models.Pipeline{
		Name:        req.Name,
		CanvasID:    req.CanvasID,
		Nodes:       req.Nodes,
		Connections: []*models.Connection{}, // wired separately
		Enabled:     req.Enabled,
	}

	created, err := h.pipelineService.Create(c.Context(), pipeline)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) DeletePipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	err := h.pipelineService.Delete(c.Context(), id)
	if err != nil {
		if persistence.IsPipelineNotFound(err) {
			return notFound(c, "Pipeline not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) EnablePipeline(c fiber.Ctx) error {
	return h.setEnabled(c, true)
}

func (h *APIHandlers) DisablePipeline(c fiber.Ctx) error {
	return h.setEnabled(c, false)
}

func (h *APIHandlers) setEnabled(c fiber.Ctx, enabled bool) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	pipeline, err := h.pipelineService.SetEnabled(c.Context(), id, enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(pipeline)
}

func (h *APIHandlers) AddConnection(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	var req AddConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	connection, err := h.pipelineService.AddConnection(c.Context(), id, &models.Connection{
		From: req.From,
		To:   req.To,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(connection)
}

func (h *APIHandlers) RemoveConnection(c fiber.Ctx) error {
	id := c.Params("id")
	connectionID := c.Params("connectionId")

	if id == "" || connectionID == "" {
		return badRequest(c, "Pipeline ID and connection ID are required")
	}

	err := h.pipelineService.RemoveConnection(c.Context(), id, connectionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AddWidgets(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	var req AddWidgetsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.pipelineService.AddWidgets(c.Context(), id, req.WidgetDefIDs)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetWidgetDefinitions(c fiber.Ctx) error {
	ids := h.registry.IDs()
	definitions := make([]*models.WidgetDefinition, 0, len(ids))

	for _, id := range ids {
		def, err := h.registry.Get(id)
		if err != nil {
			continue
		}

		definitions = append(definitions, def)
	}

	return c.JSON(fiber.Map{
		"widgets": definitions,
		"count":   len(definitions),
	})
}

// AutoConnectPreview computes the pairings a widget selection would produce
// without creating anything.
func (h *APIHandlers) AutoConnectPreview(c fiber.Ctx) error {
	var req AutoConnectPreviewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	definitions := make([]*models.WidgetDefinition, 0, len(req.WidgetDefIDs))

	for _, defID := range req.WidgetDefIDs {
		def, err := h.registry.Get(defID)
		if err != nil {
			return badRequest(c, "Unknown widget definition: "+defID)
		}

		definitions = append(definitions, def)
	}

	pairings := autoconnect.Resolve(definitions, autoconnect.Policy{
		AllowFanOut: req.AllowFanOut,
		AllowFanIn:  req.AllowFanIn,
	})

	return c.JSON(AutoConnectPreviewResponse{
		WidgetCount:     len(definitions),
		ConnectionCount: len(pairings),
		Pairings:        pairings,
	})
}
