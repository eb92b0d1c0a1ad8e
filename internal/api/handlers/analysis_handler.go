package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/pipeline"
	"github.com/enviducate/backend/internal/tasks"
	"github.com/enviducate/backend/pkg/logger"
)

type AnalysisHandler struct {
	engine         *pipeline.Engine
	maxQueryLength int
}

func NewAnalysisHandler(engine *pipeline.Engine, maxQueryLength int) *AnalysisHandler {
	if maxQueryLength == 0 {
		maxQueryLength = 1000
	}
	return &AnalysisHandler{
		engine:         engine,
		maxQueryLength: maxQueryLength,
	}
}

type analysisRequest struct {
	Query             string `json:"query"`
	VisualizationType string `json:"visualization_type"`
}

func (h *AnalysisHandler) parseRequest(c *fiber.Ctx) (analysisRequest, bool) {
	var req analysisRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
		return req, false
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query cannot be empty",
		})
		return req, false
	}

	if len(req.Query) > h.maxQueryLength {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query exceeds maximum length",
		})
		return req, false
	}

	if req.VisualizationType == "" {
		req.VisualizationType = "map"
	}

	return req, true
}

// HandleAnalyze runs the full pipeline synchronously. Cached responses
// are returned verbatim, original timestamp included.
func (h *AnalysisHandler) HandleAnalyze(c *fiber.Ctx) error {
	req, ok := h.parseRequest(c)
	if !ok {
		return nil
	}

	payload, cached, err := h.engine.Process(c.Context(), req.Query, req.VisualizationType)
	if err != nil {
		logger.Error("Analysis failed", zap.String("query", req.Query), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process analysis",
		})
	}

	if cached {
		c.Set("X-Cache", "HIT")
	}
	c.Set("Content-Type", fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

// HandleAnalyzeAsync starts a background run and returns its task id.
func (h *AnalysisHandler) HandleAnalyzeAsync(c *fiber.Ctx) error {
	req, ok := h.parseRequest(c)
	if !ok {
		return nil
	}

	taskID := h.engine.StartAnalysis(req.Query, req.VisualizationType)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id": taskID,
		"status":  tasks.StatusStarted,
	})
}

func (h *AnalysisHandler) HandleAnalysisStatus(c *fiber.Ctx) error {
	taskID := c.Params("task_id")

	task, ok := h.engine.Task(taskID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	return c.JSON(task)
}
