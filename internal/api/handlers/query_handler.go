package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/pipeline"
	"github.com/enviducate/backend/internal/storage/models"
	"github.com/enviducate/backend/pkg/logger"
)

type QueryHandler struct {
	engine         *pipeline.Engine
	maxQueryLength int
}

func NewQueryHandler(engine *pipeline.Engine, maxQueryLength int) *QueryHandler {
	if maxQueryLength == 0 {
		maxQueryLength = 1000
	}
	return &QueryHandler{
		engine:         engine,
		maxQueryLength: maxQueryLength,
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

func (h *QueryHandler) validateQuery(c *fiber.Ctx) (string, error) {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return "", c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return "", c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query cannot be empty",
		})
	}

	if len(req.Query) > h.maxQueryLength {
		return "", c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query exceeds maximum length",
		})
	}

	return req.Query, nil
}

// HandleQuery serves the summary-only path: no map, no resources.
func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	query, err := h.validateQuery(c)
	if err != nil || query == "" {
		return err
	}

	response, err := h.engine.ProcessSimple(c.Context(), query)
	if err != nil {
		logger.Error("Failed to process query", zap.String("query", query), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}

	return c.JSON(response)
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be an integer between 1 and 100",
			})
		}
		limit = parsed
	}

	records, err := h.engine.History(limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	if records == nil {
		records = []models.QueryRecord{}
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
