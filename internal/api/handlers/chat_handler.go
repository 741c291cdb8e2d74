package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/cache/redis"
	"github.com/atlas-mind/backend/internal/chat"
	"github.com/atlas-mind/backend/internal/metrics"
	"github.com/atlas-mind/backend/internal/storage/sqlite"
	"github.com/atlas-mind/backend/pkg/logger"
	"github.com/atlas-mind/backend/pkg/utils"
)

type ChatHandler struct {
	pipeline *chat.Pipeline
	cache    *redis.Client
	store    *sqlite.Client
}

func NewChatHandler(pipeline *chat.Pipeline, cache *redis.Client, store *sqlite.Client) *ChatHandler {
	return &ChatHandler{
		pipeline: pipeline,
		cache:    cache,
		store:    store,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Query             string   `json:"query"`
		ProjectID         string   `json:"project_id"`
		SelectedResources []string `json:"selected_resources"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if sanitized, ok := c.Locals("sanitized_query").(string); ok && sanitized != "" {
		req.Query = sanitized
	}

	if req.Query == "" || req.ProjectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query and project_id are required",
		})
	}

	userID, _ := c.Locals("user_id").(string)

	cacheKey := chatCacheKey(req.ProjectID, req.Query, req.SelectedResources)
	if h.cache != nil {
		var cached chat.Response
		hit, err := h.cache.GetChat(c.Context(), cacheKey, &cached)
		if err != nil {
			logger.Warn("Chat cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("chat").Inc()
			return c.JSON(cached)
		}
		metrics.CacheMisses.WithLabelValues("chat").Inc()
	}

	startTime := time.Now()
	response, err := h.pipeline.Run(c.Context(), chat.Request{
		Query:             req.Query,
		ProjectID:         req.ProjectID,
		UserID:            userID,
		SelectedResources: req.SelectedResources,
	})
	if err != nil {
		metrics.ChatTotal.WithLabelValues("error").Inc()
		logger.Error("Chat pipeline failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}

	metrics.ChatDuration.WithLabelValues("total").Observe(time.Since(startTime).Seconds())
	metrics.GraphRecordsCount.Observe(float64(len(response.Result)))
	if response.Repair != chat.RepairNone {
		metrics.TranslationRepairs.WithLabelValues(string(response.Repair)).Inc()
	}

	if response.ShortCircuited() {
		metrics.ChatTotal.WithLabelValues("no_data").Inc()
		metrics.ChatShortCircuits.Inc()
		return c.JSON(response)
	}

	metrics.ChatTotal.WithLabelValues("success").Inc()

	if h.cache != nil {
		if err := h.cache.SetChat(c.Context(), cacheKey, response); err != nil {
			logger.Warn("Failed to cache chat response", zap.Error(err))
		}
	}

	return c.JSON(response)
}

func (h *ChatHandler) GetChatHistory(c *fiber.Ctx) error {
	projectID := c.Query("project_id")
	if projectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project_id is required",
		})
	}

	limit := c.QueryInt("limit", 50)
	records, err := h.store.GetChatHistory(projectID, limit)
	if err != nil {
		logger.Error("Failed to load chat history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load chat history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}

func chatCacheKey(projectID, query string, selected []string) string {
	return utils.HashString(projectID + "|" + strings.Join(selected, ",") + "|" + query)
}
