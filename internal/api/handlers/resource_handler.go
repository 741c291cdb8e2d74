package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/cache/redis"
	"github.com/atlas-mind/backend/internal/ingestion"
	"github.com/atlas-mind/backend/internal/metrics"
	"github.com/atlas-mind/backend/internal/storage/sqlite"
	"github.com/atlas-mind/backend/pkg/logger"
)

type ResourceHandler struct {
	processor *ingestion.Processor
	store     *sqlite.Client
	cache     *redis.Client
}

func NewResourceHandler(processor *ingestion.Processor, store *sqlite.Client, cache *redis.Client) *ResourceHandler {
	return &ResourceHandler{
		processor: processor,
		store:     store,
		cache:     cache,
	}
}

// UploadResource accepts a multipart file, parses it, and mirrors the
// resource with its concepts into the graph.
func (h *ResourceHandler) UploadResource(c *fiber.Ctx) error {
	projectID := c.Params("id")
	if projectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project id is required",
		})
	}

	filename, data, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	userID, _ := c.Locals("user_id").(string)

	resource, concepts, err := h.processor.ProcessUpload(c.Context(), projectID, filename, data, userID)
	if err != nil {
		if errors.Is(err, ingestion.ErrEmptyDocument) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Document contains no extractable text",
			})
		}
		logger.Error("Failed to process upload",
			zap.String("project_id", projectID),
			zap.String("filename", filename),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process upload",
		})
	}

	metrics.ResourcesProcessed.Inc()
	metrics.ConceptsLinked.Add(float64(len(concepts)))

	// Cached answers may reference stale graph state after an upload.
	if h.cache != nil {
		if err := h.cache.InvalidateChatCache(c.Context()); err != nil {
			logger.Warn("Failed to invalidate chat cache", zap.Error(err))
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       resource.ID,
		"name":     resource.Name,
		"concepts": concepts,
	})
}

// readUpload accepts either a multipart file or a JSON body with inline
// content.
func readUpload(c *fiber.Ctx) (string, []byte, error) {
	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return "", nil, errors.New("failed to open uploaded file")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, errors.New("failed to read uploaded file")
		}
		return fileHeader.Filename, data, nil
	}

	var req struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" || req.Content == "" {
		return "", nil, errors.New("a multipart file or name and content are required")
	}
	return req.Name, []byte(req.Content), nil
}

func (h *ResourceHandler) ListResources(c *fiber.Ctx) error {
	projectID := c.Params("id")

	resources, err := h.store.ListResourcesByProject(projectID)
	if err != nil {
		logger.Error("Failed to list resources", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list resources",
		})
	}

	type resourceSummary struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		UploadedBy string `json:"uploaded_by,omitempty"`
	}

	summaries := make([]resourceSummary, 0, len(resources))
	for _, r := range resources {
		summaries = append(summaries, resourceSummary{
			ID:         r.ID,
			Name:       r.Name,
			UploadedBy: r.UploadedBy,
		})
	}

	return c.JSON(fiber.Map{
		"resources": summaries,
	})
}
