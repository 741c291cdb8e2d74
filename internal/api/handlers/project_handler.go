package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/graph/neo4j"
	"github.com/atlas-mind/backend/internal/storage/models"
	"github.com/atlas-mind/backend/internal/storage/sqlite"
	"github.com/atlas-mind/backend/pkg/logger"
)

type ProjectHandler struct {
	store *sqlite.Client
	graph *neo4j.Client
}

func NewProjectHandler(store *sqlite.Client, graph *neo4j.Client) *ProjectHandler {
	return &ProjectHandler{
		store: store,
		graph: graph,
	}
}

func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		DocID       string `json:"doc_id"`
		SheetID     string `json:"sheet_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name is required",
		})
	}

	project := &models.Project{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		DocID:       req.DocID,
		SheetID:     req.SheetID,
		CreatedAt:   time.Now(),
	}

	if err := h.store.InsertProject(project); err != nil {
		logger.Error("Failed to create project", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create project",
		})
	}

	if err := h.graph.MergeProject(c.Context(), project.ID, project.Name); err != nil {
		logger.Error("Failed to mirror project into graph",
			zap.String("project_id", project.ID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create project",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	projects, err := h.store.ListProjects()
	if err != nil {
		logger.Error("Failed to list projects", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list projects",
		})
	}

	return c.JSON(fiber.Map{
		"projects": projects,
	})
}

func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	project, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		logger.Error("Failed to get project", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get project",
		})
	}
	if project == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project not found",
		})
	}

	return c.JSON(project)
}

// GetProjectGraph returns the project's nodes and links for visualization.
func (h *ProjectHandler) GetProjectGraph(c *fiber.Ctx) error {
	view, err := h.graph.ProjectGraph(c.Context(), c.Params("id"))
	if err != nil {
		logger.Error("Failed to load project graph", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load project graph",
		})
	}

	return c.JSON(view)
}
