package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/cache/redis"
	"github.com/atlas-mind/backend/internal/chat"
	"github.com/atlas-mind/backend/internal/metrics"
	"github.com/atlas-mind/backend/internal/workflows"
	"github.com/atlas-mind/backend/pkg/logger"
)

type AgentHandler struct {
	docWorkflow  *workflows.DocWorkflow
	mailWorkflow *workflows.MailWorkflow
	gen          chat.Generator
	sessions     *redis.Client
}

func NewAgentHandler(docWorkflow *workflows.DocWorkflow, mailWorkflow *workflows.MailWorkflow, gen chat.Generator, sessions *redis.Client) *AgentHandler {
	return &AgentHandler{
		docWorkflow:  docWorkflow,
		mailWorkflow: mailWorkflow,
		gen:          gen,
		sessions:     sessions,
	}
}

// RunDocWorkflow generates project content and writes it into the linked
// Google Doc and Sheet.
func (h *AgentHandler) RunDocWorkflow(c *fiber.Ctx) error {
	var req struct {
		ProjectID string `json:"project_id"`
		Prompt    string `json:"prompt"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ProjectID == "" || req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project_id and prompt are required",
		})
	}

	result, err := h.docWorkflow.Run(c.Context(), req.ProjectID, req.Prompt)
	if err != nil {
		metrics.WorkflowsExecuted.WithLabelValues("doc", "error").Inc()
		if errors.Is(err, workflows.ErrProjectNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Project not found",
			})
		}
		logger.Error("Doc workflow failed", zap.String("project_id", req.ProjectID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Workflow failed",
		})
	}

	metrics.WorkflowsExecuted.WithLabelValues("doc", "success").Inc()
	return c.JSON(fiber.Map{
		"status": "success",
		"result": result,
	})
}

// RunMailWorkflow generates a project email and sends it.
func (h *AgentHandler) RunMailWorkflow(c *fiber.Ctx) error {
	var req struct {
		ProjectID string `json:"project_id"`
		Prompt    string `json:"prompt"`
		Recipient string `json:"recipient"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ProjectID == "" || req.Prompt == "" || req.Recipient == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project_id, prompt, and recipient are required",
		})
	}

	result, err := h.mailWorkflow.Run(c.Context(), req.ProjectID, req.Prompt, req.Recipient)
	if err != nil {
		metrics.WorkflowsExecuted.WithLabelValues("mail", "error").Inc()
		if errors.Is(err, workflows.ErrProjectNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Project not found",
			})
		}
		logger.Error("Mail workflow failed", zap.String("project_id", req.ProjectID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Workflow failed",
		})
	}

	metrics.WorkflowsExecuted.WithLabelValues("mail", "success").Inc()
	return c.JSON(fiber.Map{
		"status": "success",
		"result": result,
	})
}

// SessionChat is a free-form conversation with the model. History lives in
// Redis keyed by session, so a conversation survives across requests.
func (h *AgentHandler) SessionChat(c *fiber.Ctx) error {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	var history []redis.HistoryEntry
	if h.sessions != nil {
		loaded, err := h.sessions.GetHistory(c.Context(), req.SessionID)
		if err != nil {
			logger.Warn("Failed to load session history", zap.String("session_id", req.SessionID), zap.Error(err))
		}
		history = loaded
	}

	var sb strings.Builder
	for _, entry := range history {
		sb.WriteString(fmt.Sprintf("%s: %s\n", entry.Role, entry.Content))
	}
	sb.WriteString(fmt.Sprintf("user: %s\nassistant:", req.Message))

	answer, err := h.gen.GenerateText(c.Context(), "", sb.String())
	if err != nil {
		logger.Error("Session chat generation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate response",
		})
	}

	if h.sessions != nil {
		for _, entry := range []redis.HistoryEntry{
			{Role: "user", Content: req.Message},
			{Role: "assistant", Content: answer},
		} {
			if err := h.sessions.AppendHistory(c.Context(), req.SessionID, entry); err != nil {
				logger.Warn("Failed to save session turn", zap.String("session_id", req.SessionID), zap.Error(err))
			}
		}
	}

	return c.JSON(fiber.Map{
		"session_id": req.SessionID,
		"response":   answer,
	})
}
