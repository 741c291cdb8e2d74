package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/auth"
	"github.com/atlas-mind/backend/internal/graph/neo4j"
	"github.com/atlas-mind/backend/pkg/logger"
)

type AuthHandler struct {
	service *auth.Service
	graph   *neo4j.Client
}

func NewAuthHandler(service *auth.Service, graph *neo4j.Client) *AuthHandler {
	return &AuthHandler{
		service: service,
		graph:   graph,
	}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, token, err := h.service.Signup(req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email already registered",
			})
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Email and password are required",
			})
		}
		logger.Error("Signup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	if err := h.graph.MergeUser(c.Context(), user.ID, user.Email); err != nil {
		logger.Warn("Failed to mirror user into graph",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user_id": user.ID,
		"email":   user.Email,
		"token":   token,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid email or password",
			})
		}
		logger.Error("Login failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to log in",
		})
	}

	return c.JSON(fiber.Map{
		"user_id": user.ID,
		"email":   user.Email,
		"token":   token,
	})
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's identity in locals for downstream handlers.
func RequireAuth(service *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header is required",
			})
		}

		claims, err := service.VerifyToken(header)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_email", claims.Email)
		return c.Next()
	}
}
