package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Write clauses must never reach the graph through a chat question.
var cypherWritePattern = regexp.MustCompile(`(?i)\b(create|merge|delete|detach|set|remove|drop)\b`)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxQueryLength int
	MaxUploadSize  int
	Logger         *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 5000
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 10 * 1024 * 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()

		if c.Method() == "POST" && path == "/api/v1/chat" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			query, ok := req["query"].(string)
			if !ok || strings.TrimSpace(query) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Query is required and must be a string",
				})
			}

			if len(query) > cfg.MaxQueryLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Query exceeds maximum length",
				})
			}

			if cypherWritePattern.MatchString(query) {
				cfg.Logger.Warn("Rejected query with graph write keywords",
					zap.String("ip", c.IP()),
					zap.String("query", query),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid query content",
				})
			}

			if xssPattern.MatchString(query) {
				cfg.Logger.Warn("Rejected query with markup injection",
					zap.String("ip", c.IP()),
					zap.String("query", query),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid query content",
				})
			}

			c.Locals("sanitized_query", sanitizeString(query))
		}

		if c.Method() == "POST" && strings.Contains(path, "/resources") {
			if len(c.Body()) > cfg.MaxUploadSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Upload exceeds maximum size",
				})
			}
		}

		return c.Next()
	}
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
