package validation

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{}))
	app.Post("/api/v1/chat", func(c *fiber.Ctx) error {
		sanitized, _ := c.Locals("sanitized_query").(string)
		return c.JSON(fiber.Map{"query": sanitized})
	})
	app.Post("/api/v1/agents/chat", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestChatValidationRejectsMissingQuery(t *testing.T) {
	app := newTestApp()

	status, _ := postJSON(t, app, "/api/v1/chat", `{"project_id":"p1"}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d", status, fiber.StatusBadRequest)
	}
}

func TestChatValidationRejectsGraphWrites(t *testing.T) {
	app := newTestApp()

	status, _ := postJSON(t, app, "/api/v1/chat", `{"query":"DELETE every node","project_id":"p1"}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d", status, fiber.StatusBadRequest)
	}
}

func TestChatValidationSetsSanitizedQuery(t *testing.T) {
	app := newTestApp()

	status, body := postJSON(t, app, "/api/v1/chat", `{"query":"  which resources cover BGP  ","project_id":"p1"}`)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", status, fiber.StatusOK)
	}
	if !strings.Contains(body, `"which resources cover BGP"`) {
		t.Errorf("sanitized query not passed to handler: %s", body)
	}
}

func TestAgentSessionChatBypassesChatValidation(t *testing.T) {
	app := newTestApp()

	status, body := postJSON(t, app, "/api/v1/agents/chat", `{"message":"hello","session_id":"s1"}`)
	if status != fiber.StatusOK {
		t.Errorf("status = %d, want %d (body %s)", status, fiber.StatusOK, body)
	}
}
