package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/chat"
	"github.com/atlas-mind/backend/pkg/logger"
)

type WebSocketHandler struct {
	pipeline *chat.Pipeline
}

func NewWebSocketHandler(pipeline *chat.Pipeline) *WebSocketHandler {
	return &WebSocketHandler{
		pipeline: pipeline,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type              string   `json:"type"`
			Query             string   `json:"query"`
			ProjectID         string   `json:"project_id"`
			UserID            string   `json:"user_id"`
			SelectedResources []string `json:"selected_resources"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "chat" {
			continue
		}

		logger.Info("Processing WebSocket chat", zap.String("query", msg.Query))

		err = h.streamResponse(c, chat.Request{
			Query:             msg.Query,
			ProjectID:         msg.ProjectID,
			UserID:            msg.UserID,
			SelectedResources: msg.SelectedResources,
		})
		if err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, req chat.Request) error {
	ctx := context.Background()

	h.sendChunk(c, "status", "Translating query...")

	response, err := h.pipeline.Run(ctx, req)
	if err != nil {
		return err
	}

	if response.ShortCircuited() {
		return c.WriteJSON(map[string]interface{}{
			"type":             "complete",
			"message":          response.Message,
			"translated_query": response.TranslatedQuery,
		})
	}

	words := splitIntoWords(response.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":             "complete",
		"translated_query": response.TranslatedQuery,
		"resource_count":   len(response.Context),
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
