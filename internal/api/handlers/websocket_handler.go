package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/pipeline"
	"github.com/enviducate/backend/pkg/logger"
)

const wsQueryTimeout = 5 * time.Minute

type WebSocketHandler struct {
	engine *pipeline.Engine
}

func NewWebSocketHandler(engine *pipeline.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

// HandleConnection streams analysis progress over a websocket. Each
// query message produces status events, the summary text word by word,
// then the complete envelope.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type              string `json:"type"`
			Content           string `json:"content"`
			VisualizationType string `json:"visualization_type"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "query" {
			continue
		}

		if msg.Content == "" {
			h.sendError(c, "Query cannot be empty")
			continue
		}
		if msg.VisualizationType == "" {
			msg.VisualizationType = "map"
		}

		logger.Info("Processing WebSocket query", zap.String("query", msg.Content))

		if err := h.streamAnalysis(c, msg.Content, msg.VisualizationType); err != nil {
			logger.Error("Failed to stream analysis", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

func (h *WebSocketHandler) streamAnalysis(c *websocket.Conn, query, vizType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), wsQueryTimeout)
	defer cancel()

	h.sendEvent(c, "status", "Analyzing Michigan environmental data...")

	payload, cached, err := h.engine.Process(ctx, query, vizType)
	if err != nil {
		return err
	}

	if cached {
		h.sendEvent(c, "status", "Found a recent analysis for this query")
	}

	var response pipeline.AnalysisResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return err
	}

	words := splitIntoWords(response.Summary.Text)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.sendEvent(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"request_id": response.RequestID,
		"result":     json.RawMessage(payload),
	})
}

func (h *WebSocketHandler) sendEvent(c *websocket.Conn, msgType, content string) error {
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
