// Package handler contains the HTTP controllers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/service"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AskHandler serves the question answering endpoints.
type AskHandler struct {
	qaService service.QAService
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(qaService service.QAService) *AskHandler {
	return &AskHandler{qaService: qaService}
}

// Ask handles POST /api/v1/ask.
func (h *AskHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[AskHandler] invalid ask request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	result, err := h.qaService.Ask(c.Request.Context(), req.Question)
	if err != nil {
		log.Errorf("[AskHandler] ask failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer question"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": result, "message": "success"})
}

// streamResult is the closing frame of a streamed answer, sent after the
// answer chunks so the client can render attribution.
type streamResult struct {
	Type       string   `json:"type"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
	AIPowered  bool     `json:"ai_powered"`
}

// StreamAsk handles GET /ws/ask. Each text frame from the client is a
// question; the answer streams back as text frames followed by one JSON
// result frame.
func (h *AskHandler) StreamAsk(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[AskHandler] websocket upgrade failed", err)
		return
	}
	defer conn.Close()
	log.Infof("[AskHandler] websocket connection established: %s", c.ClientIP())

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Infof("[AskHandler] websocket connection closed: %v", err)
			return
		}

		result, err := h.qaService.StreamAsk(c.Request.Context(), string(message), conn)
		if err != nil {
			log.Warnf("[AskHandler] streaming answer failed: %v", err)
			return
		}

		footer, err := json.Marshal(streamResult{
			Type:       "result",
			Sources:    result.Sources,
			Confidence: result.Confidence,
			AIPowered:  result.AIPowered,
		})
		if err != nil {
			log.Errorf("[AskHandler] failed to marshal result frame: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, footer); err != nil {
			log.Warnf("[AskHandler] failed to send result frame: %v", err)
			return
		}
	}
}
