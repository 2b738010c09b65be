// README: AI chat handler (one provider chat per user, quota-guarded by the router).
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nest/internal/http/middleware"
	"nest/internal/logger"
	"nest/internal/modules/assistant"
)

type ChatHandler struct {
	chats *assistant.Chats
	log   logger.Logger
}

func NewChatHandler(chats *assistant.Chats, log logger.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, log: log}
}

type aiChatReq struct {
	Message string `json:"message"`
}

// Chat handles POST /api/ai/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req aiChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(c, http.StatusBadRequest, "missing message")
		return
	}

	reply, err := h.chats.For(middleware.CallerUID(c)).Send(c.Request.Context(), req.Message)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"reply": reply})
}

// Reset handles DELETE /api/ai/chat.
func (h *ChatHandler) Reset(c *gin.Context) {
	h.chats.Close(middleware.CallerUID(c))
	c.Status(http.StatusNoContent)
}
