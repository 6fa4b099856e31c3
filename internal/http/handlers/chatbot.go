package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnlab-assistant/internal/http/response"
	"github.com/yungbote/learnlab-assistant/internal/services"
)

type ChatbotHandler struct {
	chatbot services.ChatbotService
}

func NewChatbotHandler(chatbot services.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{chatbot: chatbot}
}

type sendMessageReq struct {
	Message   string         `json:"message"`
	SessionID string         `json:"sessionId"`
	Context   map[string]any `json:"context"`
}

// POST /api/chatbot/message
func (h *ChatbotHandler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	resp, err := h.chatbot.SendMessage(c.Request.Context(), services.SendMessageInput{
		Message:      req.Message,
		SessionToken: req.SessionID,
		Context:      req.Context,
	})
	if err != nil {
		response.RespondClassified(c, err, "send_message_failed")
		return
	}
	response.RespondData(c, resp)
}

// GET /api/chatbot/conversations/:sessionId/history
func (h *ChatbotHandler) History(c *gin.Context) {
	token := c.Param("sessionId")
	msgs, err := h.chatbot.History(c.Request.Context(), token)
	if err != nil {
		response.RespondClassified(c, err, "history_failed")
		return
	}
	response.RespondData(c, gin.H{"sessionId": token, "messages": msgs})
}

// DELETE /api/chatbot/conversations/:sessionId
func (h *ChatbotHandler) EndConversation(c *gin.Context) {
	sess, err := h.chatbot.EndConversation(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.RespondClassified(c, err, "end_conversation_failed")
		return
	}
	response.RespondData(c, gin.H{"sessionId": sess.SessionToken, "isActive": sess.IsActive})
}

// GET /api/chatbot/conversations?limit=5
func (h *ChatbotHandler) ListConversations(c *gin.Context) {
	limit, ok := queryInt(c, "limit", "invalid_limit")
	if !ok {
		return
	}
	list, err := h.chatbot.ListConversations(c.Request.Context(), limit)
	if err != nil {
		response.RespondClassified(c, err, "list_conversations_failed")
		return
	}
	response.RespondData(c, gin.H{"conversations": list})
}

// DELETE /api/chatbot/admin/cleanup?days=30
func (h *ChatbotHandler) Cleanup(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}
	res, err := h.chatbot.Cleanup(c.Request.Context(), days)
	if err != nil {
		response.RespondClassified(c, err, "cleanup_failed")
		return
	}
	response.RespondData(c, res)
}

// GET /api/chatbot/admin/analytics?days=30
func (h *ChatbotHandler) Analytics(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}
	stats, err := h.chatbot.Analytics(c.Request.Context(), days)
	if err != nil {
		response.RespondClassified(c, err, "analytics_failed")
		return
	}
	response.RespondData(c, stats)
}

// queryInt returns 0 for an absent key and answers 400 with code when the
// value is not an integer.
func queryInt(c *gin.Context, key, code string) (int, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, fmt.Errorf("%s must be an integer", key))
		return 0, false
	}
	return n, true
}

func queryDays(c *gin.Context) (int, bool) {
	n, ok := queryInt(c, "days", "invalid_days")
	if !ok {
		return 0, false
	}
	if n == 0 && strings.TrimSpace(c.Query("days")) != "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_days", errors.New("days must be positive"))
		return 0, false
	}
	return n, true
}
