package handler

import (
	"context"
	"net/http"

	"voxnow-backend/internal/llm/chatapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatClient is the support chatbot backend. *chatapi.Client satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, messages []chatapi.Message, temperature float32, maxTokens int) (string, error)
}

// supportSystemPrompt frames the support chatbot; the proxy always prepends
// it so the client cannot override the assistant's role.
const supportSystemPrompt = `You are the VoxNow support assistant. VoxNow transcribes and analyzes law-firm voicemails. Answer questions about the product, the dashboard and voicemail handling. Answer in the language the user writes in (French, Dutch or English). If a question is unrelated to VoxNow, say so politely.`

// ChatRequest is the support chat proxy payload.
type ChatRequest struct {
	Messages []chatapi.Message `json:"messages" binding:"required,min=1"`
}

// Chat relays a conversation to the chat-completions API and returns the
// assistant's reply.
func (h *Handler) Chat(c *gin.Context) {
	if h.chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat is not configured"})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Only user/assistant turns pass through; the system prompt is ours.
	messages := make([]chatapi.Message, 0, len(req.Messages)+1)
	messages = append(messages, chatapi.Message{Role: "system", Content: supportSystemPrompt})
	for _, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message roles must be user or assistant"})
			return
		}
		messages = append(messages, m)
	}

	reply, err := h.chat.Chat(c.Request.Context(), messages, 0.7, 800)
	if err != nil {
		h.logger.Error("Chat completion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chat failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": chatapi.Message{Role: "assistant", Content: reply},
	})
}
