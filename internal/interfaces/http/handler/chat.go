package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	chatapp "github.com/tdhub/commandhub/internal/application/chat"
	"github.com/tdhub/commandhub/internal/domain/chat"
)

// ChatUseCase answers a conversation with the selected model
type ChatUseCase interface {
	Complete(ctx context.Context, req chatapp.Request) (*chatapp.Response, error)
}

// ChatMessage is one turn in a chat request
type ChatMessage struct {
	Role    string `json:"role" binding:"required,chatrole"`
	Content string `json:"content" binding:"required,max=32000"`
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required,min=1,max=100,dive"`
	Model    string        `json:"model" binding:"omitempty,chatmodel"`
}

// ChatHandler proxies conversations to the AI providers
type ChatHandler struct {
	BaseHandler
	chat ChatUseCase
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(svc ChatUseCase) *ChatHandler {
	return &ChatHandler{chat: svc}
}

// Complete returns the assistant reply. Upstream failures answer 503 with
// a fallback message the client can show as-is.
// @Summary      Chat completion
// @Description  Send a conversation to the selected model. Compare mode queries every provider.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body ChatRequest true "Conversation"
// @Success      200 {object} dto.Response{data=chatapp.Response}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chat [post]
func (h *ChatHandler) Complete(c *gin.Context) {
	var req ChatRequest
	if !h.BindJSON(c, &req) {
		return
	}

	messages := make([]chat.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chat.Message{Role: chat.Role(m.Role), Content: m.Content})
	}

	resp, err := h.chat.Complete(c.Request.Context(), chatapp.Request{
		Messages: messages,
		Model:    req.Model,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
