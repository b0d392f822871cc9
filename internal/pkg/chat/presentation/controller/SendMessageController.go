package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"duochat/internal/pkg/chat/application/usecase"
)

// SendMessageController handles POST /chat/:chatId. It only persists;
// announcing the message to the room is up to the client.
type SendMessageController struct {
	uc  *usecase.AppendMessageUseCase
	log zerolog.Logger
}

func NewSendMessageController(d Deps) *SendMessageController {
	uc := usecase.NewAppendMessageUseCase(d.Chats, d.Queue, d.Log)
	uc.Recorder = d.Recorder
	return &SendMessageController{uc: uc, log: d.Log}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	SenderID string `json:"senderId" binding:"required"`
	Content  string `json:"content"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		msg, err := h.uc.Execute(c.Request.Context(), usecase.AppendMessageInput{
			ConversationID: c.Param("chatId"),
			SenderID:       req.SenderID,
			Content:        req.Content,
		})
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}
