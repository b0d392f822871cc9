package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"duochat/internal/pkg/chat/application/usecase"
)

// CreateChatController handles POST /chat
type CreateChatController struct {
	uc  *usecase.CreateChatUseCase
	log zerolog.Logger
}

func NewCreateChatController(d Deps) *CreateChatController {
	return &CreateChatController{uc: usecase.NewCreateChatUseCase(d.Chats, d.Participants), log: d.Log}
}

type createChatRequest struct {
	FirstParticipantID  string `json:"firstParticipantId" binding:"required"`
	SecondParticipantID string `json:"secondParticipantId" binding:"required"`
}

type conversationResponse struct {
	ID                  string    `json:"id"`
	FirstParticipantID  string    `json:"firstParticipantId"`
	SecondParticipantID string    `json:"secondParticipantId"`
	CreatedAt           time.Time `json:"createdAt"`
}

func (h *CreateChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		conv, created, err := h.uc.Execute(c.Request.Context(), usecase.CreateChatInput{
			FirstParticipantID:  req.FirstParticipantID,
			SecondParticipantID: req.SecondParticipantID,
		})
		if err != nil {
			writeError(c, h.log, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, conversationResponse{
			ID:                  conv.ID,
			FirstParticipantID:  conv.FirstParticipantID,
			SecondParticipantID: conv.SecondParticipantID,
			CreatedAt:           conv.CreatedAt,
		})
	}
}
