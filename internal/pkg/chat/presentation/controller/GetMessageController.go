package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"duochat/internal/pkg/chat/application/usecase"
)

// GetMessageController handles GET /chat/:chatId/messages?viewer_id=
// and answers with the conversation history as the viewer sees it.
type GetMessageController struct {
	uc  *usecase.FetchHistoryUseCase
	log zerolog.Logger
}

func NewGetMessageController(d Deps) *GetMessageController {
	uc := usecase.NewFetchHistoryUseCase(d.Chats, d.Participants)
	uc.Location = d.Location
	return &GetMessageController{uc: uc, log: d.Log}
}

func (h *GetMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID := c.Query("viewer_id")
		if viewerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "viewer_id is required"})
			return
		}
		history, err := h.uc.Execute(c.Request.Context(), usecase.FetchHistoryInput{
			ConversationID: c.Param("chatId"),
			ViewerID:       viewerID,
		})
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, history)
	}
}
