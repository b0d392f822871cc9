package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"duochat/internal/pkg/chat/application/attachment"
	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/usecase"
)

// ChatListController handles GET /chats?user_id=
type ChatListController struct {
	uc  *usecase.ListConversationsUseCase
	log zerolog.Logger
}

func NewChatListController(d Deps) *ChatListController {
	uc := usecase.NewListConversationsUseCase(d.Chats, d.Participants, d.Order)
	uc.Location = d.Location
	return &ChatListController{uc: uc, log: d.Log}
}

type chatContact struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	LastName string              `json:"lastName"`
	Photo    *string             `json:"photo,omitempty"`
	Status   chat.PresenceStatus `json:"status"`
}

// chatListItem keeps lastMessage and lastMessageTime null for empty conversations.
type chatListItem struct {
	ID                 string      `json:"id"`
	Contact            chatContact `json:"contact"`
	LastMessage        *string     `json:"lastMessage"`
	LastMessagePreview *string     `json:"lastMessagePreview"`
	LastMessageTime    *string     `json:"lastMessageTime"`
}

func toChatListItem(s chat.ConversationSummary) chatListItem {
	item := chatListItem{
		ID: s.ID,
		Contact: chatContact{
			ID:       s.Contact.ID,
			Name:     s.Contact.Name,
			LastName: s.Contact.LastName,
			Photo:    s.Contact.Photo,
			Status:   s.Contact.Status,
		},
	}
	if s.LastMessage != nil {
		content := s.LastMessage.Content
		preview := attachment.Decode(content).Preview()
		t := s.LastMessageTime
		item.LastMessage, item.LastMessagePreview, item.LastMessageTime = &content, &preview, &t
	}
	return item
}

func (h *ChatListController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		summaries, err := h.uc.Execute(c.Request.Context(), usecase.ListConversationsInput{UserID: userID})
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		items := make([]chatListItem, 0, len(summaries))
		for _, s := range summaries {
			items = append(items, toChatListItem(s))
		}
		c.JSON(http.StatusOK, items)
	}
}
