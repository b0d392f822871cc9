package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/usecase"
)

// UpdateProfileController handles PUT /profile/:userId
type UpdateProfileController struct {
	uc  *usecase.UpdateProfileUseCase
	log zerolog.Logger
}

func NewUpdateProfileController(d Deps) *UpdateProfileController {
	return &UpdateProfileController{uc: usecase.NewUpdateProfileUseCase(d.Participants), log: d.Log}
}

type updateProfileRequest struct {
	Name     *string              `json:"name"`
	LastName *string              `json:"lastName"`
	Phone    *string              `json:"phone"`
	Photo    *string              `json:"photo"`
	Status   *chat.PresenceStatus `json:"status"`
}

func (h *UpdateProfileController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := h.uc.Execute(c.Request.Context(), usecase.UpdateProfileInput{
			ParticipantID: c.Param("userId"),
			Fields: chat.ProfileUpdate{
				Name:     req.Name,
				LastName: req.LastName,
				Phone:    req.Phone,
				Photo:    req.Photo,
				Status:   req.Status,
			},
		})
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
