package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"duochat/internal/pkg/chat/application/usecase"
)

// LoginController handles GET /login?email=
type LoginController struct {
	uc  *usecase.LoginUseCase
	log zerolog.Logger
}

func NewLoginController(d Deps) *LoginController {
	return &LoginController{uc: usecase.NewLoginUseCase(d.Participants), log: d.Log}
}

func (h *LoginController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.uc.Execute(c.Request.Context(), usecase.LoginInput{Email: c.Query("email")})
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
