package v1

import (
	"github.com/gin-gonic/gin"

	"duochat/internal/pkg/chat/presentation/controller"
	httpHandler "duochat/internal/pkg/chat/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, d controller.Deps) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, d)
}
