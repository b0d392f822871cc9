package http

import (
	"github.com/gin-gonic/gin"

	"duochat/internal/pkg/chat/presentation/controller"
)

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, d controller.Deps) {
	loginCtl := controller.NewLoginController(d)
	listCtl := controller.NewChatListController(d)
	createCtl := controller.NewCreateChatController(d)
	sendMsgCtl := controller.NewSendMessageController(d)
	getMsgCtl := controller.NewGetMessageController(d)
	profileCtl := controller.NewUpdateProfileController(d)
	socketCtl := controller.NewChatSocketController(d)

	// GET /api/v1/login?email= -> participant record
	g.GET("/login", loginCtl.Handle())

	// GET /api/v1/chats?user_id= -> chat list
	g.GET("/chats", listCtl.Handle())

	// POST /api/v1/chat -> create a chat
	g.POST("/chat", createCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	g.GET("/chat/ws", socketCtl.Handle())

	// POST /api/v1/chat/:chatId -> append a message to a chat
	g.POST("/chat/:chatId", sendMsgCtl.Handle())

	// GET /api/v1/chat/:chatId/messages?viewer_id= -> history
	g.GET("/chat/:chatId/messages", getMsgCtl.Handle())

	// PUT /api/v1/profile/:userId -> profile fields
	g.PUT("/profile/:userId", profileCtl.Handle())
}
