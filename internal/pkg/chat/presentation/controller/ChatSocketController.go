package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"duochat/internal/infrastructure/realtime"
	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/usecase"
)

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
// Clients join rooms of conversations they take part in and publish
// envelopes to them; nothing sent over the socket is persisted.
type ChatSocketController struct {
	hub             *realtime.Hub
	joinRoomUC      *usecase.JoinConversationUseCase
	buffer          int
	inflightTimeout time.Duration
	log             zerolog.Logger
}

func NewChatSocketController(d Deps) *ChatSocketController {
	return &ChatSocketController{
		hub:             d.Hub,
		joinRoomUC:      usecase.NewJoinConversationUseCase(d.Chats),
		buffer:          d.HubBuffer,
		inflightTimeout: 5 * time.Second,
		log:             d.Log.With().Str("component", "ws").Logger(),
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// no auth layer; any origin may connect
		return true
	},
}

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response
			return
		}

		conn := realtime.NewConnection(userID, ws, ctl.buffer)
		conn.Start()
		joined := make(map[string]struct{})
		defer func() {
			ctl.hub.LeaveAll(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		conn.PrepareRead()
		_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameConnected, UserID: userID})

		for {
			frame, err := conn.ReadFrame()
			if err != nil {
				if errors.Is(err, realtime.ErrBadFrame) {
					ctl.replyError(conn, "", "bad_request", "invalid payload")
					continue
				}
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					ctl.log.Debug().Err(err).Str("user_id", userID).Msg("socket read ended")
				}
				return
			}

			switch frame.Type {
			case realtime.FrameJoin:
				ctl.handleJoin(c.Request.Context(), conn, joined, frame)
			case realtime.FrameLeave:
				ctl.handleLeave(conn, joined, frame)
			case realtime.FrameMessage:
				ctl.handleMessage(conn, joined, frame)
			default:
				ctl.replyError(conn, frame.ConversationID, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) handleJoin(ctx context.Context, conn *realtime.Connection, joined map[string]struct{}, frame realtime.Frame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "", "bad_request", "conversationId is required")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	_, err := ctl.joinRoomUC.Execute(ctx, usecase.JoinConversationInput{
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, frame.ConversationID, err)
		return
	}

	ctl.hub.Join(frame.ConversationID, conn)
	joined[frame.ConversationID] = struct{}{}
	_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameJoined, ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, joined map[string]struct{}, frame realtime.Frame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "", "bad_request", "conversationId is required")
		return
	}
	ctl.hub.Leave(frame.ConversationID, conn)
	delete(joined, frame.ConversationID)
	_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameLeft, ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleMessage(conn *realtime.Connection, joined map[string]struct{}, frame realtime.Frame) {
	if _, ok := joined[frame.ConversationID]; !ok {
		ctl.replyError(conn, frame.ConversationID, "forbidden", "join the conversation before publishing")
		return
	}
	if frame.Content == "" {
		ctl.replyError(conn, frame.ConversationID, "bad_request", "content is required")
		return
	}

	env := frame.Envelope()
	env.SenderID = conn.UserID
	ctl.hub.Publish(frame.ConversationID, env, conn.ID())
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, conversationID string, err error) {
	switch {
	case errors.Is(err, chat.ErrNotParticipant):
		ctl.replyError(conn, conversationID, "forbidden", "user is not a participant in this conversation")
	case errors.Is(err, usecase.ErrNotFound):
		ctl.replyError(conn, conversationID, "not_found", "conversation not found")
	case errors.Is(err, usecase.ErrValidation):
		ctl.replyError(conn, conversationID, "bad_request", err.Error())
	default:
		ctl.log.Error().Err(err).Str("user_id", conn.UserID).Msg("join failed")
		ctl.replyError(conn, conversationID, "internal_error", "unexpected persistence error")
	}
}

// replyError names the conversation when the failing frame had one, so
// clients can match the error to their pending join.
func (ctl *ChatSocketController) replyError(conn *realtime.Connection, conversationID, code, message string) {
	f := realtime.ErrorFrame(code, message)
	f.ConversationID = conversationID
	_ = conn.SendFrame(f)
}
