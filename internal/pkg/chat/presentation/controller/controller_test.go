package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/infrastructure/database"
	"duochat/internal/infrastructure/realtime"
	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/usecase"
	chatAdapter "duochat/internal/pkg/chat/persistence/repository/adapter"
	"duochat/internal/pkg/chat/presentation/controller"
	httpHandler "duochat/internal/pkg/chat/presentation/http"
	userAdapter "duochat/internal/repository/adapter"
)

type fixture struct {
	router       *gin.Engine
	hub          *realtime.Hub
	chats        *chatAdapter.SqliteChatRepository
	participants *userAdapter.SqliteParticipantRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		hub:          realtime.NewHub(),
		chats:        chatAdapter.NewSqliteChatRepository(db),
		participants: userAdapter.NewSqliteParticipantRepository(db),
	}
	t.Cleanup(f.hub.Close)

	f.router = gin.New()
	httpHandler.RegisterRoutes(f.router.Group("/api/v1"), controller.Deps{
		Chats:        f.chats,
		Participants: f.participants,
		Hub:          f.hub,
		HubBuffer:    16,
		Order:        usecase.OrderByRecentActivity,
		Location:     time.UTC,
		Log:          zerolog.Nop(),
	})
	return f
}

func (f *fixture) participant(t *testing.T, name string) string {
	t.Helper()
	id, err := f.participants.Create(context.Background(), chat.Participant{
		Name:   name,
		Email:  strings.ToLower(name) + "@example.com",
		Status: chat.PresenceOffline,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) conversation(t *testing.T, a, b string, at time.Time) string {
	t.Helper()
	id, err := f.chats.CreateConversation(context.Background(), chat.Conversation{
		FirstParticipantID:  a,
		SecondParticipantID: b,
		CreatedAt:           at,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	id := f.participant(t, "Ana")

	w := f.do(t, http.MethodGet, "/api/v1/login?email=ANA@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[chat.Participant](t, w).ID)

	w = f.do(t, http.MethodGet, "/api/v1/login?email=nobody@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/login", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateChatIsIdempotentPerPair(t *testing.T) {
	f := newFixture(t)
	ana, bob := f.participant(t, "Ana"), f.participant(t, "Bob")

	body := map[string]string{"firstParticipantId": ana, "secondParticipantId": bob}
	w := f.do(t, http.MethodPost, "/api/v1/chat", body)
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[map[string]any](t, w)

	w = f.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"firstParticipantId": bob, "secondParticipantId": ana})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first["id"], decode[map[string]any](t, w)["id"])

	w = f.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"firstParticipantId": ana, "secondParticipantId": ana})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"firstParticipantId": ana})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendAndFetchMessages(t *testing.T) {
	f := newFixture(t)
	ana, bob, eve := f.participant(t, "Ana"), f.participant(t, "Bob"), f.participant(t, "Eve")
	conv := f.conversation(t, ana, bob, time.Now())

	w := f.do(t, http.MethodPost, "/api/v1/chat/"+conv, map[string]string{"senderId": ana, "content": "hi"})
	require.Equal(t, http.StatusCreated, w.Code)
	msg := decode[chat.Message](t, w)
	assert.NotEmpty(t, msg.ID)

	w = f.do(t, http.MethodPost, "/api/v1/chat/"+conv, map[string]string{"senderId": eve, "content": "hey"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/chat/"+conv, map[string]string{"senderId": ana, "content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/chat/"+conv+"/messages?viewer_id="+ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	h := decode[usecase.History](t, w)
	assert.Equal(t, bob, h.Contact.ID)
	require.Len(t, h.Messages, 1)
	assert.Equal(t, usecase.OwnSenderName, h.Messages[0].SenderName)
	assert.Equal(t, msg.ID, h.Messages[0].ID)

	w = f.do(t, http.MethodGet, "/api/v1/chat/"+conv+"/messages", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatListNullsForEmptyConversations(t *testing.T) {
	f := newFixture(t)
	ana, bob, cid := f.participant(t, "Ana"), f.participant(t, "Bob"), f.participant(t, "Cid")
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	withBob := f.conversation(t, ana, bob, base)
	withCid := f.conversation(t, ana, cid, base.Add(time.Minute))
	_, err := f.chats.SaveMessage(context.Background(), chat.Message{
		ConversationID: withBob,
		SenderID:       bob,
		Content:        "latest",
		CreatedAt:      base.Add(time.Hour),
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/v1/chats?user_id="+ana, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]map[string]any](t, w)
	require.Len(t, items, 2)

	assert.Equal(t, withBob, items[0]["id"])
	assert.Equal(t, "latest", items[0]["lastMessage"])
	assert.Equal(t, "1:00 PM", items[0]["lastMessageTime"])

	assert.Equal(t, withCid, items[1]["id"])
	assert.Contains(t, items[1], "lastMessage")
	assert.Nil(t, items[1]["lastMessage"])
	assert.Nil(t, items[1]["lastMessageTime"])
	assert.Equal(t, "Cid", items[1]["contact"].(map[string]any)["name"])
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ana := f.participant(t, "Ana")

	w := f.do(t, http.MethodPut, "/api/v1/profile/"+ana, map[string]any{"lastName": "Silva", "status": "online"})
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[chat.Participant](t, w)
	assert.Equal(t, "Silva", p.LastName)
	assert.Equal(t, chat.PresenceOnline, p.Status)

	w = f.do(t, http.MethodPut, "/api/v1/profile/"+ana, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/profile/00000000-0000-0000-0000-000000000000", map[string]any{"name": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func dialWS(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello realtime.Frame
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, realtime.FrameConnected, hello.Type)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) realtime.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f realtime.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestChatSocketJoinAndPublish(t *testing.T) {
	f := newFixture(t)
	ana, bob, eve := f.participant(t, "Ana"), f.participant(t, "Bob"), f.participant(t, "Eve")
	conv := f.conversation(t, ana, bob, time.Now())

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	anaWS, bobWS, eveWS := dialWS(t, srv, ana), dialWS(t, srv, bob), dialWS(t, srv, eve)

	require.NoError(t, eveWS.WriteJSON(realtime.Frame{Type: realtime.FrameJoin, ConversationID: conv}))
	reply := readFrame(t, eveWS)
	assert.Equal(t, realtime.FrameError, reply.Type)
	assert.Equal(t, "forbidden", reply.Code)
	assert.Equal(t, conv, reply.ConversationID)

	require.NoError(t, anaWS.WriteJSON(realtime.Frame{Type: realtime.FrameMessage, ConversationID: conv, Content: "early"}))
	reply = readFrame(t, anaWS)
	assert.Equal(t, "forbidden", reply.Code)

	for _, c := range []*websocket.Conn{anaWS, bobWS} {
		require.NoError(t, c.WriteJSON(realtime.Frame{Type: realtime.FrameJoin, ConversationID: conv}))
		assert.Equal(t, realtime.FrameJoined, readFrame(t, c).Type)
	}
	assert.Equal(t, realtime.RoomActive, f.hub.RoomState(conv))
	assert.Equal(t, 2, f.hub.Subscribers(conv))

	require.NoError(t, anaWS.WriteJSON(realtime.MessageFrame(realtime.Envelope{
		ConversationID:    conv,
		SenderDisplayName: "Ana",
		Content:           "hello",
		DisplayTime:       "6:05 PM",
		SenderID:          "spoofed",
	})))
	got := readFrame(t, bobWS)
	assert.Equal(t, realtime.FrameMessage, got.Type)
	assert.Equal(t, realtime.Envelope{
		ConversationID:    conv,
		SenderDisplayName: "Ana",
		Content:           "hello",
		DisplayTime:       "6:05 PM",
		SenderID:          ana,
	}, got.Envelope())

	require.NoError(t, bobWS.WriteJSON(realtime.Frame{Type: realtime.FrameLeave, ConversationID: conv}))
	assert.Equal(t, realtime.FrameLeft, readFrame(t, bobWS).Type)
	assert.Equal(t, 1, f.hub.Subscribers(conv))

	require.NoError(t, anaWS.Close())
	assert.Eventually(t, func() bool {
		return f.hub.RoomState(conv) == realtime.RoomEmpty
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChatSocketRequiresUser(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/v1/chat/ws", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
